package ubx

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	Sync1 = 0xB5
	Sync2 = 0x62

	HeaderLen   = 4 // class, id, length (2)
	ChecksumLen = 2

	// MinFrameLen is the smallest complete frame: sync, header, empty
	// payload, checksum.
	MinFrameLen = 2 + HeaderLen + ChecksumLen

	ClassNAV = 0x01
	ClassMON = 0x0A
)

// MessageID packs class (high byte) and id (low byte).
type MessageID uint16

const (
	NavPVTID MessageID = 0x0107
	NavDOPID MessageID = 0x0104
	MonHWID  MessageID = 0x0A09
)

// Fixed payload lengths of the supported messages.
const (
	NavPVTLen = 92
	NavDOPLen = 18
	MonHWLen  = 60
)

func NewMessageID(class, id byte) MessageID {
	return MessageID(class)<<8 | MessageID(id)
}

func (m MessageID) Class() byte { return byte(m >> 8) }
func (m MessageID) ID() byte    { return byte(m) }

func (m MessageID) String() string {
	switch m {
	case NavPVTID:
		return "NAV-PVT"
	case NavDOPID:
		return "NAV-DOP"
	case MonHWID:
		return "MON-HW"
	default:
		return fmt.Sprintf("0x%02X-0x%02X", m.Class(), m.ID())
	}
}

// ErrPayloadLength is returned by the Decode functions for a payload of the
// wrong size.
var ErrPayloadLength = errors.New("ubx: payload length mismatch")

// Message is implemented by every decoded record.
type Message interface {
	MessageID() MessageID
}

// NavPositionVelocityTime is UBX-NAV-PVT (0x01 0x07).
type NavPositionVelocityTime struct {
	ITOW         uint32  `json:"itow"`     // GPS time of week, ms
	Year         uint16  `json:"year"`     // UTC
	Month        uint8   `json:"month"`    // 1..12
	Day          uint8   `json:"day"`      // 1..31
	Hour         uint8   `json:"hour"`     // 0..23
	Min          uint8   `json:"min"`      // 0..59
	Sec          uint8   `json:"sec"`      // 0..60
	Valid        uint8   `json:"valid"`    // validity flags
	TimeAccuracy uint32  `json:"t_acc"`    // ns
	Nano         int32   `json:"nano"`     // fraction of second, ns
	FixType      FixType `json:"fix_type"` // see FixType
	Flags        uint8   `json:"flags"`    // fix status flags
	Flags2       uint8   `json:"flags2"`   // additional flags
	NumSV        uint8   `json:"num_sv"`   // satellites used
	Lon          int32   `json:"lon"`      // 1e-7 deg
	Lat          int32   `json:"lat"`      // 1e-7 deg
	Height       int32   `json:"height"`   // above ellipsoid, mm
	HeightMSL    int32   `json:"h_msl"`    // above mean sea level, mm
	HAcc         uint32  `json:"h_acc"`    // mm
	VAcc         uint32  `json:"v_acc"`    // mm
	VelN         int32   `json:"vel_n"`    // mm/s
	VelE         int32   `json:"vel_e"`    // mm/s
	VelD         int32   `json:"vel_d"`    // mm/s
	GroundSpeed  int32   `json:"g_speed"`  // mm/s
	HeadMotion   int32   `json:"head_mot"` // 1e-5 deg
	SpeedAcc     uint32  `json:"s_acc"`    // mm/s
	HeadAcc      uint32  `json:"head_acc"` // 1e-5 deg
	PDOP         uint16  `json:"p_dop"`    // 0.01
	Reserved1    [6]byte `json:"-"`
	HeadVehicle  int32   `json:"head_veh"` // 1e-5 deg
	MagDec       int16   `json:"mag_dec"`  // 1e-2 deg
	MagAcc       uint16  `json:"mag_acc"`  // 1e-2 deg
}

func (NavPositionVelocityTime) MessageID() MessageID { return NavPVTID }

// NAV-PVT validity bits.
const (
	ValidDate     = 0x01
	ValidTime     = 0x02
	FullyResolved = 0x04
	ValidMag      = 0x08
)

// FlagGNSSFixOK is bit 0 of NAV-PVT flags.
const FlagGNSSFixOK = 0x01

func (p NavPositionVelocityTime) LatDeg() float64 { return float64(p.Lat) * 1e-7 }
func (p NavPositionVelocityTime) LonDeg() float64 { return float64(p.Lon) * 1e-7 }

// FixOK reports a valid fix within the receiver's DOP and accuracy masks.
func (p NavPositionVelocityTime) FixOK() bool { return p.Flags&FlagGNSSFixOK != 0 }

// FixType is the NAV-PVT fixType field.
type FixType uint8

const (
	FixNone FixType = iota
	FixDeadReckoning
	Fix2D
	Fix3D
	FixGNSSDeadReckoning
	FixTimeOnly
)

func (f FixType) String() string {
	switch f {
	case FixNone:
		return "none"
	case FixDeadReckoning:
		return "dead-reckoning"
	case Fix2D:
		return "2d"
	case Fix3D:
		return "3d"
	case FixGNSSDeadReckoning:
		return "gnss+dr"
	case FixTimeOnly:
		return "time-only"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(f))
	}
}

// DecodeNavPVT decodes a NAV-PVT payload field by field.
func DecodeNavPVT(p []byte) (NavPositionVelocityTime, error) {
	var m NavPositionVelocityTime
	if len(p) != NavPVTLen {
		return m, fmt.Errorf("%w: NAV-PVT got %d want %d", ErrPayloadLength, len(p), NavPVTLen)
	}
	le := binary.LittleEndian
	m.ITOW = le.Uint32(p[0:])
	m.Year = le.Uint16(p[4:])
	m.Month = p[6]
	m.Day = p[7]
	m.Hour = p[8]
	m.Min = p[9]
	m.Sec = p[10]
	m.Valid = p[11]
	m.TimeAccuracy = le.Uint32(p[12:])
	m.Nano = int32(le.Uint32(p[16:]))
	m.FixType = FixType(p[20])
	m.Flags = p[21]
	m.Flags2 = p[22]
	m.NumSV = p[23]
	m.Lon = int32(le.Uint32(p[24:]))
	m.Lat = int32(le.Uint32(p[28:]))
	m.Height = int32(le.Uint32(p[32:]))
	m.HeightMSL = int32(le.Uint32(p[36:]))
	m.HAcc = le.Uint32(p[40:])
	m.VAcc = le.Uint32(p[44:])
	m.VelN = int32(le.Uint32(p[48:]))
	m.VelE = int32(le.Uint32(p[52:]))
	m.VelD = int32(le.Uint32(p[56:]))
	m.GroundSpeed = int32(le.Uint32(p[60:]))
	m.HeadMotion = int32(le.Uint32(p[64:]))
	m.SpeedAcc = le.Uint32(p[68:])
	m.HeadAcc = le.Uint32(p[72:])
	m.PDOP = le.Uint16(p[76:])
	copy(m.Reserved1[:], p[78:84])
	m.HeadVehicle = int32(le.Uint32(p[84:]))
	m.MagDec = int16(le.Uint16(p[88:]))
	m.MagAcc = le.Uint16(p[90:])
	return m, nil
}

// AppendPayload appends the 92-byte wire payload of m to dst.
func (m NavPositionVelocityTime) AppendPayload(dst []byte) []byte {
	le := binary.LittleEndian
	dst = le.AppendUint32(dst, m.ITOW)
	dst = le.AppendUint16(dst, m.Year)
	dst = append(dst, m.Month, m.Day, m.Hour, m.Min, m.Sec, m.Valid)
	dst = le.AppendUint32(dst, m.TimeAccuracy)
	dst = le.AppendUint32(dst, uint32(m.Nano))
	dst = append(dst, byte(m.FixType), m.Flags, m.Flags2, m.NumSV)
	dst = le.AppendUint32(dst, uint32(m.Lon))
	dst = le.AppendUint32(dst, uint32(m.Lat))
	dst = le.AppendUint32(dst, uint32(m.Height))
	dst = le.AppendUint32(dst, uint32(m.HeightMSL))
	dst = le.AppendUint32(dst, m.HAcc)
	dst = le.AppendUint32(dst, m.VAcc)
	dst = le.AppendUint32(dst, uint32(m.VelN))
	dst = le.AppendUint32(dst, uint32(m.VelE))
	dst = le.AppendUint32(dst, uint32(m.VelD))
	dst = le.AppendUint32(dst, uint32(m.GroundSpeed))
	dst = le.AppendUint32(dst, uint32(m.HeadMotion))
	dst = le.AppendUint32(dst, m.SpeedAcc)
	dst = le.AppendUint32(dst, m.HeadAcc)
	dst = le.AppendUint16(dst, m.PDOP)
	dst = append(dst, m.Reserved1[:]...)
	dst = le.AppendUint32(dst, uint32(m.HeadVehicle))
	dst = le.AppendUint16(dst, uint16(m.MagDec))
	dst = le.AppendUint16(dst, m.MagAcc)
	return dst
}

// NavDilutionOfPrecision is UBX-NAV-DOP (0x01 0x04). DOP values are
// scaled by 0.01.
type NavDilutionOfPrecision struct {
	ITOW uint32 `json:"itow"`
	GDOP uint16 `json:"g_dop"`
	PDOP uint16 `json:"p_dop"`
	TDOP uint16 `json:"t_dop"`
	VDOP uint16 `json:"v_dop"`
	HDOP uint16 `json:"h_dop"`
	NDOP uint16 `json:"n_dop"`
	EDOP uint16 `json:"e_dop"`
}

func (NavDilutionOfPrecision) MessageID() MessageID { return NavDOPID }

func DecodeNavDOP(p []byte) (NavDilutionOfPrecision, error) {
	var m NavDilutionOfPrecision
	if len(p) != NavDOPLen {
		return m, fmt.Errorf("%w: NAV-DOP got %d want %d", ErrPayloadLength, len(p), NavDOPLen)
	}
	le := binary.LittleEndian
	m.ITOW = le.Uint32(p[0:])
	m.GDOP = le.Uint16(p[4:])
	m.PDOP = le.Uint16(p[6:])
	m.TDOP = le.Uint16(p[8:])
	m.VDOP = le.Uint16(p[10:])
	m.HDOP = le.Uint16(p[12:])
	m.NDOP = le.Uint16(p[14:])
	m.EDOP = le.Uint16(p[16:])
	return m, nil
}

func (m NavDilutionOfPrecision) AppendPayload(dst []byte) []byte {
	le := binary.LittleEndian
	dst = le.AppendUint32(dst, m.ITOW)
	for _, v := range [...]uint16{m.GDOP, m.PDOP, m.TDOP, m.VDOP, m.HDOP, m.NDOP, m.EDOP} {
		dst = le.AppendUint16(dst, v)
	}
	return dst
}

// HardwareStatus is UBX-MON-HW (0x0A 0x09).
type HardwareStatus struct {
	PinSel     uint32        `json:"pin_sel"`
	PinBank    uint32        `json:"pin_bank"`
	PinDir     uint32        `json:"pin_dir"`
	PinVal     uint32        `json:"pin_val"`
	NoisePerMS uint16        `json:"noise_per_ms"`
	AGCCount   uint16        `json:"agc_cnt"` // 0..8191
	AntStatus  AntennaStatus `json:"a_status"`
	AntPower   AntennaPower  `json:"a_power"`
	Flags      uint8         `json:"flags"`
	Reserved1  uint8         `json:"-"`
	UsedMask   uint32        `json:"used_mask"`
	VP         [17]byte      `json:"vp"`
	JamInd     uint8         `json:"jam_ind"` // 0 none .. 255 strong CW jamming
	Reserved2  [2]byte       `json:"-"`
	PinIRQ     uint32        `json:"pin_irq"`
	PullH      uint32        `json:"pull_h"`
	PullL      uint32        `json:"pull_l"`
}

func (HardwareStatus) MessageID() MessageID { return MonHWID }

// JammingState extracts flags bits 2..3 (0 unknown, 1 ok, 2 warning, 3 critical).
func (m HardwareStatus) JammingState() uint8 { return (m.Flags >> 2) & 0x03 }

// AntennaStatus is the antenna supervisor state.
type AntennaStatus uint8

const (
	AntennaInit AntennaStatus = iota
	AntennaDontKnow
	AntennaOK
	AntennaShort
	AntennaOpen
)

func (a AntennaStatus) String() string {
	switch a {
	case AntennaInit:
		return "init"
	case AntennaDontKnow:
		return "unknown"
	case AntennaOK:
		return "ok"
	case AntennaShort:
		return "short"
	case AntennaOpen:
		return "open"
	default:
		return fmt.Sprintf("invalid(%d)", uint8(a))
	}
}

// AntennaPower is the antenna power state.
type AntennaPower uint8

const (
	AntennaPowerOff AntennaPower = iota
	AntennaPowerOn
	AntennaPowerDontKnow
)

func (a AntennaPower) String() string {
	switch a {
	case AntennaPowerOff:
		return "off"
	case AntennaPowerOn:
		return "on"
	case AntennaPowerDontKnow:
		return "unknown"
	default:
		return fmt.Sprintf("invalid(%d)", uint8(a))
	}
}

func DecodeMonHW(p []byte) (HardwareStatus, error) {
	var m HardwareStatus
	if len(p) != MonHWLen {
		return m, fmt.Errorf("%w: MON-HW got %d want %d", ErrPayloadLength, len(p), MonHWLen)
	}
	le := binary.LittleEndian
	m.PinSel = le.Uint32(p[0:])
	m.PinBank = le.Uint32(p[4:])
	m.PinDir = le.Uint32(p[8:])
	m.PinVal = le.Uint32(p[12:])
	m.NoisePerMS = le.Uint16(p[16:])
	m.AGCCount = le.Uint16(p[18:])
	m.AntStatus = AntennaStatus(p[20])
	m.AntPower = AntennaPower(p[21])
	m.Flags = p[22]
	m.Reserved1 = p[23]
	m.UsedMask = le.Uint32(p[24:])
	copy(m.VP[:], p[28:45])
	m.JamInd = p[45]
	copy(m.Reserved2[:], p[46:48])
	m.PinIRQ = le.Uint32(p[48:])
	m.PullH = le.Uint32(p[52:])
	m.PullL = le.Uint32(p[56:])
	return m, nil
}

func (m HardwareStatus) AppendPayload(dst []byte) []byte {
	le := binary.LittleEndian
	dst = le.AppendUint32(dst, m.PinSel)
	dst = le.AppendUint32(dst, m.PinBank)
	dst = le.AppendUint32(dst, m.PinDir)
	dst = le.AppendUint32(dst, m.PinVal)
	dst = le.AppendUint16(dst, m.NoisePerMS)
	dst = le.AppendUint16(dst, m.AGCCount)
	dst = append(dst, byte(m.AntStatus), byte(m.AntPower), m.Flags, m.Reserved1)
	dst = le.AppendUint32(dst, m.UsedMask)
	dst = append(dst, m.VP[:]...)
	dst = append(dst, m.JamInd)
	dst = append(dst, m.Reserved2[:]...)
	dst = le.AppendUint32(dst, m.PinIRQ)
	dst = le.AppendUint32(dst, m.PullH)
	dst = le.AppendUint32(dst, m.PullL)
	return dst
}

// EncodeFrame wraps payload in sync bytes, header and checksum.
func EncodeFrame(class, id byte, payload []byte) []byte {
	out := make([]byte, 0, MinFrameLen+len(payload))
	out = append(out, Sync1, Sync2, class, id)
	out = binary.LittleEndian.AppendUint16(out, uint16(len(payload)))
	out = append(out, payload...)
	ckA, ckB := Checksum(out[2:])
	return append(out, ckA, ckB)
}

// Encode frames a decoded record back into wire bytes.
func Encode(m Message) []byte {
	var payload []byte
	switch v := m.(type) {
	case NavPositionVelocityTime:
		payload = v.AppendPayload(make([]byte, 0, NavPVTLen))
	case NavDilutionOfPrecision:
		payload = v.AppendPayload(make([]byte, 0, NavDOPLen))
	case HardwareStatus:
		payload = v.AppendPayload(make([]byte, 0, MonHWLen))
	default:
		return nil
	}
	id := m.MessageID()
	return EncodeFrame(id.Class(), id.ID(), payload)
}
