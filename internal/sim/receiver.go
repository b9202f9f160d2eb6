package sim

import (
	"math"
	"time"

	"ubxrx/internal/ubx"
)

var gpsEpoch = time.Date(1980, 1, 6, 0, 0, 0, 0, time.UTC)

const (
	gpsLeapSeconds = 18
	weekMillis     = 7 * 24 * 3600 * 1000
	geoidSepM      = 47.0
)

// Receiver produces the output of a receiver flying Track: one NAV-PVT and
// one NAV-DOP per epoch and a MON-HW every HWEvery epochs.
type Receiver struct {
	Track   Track
	NumSV   uint8
	HWEvery int
	// JamInd is reported in MON-HW; above 200 the jamming state reads
	// critical.
	JamInd uint8
}

func (r Receiver) numSV() uint8 {
	if r.NumSV == 0 {
		return 12
	}
	return r.NumSV
}

// GPSTimeOfWeek returns the GPS time of week of t in milliseconds.
func GPSTimeOfWeek(t time.Time) uint32 {
	ms := t.UTC().Sub(gpsEpoch).Milliseconds() + gpsLeapSeconds*1000
	return uint32(ms % weekMillis)
}

// NavPVT returns the solution at t, elapsed into the track.
func (r Receiver) NavPVT(t time.Time, elapsed time.Duration) ubx.NavPositionVelocityTime {
	k := r.Track.At(elapsed)
	u := t.UTC()
	sv := r.numSV()
	pdop := r.pdop()
	return ubx.NavPositionVelocityTime{
		ITOW:         GPSTimeOfWeek(t),
		Year:         uint16(u.Year()),
		Month:        uint8(u.Month()),
		Day:          uint8(u.Day()),
		Hour:         uint8(u.Hour()),
		Min:          uint8(u.Minute()),
		Sec:          uint8(u.Second()),
		Valid:        ubx.ValidDate | ubx.ValidTime | ubx.FullyResolved,
		TimeAccuracy: 30,
		Nano:         int32(u.Nanosecond()),
		FixType:      ubx.Fix3D,
		Flags:        ubx.FlagGNSSFixOK,
		NumSV:        sv,
		Lon:          int32(math.Round(k.LonDeg * 1e7)),
		Lat:          int32(math.Round(k.LatDeg * 1e7)),
		Height:       int32(math.Round((k.HeightMSLm + geoidSepM) * 1000)),
		HeightMSL:    int32(math.Round(k.HeightMSLm * 1000)),
		HAcc:         uint32(pdop) * 10,
		VAcc:         uint32(pdop) * 15,
		VelN:         int32(math.Round(k.VelN * 1000)),
		VelE:         int32(math.Round(k.VelE * 1000)),
		VelD:         int32(math.Round(k.VelD * 1000)),
		GroundSpeed:  int32(math.Round(k.SpeedMps * 1000)),
		HeadMotion:   int32(math.Round(k.HeadingDeg * 1e5)),
		SpeedAcc:     200,
		HeadAcc:      uint32(math.Round(0.8 * 1e5)),
		PDOP:         pdop,
		HeadVehicle:  int32(math.Round(k.HeadingDeg * 1e5)),
	}
}

// pdop degrades as fewer satellites are tracked.
func (r Receiver) pdop() uint16 {
	sv := float64(r.numSV())
	return uint16(math.Round(100 * (0.9 + 8/sv)))
}

func (r Receiver) NavDOP(t time.Time) ubx.NavDilutionOfPrecision {
	p := r.pdop()
	return ubx.NavDilutionOfPrecision{
		ITOW: GPSTimeOfWeek(t),
		GDOP: p + p/4,
		PDOP: p,
		TDOP: p / 2,
		VDOP: p * 4 / 5,
		HDOP: p * 3 / 5,
		NDOP: p * 2 / 5,
		EDOP: p * 2 / 5,
	}
}

func (r Receiver) MonHW() ubx.HardwareStatus {
	jamState := uint8(1) // ok
	switch {
	case r.JamInd > 200:
		jamState = 3
	case r.JamInd > 100:
		jamState = 2
	}
	return ubx.HardwareStatus{
		PinSel:     0x0001EFFF,
		PinDir:     0x00010000,
		PinVal:     0x0000F7FF,
		NoisePerMS: 85,
		AGCCount:   5000,
		AntStatus:  ubx.AntennaOK,
		AntPower:   ubx.AntennaPowerOn,
		Flags:      0x01 | jamState<<2, // rtcCalib
		UsedMask:   0x0001FFFF,
		JamInd:     r.JamInd,
	}
}

// Epoch appends the wire bytes of epoch n, taken at t, to dst.
func (r Receiver) Epoch(dst []byte, n int, t time.Time, elapsed time.Duration) []byte {
	dst = append(dst, ubx.Encode(r.NavPVT(t, elapsed))...)
	dst = append(dst, ubx.Encode(r.NavDOP(t))...)
	every := r.HWEvery
	if every <= 0 {
		every = 1
	}
	if n%every == 0 {
		dst = append(dst, ubx.Encode(r.MonHW())...)
	}
	return dst
}
