package gnss

import (
	"fmt"
	"time"

	"ubxrx/internal/ubx"
)

// Snapshot is the published receiver state. Pointer fields are nil until
// the corresponding message has been seen.
type Snapshot struct {
	Enabled  bool   `json:"enabled"`
	Source   string `json:"source,omitempty"`
	Device   string `json:"device,omitempty"`
	Resync   string `json:"resync,omitempty"`
	Online   bool   `json:"online"`
	Valid    bool   `json:"valid"`
	FixStale bool   `json:"fix_stale"`

	Fix *Fix          `json:"fix,omitempty"`
	DOP *DOP          `json:"dop,omitempty"`
	HW  *HardwareInfo `json:"hw,omitempty"`

	Stats           ubx.Stats `json:"stats"`
	TransientErrors uint64    `json:"transient_errors"`
	Reopens         uint64    `json:"reopens"`

	LastFixUTC string  `json:"last_fix_utc,omitempty"`
	FixAgeSec  float64 `json:"fix_age_sec,omitempty"`
	LastError  string  `json:"last_error,omitempty"`
}

// Fix is NAV-PVT in engineering units.
type Fix struct {
	TimeUTC      string  `json:"time_utc,omitempty"`
	ITOW         uint32  `json:"itow_ms"`
	FixType      string  `json:"fix_type"`
	FixOK        bool    `json:"fix_ok"`
	NumSV        int     `json:"num_sv"`
	LatDeg       float64 `json:"lat_deg"`
	LonDeg       float64 `json:"lon_deg"`
	HeightM      float64 `json:"height_m"`
	HeightMSLm   float64 `json:"height_msl_m"`
	HAccM        float64 `json:"h_acc_m"`
	VAccM        float64 `json:"v_acc_m"`
	VelNMps      float64 `json:"vel_n_mps"`
	VelEMps      float64 `json:"vel_e_mps"`
	VelDMps      float64 `json:"vel_d_mps"`
	GroundMps    float64 `json:"ground_mps"`
	HeadingDeg   float64 `json:"heading_deg"`
	SpeedAccMps  float64 `json:"speed_acc_mps"`
	PDOP         float64 `json:"pdop"`
	TimeAccNanos uint32  `json:"time_acc_ns"`
}

// DOP is NAV-DOP scaled to plain numbers.
type DOP struct {
	ITOW uint32  `json:"itow_ms"`
	GDOP float64 `json:"gdop"`
	PDOP float64 `json:"pdop"`
	TDOP float64 `json:"tdop"`
	VDOP float64 `json:"vdop"`
	HDOP float64 `json:"hdop"`
	NDOP float64 `json:"ndop"`
	EDOP float64 `json:"edop"`
}

// HardwareInfo is the part of MON-HW worth showing.
type HardwareInfo struct {
	Antenna      string `json:"antenna"`
	AntennaPower string `json:"antenna_power"`
	Jamming      string `json:"jamming"`
	JamInd       int    `json:"jam_ind"`
	NoisePerMS   int    `json:"noise_per_ms"`
	AGCCount     int    `json:"agc_count"`
}

// Update carries the records taken in one poll.
type Update struct {
	At     time.Time
	NavPVT *ubx.NavPositionVelocityTime
	NavDOP *ubx.NavDilutionOfPrecision
	MonHW  *ubx.HardwareStatus
}

func (u Update) Empty() bool { return u.NavPVT == nil && u.NavDOP == nil && u.MonHW == nil }

func FixFrom(m ubx.NavPositionVelocityTime) *Fix {
	f := &Fix{
		ITOW:         m.ITOW,
		FixType:      m.FixType.String(),
		FixOK:        m.FixOK(),
		NumSV:        int(m.NumSV),
		LatDeg:       m.LatDeg(),
		LonDeg:       m.LonDeg(),
		HeightM:      float64(m.Height) / 1000,
		HeightMSLm:   float64(m.HeightMSL) / 1000,
		HAccM:        float64(m.HAcc) / 1000,
		VAccM:        float64(m.VAcc) / 1000,
		VelNMps:      float64(m.VelN) / 1000,
		VelEMps:      float64(m.VelE) / 1000,
		VelDMps:      float64(m.VelD) / 1000,
		GroundMps:    float64(m.GroundSpeed) / 1000,
		HeadingDeg:   float64(m.HeadMotion) * 1e-5,
		SpeedAccMps:  float64(m.SpeedAcc) / 1000,
		PDOP:         float64(m.PDOP) / 100,
		TimeAccNanos: m.TimeAccuracy,
	}
	if m.Valid&ubx.ValidDate != 0 && m.Valid&ubx.ValidTime != 0 {
		f.TimeUTC = fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02dZ", m.Year, m.Month, m.Day, m.Hour, m.Min, m.Sec)
	}
	return f
}

func DOPFrom(m ubx.NavDilutionOfPrecision) *DOP {
	return &DOP{
		ITOW: m.ITOW,
		GDOP: float64(m.GDOP) / 100,
		PDOP: float64(m.PDOP) / 100,
		TDOP: float64(m.TDOP) / 100,
		VDOP: float64(m.VDOP) / 100,
		HDOP: float64(m.HDOP) / 100,
		NDOP: float64(m.NDOP) / 100,
		EDOP: float64(m.EDOP) / 100,
	}
}

func jammingName(state uint8) string {
	switch state {
	case 1:
		return "ok"
	case 2:
		return "warning"
	case 3:
		return "critical"
	default:
		return "unknown"
	}
}

func HardwareFrom(m ubx.HardwareStatus) *HardwareInfo {
	return &HardwareInfo{
		Antenna:      m.AntStatus.String(),
		AntennaPower: m.AntPower.String(),
		Jamming:      jammingName(m.JammingState()),
		JamInd:       int(m.JamInd),
		NoisePerMS:   int(m.NoisePerMS),
		AGCCount:     int(m.AGCCount),
	}
}

// state is the service goroutine's private view; snapshot copies it out.
type state struct {
	base     Snapshot
	fix      *Fix
	fixValid bool
	lastFix  time.Time
	dop      *DOP
	hw       *HardwareInfo
	// silent is set while the last probe found nothing.
	silent bool
	// Counters of drivers from earlier sessions. Each reopen starts a
	// fresh driver; published counters are prior plus current.
	prior          ubx.Stats
	priorTransient uint64
}

// track publishes d's counters on top of the earlier sessions'.
func (st *state) track(d *ubx.Driver) {
	st.base.Stats = st.prior.Add(d.Stats())
	st.base.TransientErrors = st.priorTransient
	if si, ok := d.Interface().(*ubx.SerialInterface); ok {
		st.base.TransientErrors += si.TransientErrors()
	}
}

// retire folds d's final counters into prior when its session ends.
func (st *state) retire(d *ubx.Driver) {
	st.track(d)
	st.prior = st.base.Stats
	st.priorTransient = st.base.TransientErrors
}

func (st *state) apply(u Update) {
	if u.NavPVT != nil {
		st.fix = FixFrom(*u.NavPVT)
		st.fixValid = u.NavPVT.FixOK() && u.NavPVT.FixType >= ubx.Fix2D && u.NavPVT.FixType <= ubx.FixGNSSDeadReckoning
		st.lastFix = u.At
	}
	if u.NavDOP != nil {
		st.dop = DOPFrom(*u.NavDOP)
	}
	if u.MonHW != nil {
		st.hw = HardwareFrom(*u.MonHW)
	}
}

func (st *state) snapshot(now time.Time, staleAfter time.Duration) Snapshot {
	s := st.base
	s.Fix, s.DOP, s.HW = st.fix, st.dop, st.hw
	if !st.lastFix.IsZero() {
		age := now.Sub(st.lastFix)
		s.LastFixUTC = st.lastFix.UTC().Format(time.RFC3339Nano)
		s.FixAgeSec = age.Seconds()
		s.FixStale = staleAfter > 0 && age > staleAfter
	}
	s.Valid = st.fixValid && !s.FixStale
	return s
}
