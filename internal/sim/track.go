package sim

import (
	"math"
	"time"
)

const metersPerDegLat = 111_320.0

// Track is a deterministic figure-eight flown around a center point with a
// slow sinusoidal climb and descent.
type Track struct {
	CenterLatDeg float64
	CenterLonDeg float64
	AltMSLm      float64
	RadiusM      float64
	Period       time.Duration
	ClimbAmpM    float64
}

// Kinematics is the track state at one instant, in SI units.
type Kinematics struct {
	LatDeg     float64
	LonDeg     float64
	HeightMSLm float64
	VelN       float64 // m/s
	VelE       float64 // m/s
	VelD       float64 // m/s
	SpeedMps   float64
	HeadingDeg float64
}

func (s Track) withDefaults() Track {
	if s.Period <= 0 {
		s.Period = 120 * time.Second
	}
	if s.RadiusM <= 0 {
		s.RadiusM = 900
	}
	if s.AltMSLm == 0 {
		s.AltMSLm = 500
	}
	if s.ClimbAmpM == 0 {
		s.ClimbAmpM = 30
	}
	return s
}

// At returns the state elapsed into the track.
//
// The path is a Lissajous curve
//
//	x = cos(2πt), y = 0.5*sin(4πt)
//
// scaled by RadiusM, so it stays inside the radius.
func (s Track) At(elapsed time.Duration) Kinematics {
	s = s.withDefaults()
	period := s.Period.Seconds()
	phase := math.Mod(elapsed.Seconds(), period) / period
	w := 2 * math.Pi * phase

	x := math.Cos(w)
	y := 0.5 * math.Sin(2*w)

	cosLat := math.Cos(s.CenterLatDeg * math.Pi / 180)
	k := Kinematics{
		LatDeg: s.CenterLatDeg + s.RadiusM*y/metersPerDegLat,
		LonDeg: s.CenterLonDeg + s.RadiusM*x/(metersPerDegLat*cosLat),
	}

	// d/dt of the curve, in m/s.
	omega := 2 * math.Pi / period
	k.VelE = -s.RadiusM * omega * math.Sin(w)
	k.VelN = s.RadiusM * omega * math.Cos(2*w)
	k.SpeedMps = math.Hypot(k.VelN, k.VelE)
	k.HeadingDeg = math.Mod(math.Atan2(k.VelE, k.VelN)*180/math.Pi+360, 360)

	// Vertical period is decoupled from horizontal to avoid repetitive sync.
	vp := period / 2
	if vp < 30 {
		vp = 30
	}
	vw := 2 * math.Pi * math.Mod(elapsed.Seconds(), vp) / vp
	k.HeightMSLm = s.AltMSLm + s.ClimbAmpM*math.Sin(vw)
	k.VelD = -s.ClimbAmpM * (2 * math.Pi / vp) * math.Cos(vw)
	return k
}
