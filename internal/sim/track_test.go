package sim

import (
	"math"
	"testing"
	"time"
)

func TestTrack_At_Invariants(t *testing.T) {
	tr := Track{CenterLatDeg: 48.1, CenterLonDeg: 11.5, RadiusM: 1000, Period: 60 * time.Second, AltMSLm: 520}

	for _, el := range []time.Duration{0, 7 * time.Second, 31 * time.Second, 59 * time.Second, 10 * time.Minute} {
		k := tr.At(el)
		for name, v := range map[string]float64{"lat": k.LatDeg, "lon": k.LonDeg, "hdg": k.HeadingDeg, "alt": k.HeightMSLm} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("%s invalid at %s: %v", name, el, v)
			}
		}
		if k.HeadingDeg < 0 || k.HeadingDeg >= 360 {
			t.Fatalf("heading out of range at %s: %v", el, k.HeadingDeg)
		}
		dN := (k.LatDeg - tr.CenterLatDeg) * metersPerDegLat
		dE := (k.LonDeg - tr.CenterLonDeg) * metersPerDegLat * math.Cos(tr.CenterLatDeg*math.Pi/180)
		if math.Hypot(dN, dE) > tr.RadiusM*1.01 {
			t.Fatalf("offset %.1fm exceeds radius at %s", math.Hypot(dN, dE), el)
		}
		if math.Abs(k.HeightMSLm-tr.AltMSLm) > 30.01 {
			t.Fatalf("altitude %.1f outside profile at %s", k.HeightMSLm, el)
		}
	}
}

func TestTrack_At_HeadingFollowsVelocity(t *testing.T) {
	tr := Track{RadiusM: 1000, Period: 100 * time.Second}
	// At t=0 the curve moves due north: x'=0, y'>0.
	k := tr.At(0)
	if math.Abs(k.VelE) > 1e-9 || k.VelN <= 0 {
		t.Fatalf("unexpected velocity N=%v E=%v", k.VelN, k.VelE)
	}
	if k.HeadingDeg > 1e-6 && k.HeadingDeg < 360-1e-6 {
		t.Fatalf("heading=%v want 0", k.HeadingDeg)
	}
	want := 1000 * 2 * math.Pi / 100
	if math.Abs(k.SpeedMps-want) > 1e-9 {
		t.Fatalf("speed=%v want %v", k.SpeedMps, want)
	}
}

func TestTrack_At_Deterministic(t *testing.T) {
	tr := Track{CenterLatDeg: 1, CenterLonDeg: 2}
	if tr.At(1234*time.Millisecond) != tr.At(1234*time.Millisecond) {
		t.Fatalf("expected deterministic result")
	}
}
