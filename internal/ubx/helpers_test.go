package ubx

import "time"

type portStep struct {
	b   byte
	err error
}

// scriptPort replays a fixed sequence of bytes and errors, then reports
// ErrWouldBlock.
type scriptPort struct {
	steps []portStep
	reads int
}

func (p *scriptPort) feed(b ...byte) {
	for _, v := range b {
		p.steps = append(p.steps, portStep{b: v})
	}
}

func (p *scriptPort) fail(err error, n int) {
	for i := 0; i < n; i++ {
		p.steps = append(p.steps, portStep{err: err})
	}
}

func (p *scriptPort) ReadByte() (byte, error) {
	p.reads++
	if len(p.steps) == 0 {
		return 0, ErrWouldBlock
	}
	s := p.steps[0]
	p.steps = p.steps[1:]
	return s.b, s.err
}

type fakeSleeper struct {
	slept []time.Duration
}

func (s *fakeSleeper) Sleep(d time.Duration) { s.slept = append(s.slept, d) }

func sampleNavPVT() NavPositionVelocityTime {
	return NavPositionVelocityTime{
		ITOW:         123456000,
		Year:         2024,
		Month:        5,
		Day:          17,
		Hour:         12,
		Min:          34,
		Sec:          56,
		Valid:        ValidDate | ValidTime | FullyResolved | 0x30,
		TimeAccuracy: 25,
		Nano:         -12345,
		FixType:      Fix3D,
		Flags:        FlagGNSSFixOK,
		Flags2:       0x0A,
		NumSV:        14,
		Lon:          114123456,
		Lat:          481234567,
		Height:       545400,
		HeightMSL:    498500,
		HAcc:         1200,
		VAcc:         1800,
		VelN:         -1500,
		VelE:         2500,
		VelD:         100,
		GroundSpeed:  2915,
		HeadMotion:   12034567,
		SpeedAcc:     300,
		HeadAcc:      250000,
		PDOP:         132,
		HeadVehicle:  12034567,
		MagDec:       -321,
		MagAcc:       50,
	}
}

func sampleNavPVT2() NavPositionVelocityTime {
	m := sampleNavPVT()
	m.ITOW += 1000
	m.Sec++
	m.NumSV = 15
	m.Lon += 10
	m.Lat += 10
	m.Height += 10
	m.HeightMSL += 10
	m.HAcc = 1100
	m.VAcc = 1700
	m.VelN = -1400
	m.VelE = 2400
	m.VelD = 90
	m.GroundSpeed = 2900
	m.HeadMotion = 12034000
	m.SpeedAcc = 290
	m.HeadAcc = 240000
	m.PDOP = 128
	m.HeadVehicle = 12034000
	return m
}

func sampleNavDOP() NavDilutionOfPrecision {
	return NavDilutionOfPrecision{
		ITOW: 123456000,
		GDOP: 210,
		PDOP: 180,
		TDOP: 95,
		VDOP: 150,
		HDOP: 110,
		NDOP: 80,
		EDOP: 70,
	}
}

func sampleMonHW() HardwareStatus {
	m := HardwareStatus{
		PinSel:     0x0001EFFF,
		PinBank:    0,
		PinDir:     0x00010000,
		PinVal:     0x0000F7FF,
		NoisePerMS: 87,
		AGCCount:   4321,
		AntStatus:  AntennaOK,
		AntPower:   AntennaPowerOn,
		Flags:      0x05, // rtcCalib + jamming ok
		UsedMask:   0x0001FFFF,
		JamInd:     12,
		PinIRQ:     0x00000001,
		PullH:      0x00000040,
		PullL:      0x00000080,
	}
	for i := range m.VP {
		m.VP[i] = byte(i)
	}
	return m
}
