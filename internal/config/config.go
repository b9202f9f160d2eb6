package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ubxrx/internal/tty"
)

type Config struct {
	GNSS GNSSConfig `yaml:"gnss"`
	Sim  SimConfig  `yaml:"sim"`
	Log  LogConfig  `yaml:"log"`
	HTTP HTTPConfig `yaml:"http"`
	UDP  UDPConfig  `yaml:"udp"`
}

type GNSSConfig struct {
	Enable bool `yaml:"enable"`
	// Source is one of serial, replay, sim.
	Source string `yaml:"source"`
	// Device is the serial device path; "auto" or empty detects one.
	Device        string        `yaml:"device"`
	Baud          int           `yaml:"baud"`
	ResetGPIO     int           `yaml:"reset_gpio"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	StaleAfter    time.Duration `yaml:"stale_after"`
	ProbeAttempts int           `yaml:"probe_attempts"`
	// Resync is discard or hold.
	Resync string       `yaml:"resync"`
	Record RecordConfig `yaml:"record"`
	Replay ReplayConfig `yaml:"replay"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type ReplayConfig struct {
	Path  string  `yaml:"path"`
	Speed float64 `yaml:"speed"`
	Loop  bool    `yaml:"loop"`
}

type SimConfig struct {
	CenterLatDeg float64       `yaml:"center_lat_deg"`
	CenterLonDeg float64       `yaml:"center_lon_deg"`
	AltMSLm      float64       `yaml:"alt_msl_m"`
	RadiusM      float64       `yaml:"radius_m"`
	Period       time.Duration `yaml:"period"`
	Interval     time.Duration `yaml:"interval"`
	NumSV        int           `yaml:"num_sv"`
	HWEvery      int           `yaml:"hw_every"`
	GarbageProb  float64       `yaml:"garbage_prob"`
	CorruptProb  float64       `yaml:"corrupt_prob"`
	FalseSync    bool          `yaml:"false_sync"`
	Seed         uint64        `yaml:"seed"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
	// File, when set, receives a rotated copy of the log.
	File        string `yaml:"file"`
	MaxSizeMB   int    `yaml:"max_size_mb"`
	MaxBackups  int    `yaml:"max_backups"`
	BufferLines int    `yaml:"buffer_lines"`
}

type HTTPConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

type UDPConfig struct {
	Enable bool   `yaml:"enable"`
	Dest   string `yaml:"dest"`
}

const (
	SourceSerial = "serial"
	SourceReplay = "replay"
	SourceSim    = "sim"
)

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.applyDefaultsAndValidate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaultsAndValidate() error {
	g := &cfg.GNSS
	g.Source = strings.ToLower(strings.TrimSpace(g.Source))
	if g.Source == "" {
		g.Source = SourceSerial
	}
	switch g.Source {
	case SourceSerial, SourceReplay, SourceSim:
	default:
		return fmt.Errorf("gnss.source must be serial, replay, or sim")
	}
	if g.Baud == 0 {
		g.Baud = tty.DefaultBaud
	}
	if err := tty.ValidBaud(g.Baud); err != nil {
		return fmt.Errorf("gnss.baud: %w", err)
	}
	if g.ResetGPIO < 0 {
		return fmt.Errorf("gnss.reset_gpio must be >= 0")
	}
	if g.PollInterval == 0 {
		g.PollInterval = 100 * time.Millisecond
	}
	if g.PollInterval < 0 {
		return fmt.Errorf("gnss.poll_interval must be > 0")
	}
	if g.StaleAfter == 0 {
		g.StaleAfter = 3 * time.Second
	}
	if g.ProbeAttempts == 0 {
		g.ProbeAttempts = 20
	}
	if g.ProbeAttempts < 0 {
		return fmt.Errorf("gnss.probe_attempts must be > 0")
	}
	g.Resync = strings.ToLower(strings.TrimSpace(g.Resync))
	if g.Resync == "" {
		g.Resync = "discard"
	}
	if g.Resync != "discard" && g.Resync != "hold" {
		return fmt.Errorf("gnss.resync must be discard or hold")
	}

	if g.Record.Enable {
		if g.Record.Path == "" {
			return fmt.Errorf("gnss.record.path is required when gnss.record.enable is true")
		}
		if g.Source == SourceReplay {
			return fmt.Errorf("gnss.record cannot be used with gnss.source=replay")
		}
	}
	if g.Source == SourceReplay {
		if g.Replay.Path == "" {
			return fmt.Errorf("gnss.replay.path is required when gnss.source is replay")
		}
		if g.Replay.Speed == 0 {
			g.Replay.Speed = 1
		}
		if g.Replay.Speed < 0 {
			return fmt.Errorf("gnss.replay.speed must be > 0")
		}
	}

	s := &cfg.Sim
	if s.CenterLatDeg == 0 && s.CenterLonDeg == 0 {
		s.CenterLatDeg, s.CenterLonDeg = 47.6062, -122.3321
	}
	if s.Interval <= 0 {
		s.Interval = time.Second
	}
	if s.Period <= 0 {
		s.Period = 120 * time.Second
	}
	if s.RadiusM <= 0 {
		s.RadiusM = 900
	}
	if s.AltMSLm == 0 {
		s.AltMSLm = 500
	}
	if s.NumSV <= 0 {
		s.NumSV = 12
	}
	if s.NumSV > 255 {
		return fmt.Errorf("sim.num_sv must be <= 255")
	}
	if s.HWEvery <= 0 {
		s.HWEvery = 5
	}
	if s.GarbageProb < 0 || s.GarbageProb > 1 {
		return fmt.Errorf("sim.garbage_prob must be in [0,1]")
	}
	if s.CorruptProb < 0 || s.CorruptProb > 1 {
		return fmt.Errorf("sim.corrupt_prob must be in [0,1]")
	}

	l := &cfg.Log
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	if l.Level == "" {
		l.Level = "info"
	}
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error")
	}
	l.Encoding = strings.ToLower(strings.TrimSpace(l.Encoding))
	if l.Encoding == "" {
		l.Encoding = "console"
	}
	if l.Encoding != "console" && l.Encoding != "json" {
		return fmt.Errorf("log.encoding must be console or json")
	}
	if l.MaxSizeMB <= 0 {
		l.MaxSizeMB = 10
	}
	if l.MaxBackups <= 0 {
		l.MaxBackups = 3
	}
	if l.BufferLines <= 0 {
		l.BufferLines = 2000
	}

	if cfg.HTTP.Listen == "" {
		cfg.HTTP.Listen = ":8080"
	}
	if cfg.UDP.Enable && cfg.UDP.Dest == "" {
		return fmt.Errorf("udp.dest is required when udp.enable is true")
	}
	return nil
}
