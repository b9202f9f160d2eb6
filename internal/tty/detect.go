package tty

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// UbloxVID is the u-blox AG USB vendor id.
const UbloxVID = "1546"

// Candidate is one serial device that might carry a receiver.
type Candidate struct {
	Path    string `json:"path"`
	VID     string `json:"vid,omitempty"`
	PID     string `json:"pid,omitempty"`
	Product string `json:"product,omitempty"`
	Serial  string `json:"serial,omitempty"`
}

// IsUblox reports whether the device enumerated with the u-blox vendor id.
func (c Candidate) IsUblox() bool { return strings.EqualFold(c.VID, UbloxVID) }

var (
	listPorts = enumerator.GetDetailedPortsList
	globPorts = filepath.Glob
)

// Candidates lists serial devices, u-blox USB devices first. When USB
// enumeration is unavailable it falls back to the usual Linux device names.
func Candidates() ([]Candidate, error) {
	var out []Candidate
	ports, err := listPorts()
	if err == nil {
		for _, p := range ports {
			if p == nil || p.Name == "" {
				continue
			}
			c := Candidate{Path: p.Name}
			if p.IsUSB {
				c.VID, c.PID = p.VID, p.PID
				c.Product, c.Serial = p.Product, p.SerialNumber
			}
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		for _, pattern := range []string{"/dev/ttyACM*", "/dev/ttyUSB*"} {
			matches, gerr := globPorts(pattern)
			if gerr != nil {
				continue
			}
			sort.Strings(matches)
			for _, m := range matches {
				out = append(out, Candidate{Path: m})
			}
		}
	}
	if len(out) == 0 {
		if err != nil {
			return nil, fmt.Errorf("tty: enumerate: %w", err)
		}
		return nil, nil
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IsUblox() && !out[j].IsUblox()
	})
	return out, nil
}

// Detect returns the most likely receiver device: the first u-blox USB
// device, else the first ACM device, else the first candidate at all.
func Detect() (string, error) {
	cands, err := Candidates()
	if err != nil {
		return "", err
	}
	if len(cands) == 0 {
		return "", fmt.Errorf("tty: no serial devices found")
	}
	if cands[0].IsUblox() {
		return cands[0].Path, nil
	}
	for _, c := range cands {
		if strings.HasPrefix(filepath.Base(c.Path), "ttyACM") {
			return c.Path, nil
		}
	}
	return cands[0].Path, nil
}
