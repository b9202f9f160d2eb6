//go:build !linux

package tty

import "fmt"

func Open(path string, baud int) (*Port, error) {
	if err := ValidBaud(baud); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("tty: serial not supported on this platform")
}
