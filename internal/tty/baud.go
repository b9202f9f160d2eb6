package tty

import (
	"fmt"
	"slices"
)

// DefaultBaud is the factory rate of u-blox UART1.
const DefaultBaud = 38400

// Bauds lists the rates Open accepts, in ascending order.
var Bauds = []int{4800, 9600, 19200, 38400, 57600, 115200, 230400, 460800}

// ValidBaud reports an error for rates the termios layer cannot set.
func ValidBaud(baud int) error {
	if !slices.Contains(Bauds, baud) {
		return fmt.Errorf("unsupported baud %d", baud)
	}
	return nil
}
