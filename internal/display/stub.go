//go:build !linux

package display

import "errors"

var errUnsupported = errors.New("display: not supported on this platform (requires Linux)")

// Pins are the BCM offsets of the LCD bus.
type Pins struct {
	RS int
	E  int
	D4 int
	D5 int
	D6 int
	D7 int
}

// DefaultPins is the reference wiring (BCM numbering).
var DefaultPins = Pins{RS: 25, E: 24, D4: 23, D5: 18, D6: 15, D7: 14}

// HD44780 is not available on non-Linux platforms.
type HD44780 struct{}

// NewHD44780 returns an error on non-Linux platforms.
func NewHD44780(chip string, pins Pins) (*HD44780, error) {
	return nil, errUnsupported
}

func (d *HD44780) Clear() error             { return errUnsupported }
func (d *HD44780) SetCursor(int, int) error { return errUnsupported }
func (d *HD44780) Write(string) error       { return errUnsupported }
func (d *HD44780) SetBlink(bool) error      { return errUnsupported }
func (d *HD44780) Close() error             { return nil }
