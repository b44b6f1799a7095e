// Package display drives the two-line character display the operator reads.
// The real implementation is an HD44780-compatible LCD on a 4-bit parallel
// bus over the Linux GPIO character device.
package display

import "strings"

// Geometry of the supported panel.
const (
	Columns = 16
	Rows    = 2
)

// Display is a two-line text surface with a blinking cursor.
type Display interface {
	// Clear blanks both lines and homes the cursor.
	Clear() error

	// SetCursor moves the write position to (col, row), both zero-based.
	SetCursor(col, row int) error

	// Write prints s from the current cursor position.
	Write(s string) error

	// SetBlink turns the blinking cursor block on or off.
	SetBlink(on bool) error

	// Close releases the underlying hardware.
	Close() error
}

// Show clears d and writes top and bottom on the two lines.
func Show(d Display, top, bottom string) error {
	if err := d.Clear(); err != nil {
		return err
	}
	if err := d.Write(top); err != nil {
		return err
	}
	if bottom == "" {
		return nil
	}
	if err := d.SetCursor(0, 1); err != nil {
		return err
	}
	return d.Write(bottom)
}

// Fit pads or truncates s to exactly one display line.
func Fit(s string) string {
	if len(s) >= Columns {
		return s[:Columns]
	}
	return s + strings.Repeat(" ", Columns-len(s))
}
