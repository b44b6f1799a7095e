//go:build linux

package display

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Pins are the BCM offsets of the LCD's register-select, enable and the
// four upper data lines.
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

// HD44780 commands.
const (
	cmdClear       = 0x01
	cmdEntryMode   = 0x06 // increment, no shift
	cmdDisplayOff  = 0x08
	cmdDisplayOn   = 0x0C // display on, cursor off, blink off
	cmdDisplayBlnk = 0x0D // display on, cursor off, blink on
	cmdFunction4x2 = 0x28 // 4-bit bus, 2 lines, 5x8 font
	cmdSetDDRAM    = 0x80
	rowOffset      = 0x40
)

// HD44780 is a character LCD wired in 4-bit mode.
type HD44780 struct {
	chip *gpiocdev.Chip
	rs   *gpiocdev.Line
	e    *gpiocdev.Line
	data *gpiocdev.Lines
}

// NewHD44780 requests the bus lines on chip and initialises the panel.
func NewHD44780(chip string, pins Pins) (*HD44780, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	d := &HD44780{chip: c}

	if d.rs, err = c.RequestLine(pins.RS, gpiocdev.AsOutput(0)); err != nil {
		d.Close()
		return nil, fmt.Errorf("request RS pin %d: %w", pins.RS, err)
	}
	if d.e, err = c.RequestLine(pins.E, gpiocdev.AsOutput(0)); err != nil {
		d.Close()
		return nil, fmt.Errorf("request E pin %d: %w", pins.E, err)
	}
	offsets := []int{pins.D4, pins.D5, pins.D6, pins.D7}
	if d.data, err = c.RequestLines(offsets, gpiocdev.AsOutput(0, 0, 0, 0)); err != nil {
		d.Close()
		return nil, fmt.Errorf("request data pins %v: %w", offsets, err)
	}

	if err := d.init(); err != nil {
		d.Close()
		return nil, fmt.Errorf("init lcd: %w", err)
	}
	return d, nil
}

// init runs the datasheet's 4-bit initialisation by instruction.
func (d *HD44780) init() error {
	time.Sleep(50 * time.Millisecond)
	for _, wait := range []time.Duration{5 * time.Millisecond, 150 * time.Microsecond, 150 * time.Microsecond} {
		if err := d.nibble(0x3); err != nil {
			return err
		}
		time.Sleep(wait)
	}
	if err := d.nibble(0x2); err != nil {
		return err
	}
	for _, cmd := range []byte{cmdFunction4x2, cmdDisplayOff, cmdClear, cmdEntryMode, cmdDisplayOn} {
		if err := d.command(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (d *HD44780) nibble(v byte) error {
	vals := []int{int(v & 1), int(v >> 1 & 1), int(v >> 2 & 1), int(v >> 3 & 1)}
	if err := d.data.SetValues(vals); err != nil {
		return fmt.Errorf("set data: %w", err)
	}
	if err := d.e.SetValue(1); err != nil {
		return fmt.Errorf("raise E: %w", err)
	}
	time.Sleep(time.Microsecond)
	if err := d.e.SetValue(0); err != nil {
		return fmt.Errorf("lower E: %w", err)
	}
	time.Sleep(50 * time.Microsecond)
	return nil
}

func (d *HD44780) send(b byte, rs int) error {
	if err := d.rs.SetValue(rs); err != nil {
		return fmt.Errorf("set RS: %w", err)
	}
	if err := d.nibble(b >> 4); err != nil {
		return err
	}
	return d.nibble(b & 0x0F)
}

func (d *HD44780) command(cmd byte) error {
	if err := d.send(cmd, 0); err != nil {
		return err
	}
	if cmd == cmdClear {
		time.Sleep(2 * time.Millisecond)
	}
	return nil
}

// Clear blanks the display and homes the cursor.
func (d *HD44780) Clear() error {
	return d.command(cmdClear)
}

// SetCursor moves the DDRAM address to (col, row).
func (d *HD44780) SetCursor(col, row int) error {
	if col < 0 || col >= Columns || row < 0 || row >= Rows {
		return fmt.Errorf("cursor (%d,%d) outside %dx%d", col, row, Columns, Rows)
	}
	return d.command(cmdSetDDRAM | byte(col+row*rowOffset))
}

// Write sends s as character data.
func (d *HD44780) Write(s string) error {
	for i := 0; i < len(s); i++ {
		if err := d.send(s[i], 1); err != nil {
			return fmt.Errorf("write %q: %w", s, err)
		}
	}
	return nil
}

// SetBlink turns the blinking block on or off.
func (d *HD44780) SetBlink(on bool) error {
	if on {
		return d.command(cmdDisplayBlnk)
	}
	return d.command(cmdDisplayOn)
}

// Close blanks the panel and releases the lines.
func (d *HD44780) Close() error {
	var errs []error
	if d.data != nil && d.rs != nil && d.e != nil {
		if err := d.command(cmdDisplayOff); err != nil {
			errs = append(errs, fmt.Errorf("display off: %w", err))
		}
	}
	if d.data != nil {
		if err := d.data.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close data: %w", err))
		}
	}
	for _, l := range []*gpiocdev.Line{d.rs, d.e} {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", l.Offset(), err))
		}
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
