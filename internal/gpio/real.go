//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads inputs from actual hardware using Linux GPIO character device.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line // up, down, select, smoke
}

// NewRealReader requests the four input lines on chip (e.g. "gpiochip0").
func NewRealReader(chip string, pins Pins) (*RealReader, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealReader{chip: c}
	for _, p := range []struct {
		name   string
		offset int
	}{
		{"up", pins.Up},
		{"down", pins.Down},
		{"select", pins.Select},
		{"smoke", pins.Smoke},
	} {
		// Buttons and detector pull the line high when asserted.
		l, err := c.RequestLine(p.offset, gpiocdev.AsInput, gpiocdev.WithPullDown)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", p.name, p.offset, err)
		}
		r.lines = append(r.lines, l)
	}

	return r, nil
}

// Read returns the current input levels.
func (r *RealReader) Read() (Levels, error) {
	var v [4]bool
	for i, l := range r.lines {
		raw, err := l.Value()
		if err != nil {
			return Levels{}, fmt.Errorf("read pin %d: %w", l.Offset(), err)
		}
		v[i] = raw == 1
	}
	return Levels{Up: v[0], Down: v[1], Select: v[2], Smoke: v[3]}, nil
}

// Close releases GPIO resources.
// Lines are left as inputs with pull-down, matching Pi boot defaults.
func (r *RealReader) Close() error {
	var errs []error
	for _, l := range r.lines {
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", l.Offset(), err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", l.Offset(), err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealWriter drives the buzzer, vent and sprinkler lines.
type RealWriter struct {
	chip       *gpiocdev.Chip
	buzzer     *gpiocdev.Line
	vent       *gpiocdev.Line
	sprinklers *gpiocdev.Line
}

// NewRealWriter requests the three output lines on chip, initially low.
func NewRealWriter(chip string, pins Pins) (*RealWriter, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	w := &RealWriter{chip: c}
	request := func(name string, offset int) (*gpiocdev.Line, error) {
		l, err := c.RequestLine(offset, gpiocdev.AsOutput(0))
		if err != nil {
			return nil, fmt.Errorf("request %s pin %d: %w", name, offset, err)
		}
		return l, nil
	}

	if w.buzzer, err = request("buzzer", pins.Buzzer); err != nil {
		w.Close()
		return nil, err
	}
	if w.vent, err = request("vent", pins.Vent); err != nil {
		w.Close()
		return nil, err
	}
	if w.sprinklers, err = request("sprinklers", pins.Sprinklers); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// Write sets all three outputs.
func (w *RealWriter) Write(o Outputs) error {
	if err := w.buzzer.SetValue(level(o.Buzzer)); err != nil {
		return fmt.Errorf("set buzzer: %w", err)
	}
	if err := w.vent.SetValue(level(o.Vent)); err != nil {
		return fmt.Errorf("set vent: %w", err)
	}
	if err := w.sprinklers.SetValue(level(o.Sprinklers)); err != nil {
		return fmt.Errorf("set sprinklers: %w", err)
	}
	return nil
}

// Close drives every output low, then releases the lines.
func (w *RealWriter) Close() error {
	var errs []error
	for _, l := range []*gpiocdev.Line{w.buzzer, w.vent, w.sprinklers} {
		if l == nil {
			continue
		}
		if err := l.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear pin %d: %w", l.Offset(), err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", l.Offset(), err))
		}
	}
	if w.chip != nil {
		if err := w.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func level(b bool) int {
	if b {
		return 1
	}
	return 0
}
