package sensor

import (
	"errors"

	"github.com/sweeney/greenhouse/internal/logic"
)

// Fake is a test double that returns scripted readings.
type Fake struct {
	// Readings are returned in order; the last one repeats.
	Readings []logic.Reading

	// ConfigureError, if set, is returned by Configure.
	ConfigureError error

	// ReadErrors, if non-nil at the current index, fail that read instead
	// of returning a reading. The index still advances.
	ReadErrors []error

	index      int
	Reads      int
	Configured bool
	Closed     bool
}

// NewFake creates a Fake with the given readings.
func NewFake(readings ...logic.Reading) *Fake {
	return &Fake{Readings: readings}
}

// Configure records the call.
func (f *Fake) Configure() error {
	if f.ConfigureError != nil {
		return f.ConfigureError
	}
	f.Configured = true
	return nil
}

// Read returns the next scripted reading or error.
func (f *Fake) Read() (logic.Reading, error) {
	i := f.Reads
	f.Reads++

	if i < len(f.ReadErrors) && f.ReadErrors[i] != nil {
		f.advance()
		return logic.Reading{}, f.ReadErrors[i]
	}
	if len(f.Readings) == 0 {
		return logic.Reading{}, errors.New("no readings configured")
	}
	r := f.Readings[f.index]
	f.advance()
	return r, nil
}

func (f *Fake) advance() {
	if f.index < len(f.Readings)-1 {
		f.index++
	}
}

// Close marks the sensor closed.
func (f *Fake) Close() error {
	f.Closed = true
	return nil
}
