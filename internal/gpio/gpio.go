// Package gpio provides the controller's digital inputs and outputs with
// hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Levels is one sample of every digital input. true = line high.
// Buttons and the smoke detector are active-high.
type Levels struct {
	Up     bool
	Down   bool
	Select bool
	Smoke  bool
}

// AnyButton reports whether a navigation button is held.
func (l Levels) AnyButton() bool {
	return l.Up || l.Down || l.Select
}

// Outputs is the commanded level of every digital output. true = driven high.
type Outputs struct {
	Buzzer     bool
	Vent       bool // high = open
	Sprinklers bool
}

// Reader reads the digital inputs.
type Reader interface {
	// Read returns the current input levels.
	Read() (Levels, error)

	// Close releases GPIO resources.
	Close() error
}

// Writer drives the digital outputs.
type Writer interface {
	// Write sets all outputs at once.
	Write(Outputs) error

	// Close drives all outputs low and releases GPIO resources.
	Close() error
}

// Pins maps each logical line to a BCM offset on the chip.
type Pins struct {
	Up         int
	Down       int
	Select     int
	Smoke      int
	Buzzer     int
	Vent       int
	Sprinklers int
}

// DefaultPins is the reference wiring (BCM numbering).
var DefaultPins = Pins{
	Up:         17,
	Down:       27,
	Select:     22,
	Smoke:      4,
	Buzzer:     5,
	Vent:       6,
	Sprinklers: 13,
}
