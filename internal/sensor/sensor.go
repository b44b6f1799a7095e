// Package sensor reads temperature, humidity and pressure from the
// environmental sensor.
package sensor

import "github.com/sweeney/greenhouse/internal/logic"

// Sensor is the environmental sensor capability.
type Sensor interface {
	// Configure prepares the device. It is called once at startup; a
	// failure there is unrecoverable.
	Configure() error

	// Read takes one sample.
	Read() (logic.Reading, error)

	// Close releases the device.
	Close() error
}
