package sensor

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"

	"github.com/sweeney/greenhouse/internal/logic"
)

// DefaultAddress is the BME280's I2C address with SDO tied low.
const DefaultAddress = 0x76

// BME280 is a Bosch BME280 on an I2C bus.
type BME280 struct {
	busName string
	addr    uint16

	bus i2c.BusCloser
	dev *bmxx80.Dev
}

// NewBME280 returns an unconfigured sensor. bus is a periph bus name such as
// "1" or "/dev/i2c-1"; an empty name selects the first bus.
func NewBME280(bus string, addr uint16) *BME280 {
	return &BME280{busName: bus, addr: addr}
}

// Configure initialises the host drivers, opens the bus and probes the chip.
func (s *BME280) Configure() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("init host: %w", err)
	}
	bus, err := i2creg.Open(s.busName)
	if err != nil {
		return fmt.Errorf("open i2c bus %q: %w", s.busName, err)
	}
	dev, err := bmxx80.NewI2C(bus, s.addr, &bmxx80.DefaultOpts)
	if err != nil {
		bus.Close()
		return fmt.Errorf("probe bme280 at %#x: %w", s.addr, err)
	}
	s.bus, s.dev = bus, dev
	return nil
}

// Read takes one forced-mode measurement.
func (s *BME280) Read() (logic.Reading, error) {
	if s.dev == nil {
		return logic.Reading{}, errors.New("sensor not configured")
	}
	var e physic.Env
	if err := s.dev.Sense(&e); err != nil {
		return logic.Reading{}, fmt.Errorf("sense: %w", err)
	}
	return fromEnv(e), nil
}

// Close halts the device and releases the bus.
func (s *BME280) Close() error {
	var errs []error
	if s.dev != nil {
		if err := s.dev.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt: %w", err))
		}
	}
	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close bus: %w", err))
		}
	}
	return errors.Join(errs...)
}

func fromEnv(e physic.Env) logic.Reading {
	return logic.Reading{
		TemperatureF: e.Temperature.Fahrenheit(),
		HumidityPct:  float64(e.Humidity) / float64(physic.PercentRH),
		PressureHPa:  float64(e.Pressure) / float64(100*physic.Pascal),
	}
}
