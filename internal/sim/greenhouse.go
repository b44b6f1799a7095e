// Package sim is a software greenhouse for running the controller without
// hardware: a button panel, relay outputs and a climate that responds to the
// vent and sprinklers.
package sim

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/sweeney/greenhouse/internal/display"
	"github.com/sweeney/greenhouse/internal/gpio"
	"github.com/sweeney/greenhouse/internal/logic"
)

// ErrSensorFault is returned by Climate.Read while a fault is injected.
var ErrSensorFault = errors.New("simulated sensor fault")

// Button is one of the three navigation buttons.
type Button int

const (
	Up Button = iota
	Down
	Select
)

// Panel is the operator's buttons and the smoke detector. A press is held
// until the controller samples it once; smoke is a level.
type Panel struct {
	mu      sync.Mutex
	pending gpio.Levels
	smoke   bool
	reads   int
}

// Press latches b until the next Read.
func (p *Panel) Press(b Button) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch b {
	case Up:
		p.pending.Up = true
	case Down:
		p.pending.Down = true
	case Select:
		p.pending.Select = true
	}
}

// ToggleSmoke flips the smoke detector and returns the new level.
func (p *Panel) ToggleSmoke() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.smoke = !p.smoke
	return p.smoke
}

// Smoke reports the detector level.
func (p *Panel) Smoke() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.smoke
}

// Read returns and releases any latched presses.
func (p *Panel) Read() (gpio.Levels, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l := p.pending
	l.Smoke = p.smoke
	p.pending = gpio.Levels{}
	p.reads++
	return l, nil
}

// Close is a no-op.
func (p *Panel) Close() error { return nil }

// Relays holds the last commanded outputs.
type Relays struct {
	mu     sync.Mutex
	out    gpio.Outputs
	writes int
}

// Write records o.
func (r *Relays) Write(o gpio.Outputs) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = o
	r.writes++
	return nil
}

// Outputs returns the current output levels.
func (r *Relays) Outputs() gpio.Outputs {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.out
}

// Close drives everything low.
func (r *Relays) Close() error { return r.Write(gpio.Outputs{}) }

// Weather is what the greenhouse drifts towards.
type Weather struct {
	SunF     float64 // inside temperature with the vent shut
	OutsideF float64 // temperature the vent pulls towards
	DryPct   float64 // humidity with the sprinklers off
	Pressure float64 // hPa
}

// DefaultWeather is a warm, dry afternoon.
var DefaultWeather = Weather{SunF: 92, OutsideF: 55, DryPct: 45, Pressure: 1013.25}

// Rates are per second.
const (
	sealedRate    = 0.01
	ventRate      = 0.05
	dryRate       = 0.005
	sprinklerRate = 1.5
)

// Climate is the greenhouse air. Read advances it by the wall time since the
// previous read, driven by the relay outputs.
type Climate struct {
	mu      sync.Mutex
	relays  *Relays
	weather Weather
	now     func() time.Time
	last    time.Time
	cur     logic.Reading
	fault   bool
	reads   int
}

// NewClimate starts the greenhouse at start, driven by relays.
func NewClimate(relays *Relays, w Weather, start logic.Reading, now func() time.Time) *Climate {
	if now == nil {
		now = time.Now
	}
	if start.PressureHPa == 0 {
		start.PressureHPa = w.Pressure
	}
	return &Climate{relays: relays, weather: w, now: now, cur: start}
}

// Configure marks the start of simulated time.
func (c *Climate) Configure() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = c.now()
	return nil
}

// Read advances the climate and samples it.
func (c *Climate) Read() (logic.Reading, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if !c.last.IsZero() {
		c.advance(now.Sub(c.last), c.relays.Outputs())
	}
	c.last = now
	c.reads++
	if c.fault {
		return logic.Reading{}, ErrSensorFault
	}
	return c.cur, nil
}

func (c *Climate) advance(d time.Duration, o gpio.Outputs) {
	dt := d.Seconds()
	if dt <= 0 {
		return
	}

	target, rate := c.weather.SunF, sealedRate
	if o.Vent {
		target, rate = c.weather.OutsideF, ventRate
	}
	c.cur.TemperatureF += (target - c.cur.TemperatureF) * (1 - math.Exp(-rate*dt))

	if o.Sprinklers {
		c.cur.HumidityPct = math.Min(100, c.cur.HumidityPct+sprinklerRate*dt)
	} else {
		c.cur.HumidityPct += (c.weather.DryPct - c.cur.HumidityPct) * (1 - math.Exp(-dryRate*dt))
	}
	c.cur.PressureHPa = c.weather.Pressure
}

// Current returns the air without advancing it.
func (c *Climate) Current() logic.Reading {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

// ToggleFault makes subsequent reads fail (or succeed again).
func (c *Climate) ToggleFault() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fault = !c.fault
	return c.fault
}

// Faulty reports whether a fault is injected.
func (c *Climate) Faulty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fault
}

// Close is a no-op.
func (c *Climate) Close() error { return nil }

// Greenhouse bundles the simulated hardware.
type Greenhouse struct {
	Panel   *Panel
	Relays  *Relays
	Climate *Climate
	LCD     *display.Fake
}

// New builds a greenhouse starting from start.
func New(w Weather, start logic.Reading) *Greenhouse {
	relays := &Relays{}
	return &Greenhouse{
		Panel:   &Panel{},
		Relays:  relays,
		Climate: NewClimate(relays, w, start, nil),
		LCD:     display.NewFake(),
	}
}
