// Package controller sequences the greenhouse: a single cooperative loop that
// samples the buttons and smoke input every base tick, keeps the clock,
// polls the sensor, runs edit sessions and the fire interlock, and commands
// the actuators.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/greenhouse/internal/display"
	"github.com/sweeney/greenhouse/internal/edit"
	"github.com/sweeney/greenhouse/internal/gpio"
	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/prefs"
	"github.com/sweeney/greenhouse/internal/sensor"
)

// ErrSensorFatal is returned by Run when the sensor could not be configured.
var ErrSensorFatal = errors.New("sensor configuration failed")

// Hardware bundles the capabilities the controller drives.
type Hardware struct {
	Inputs  gpio.Reader
	Outputs gpio.Writer
	Display display.Display
	Sensor  sensor.Sensor
}

// Sleeper suspends the controller. Every wait in the loop goes through it.
type Sleeper interface {
	Sleep(d time.Duration)
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(time.Duration)

// Sleep calls f(d).
func (f SleeperFunc) Sleep(d time.Duration) { f(d) }

// Timing holds the loop's cadences.
type Timing struct {
	BaseTick      time.Duration // one pass of the main loop
	PollTicks     int           // base ticks per clock second and sensor poll
	CooldownTicks int           // base ticks between accepted navigation presses
	EditCadence   time.Duration // one pass of an edit session
	AlarmPeriod   time.Duration // one pass of the interlock loop
	FatalOn       time.Duration // buzzer on-time in the fatal alarm
	FatalOff      time.Duration // buzzer off-time in the fatal alarm
	Heartbeat     time.Duration // 0 disables heartbeats
}

// DefaultTiming matches the reference hardware.
func DefaultTiming() Timing {
	return Timing{
		BaseTick:      10 * time.Millisecond,
		PollTicks:     100,
		CooldownTicks: 50,
		EditCadence:   500 * time.Millisecond,
		AlarmPeriod:   time.Second,
		FatalOn:       500 * time.Millisecond,
		FatalOff:      time.Second,
		Heartbeat:     15 * time.Minute,
	}
}

// Sink receives controller events. Emit must not block.
type Sink interface {
	Emit(logic.Event)
}

// Sinks fans an event out to several sinks in order.
type Sinks []Sink

// Emit forwards e to every sink.
func (s Sinks) Emit(e logic.Event) {
	for _, sink := range s {
		sink.Emit(e)
	}
}

type nopSink struct{}

func (nopSink) Emit(logic.Event) {}

// Option configures a Controller.
type Option func(*Controller)

// WithTiming overrides the default cadences.
func WithTiming(t Timing) Option {
	return func(c *Controller) { c.timing = t }
}

// WithSleeper replaces time.Sleep.
func WithSleeper(s Sleeper) Option {
	return func(c *Controller) { c.sleep = s }
}

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithSink sets where events go.
func WithSink(s Sink) Option {
	return func(c *Controller) { c.sink = s }
}

// WithPreferences sets the power-on preferences.
func WithPreferences(p prefs.Preferences) Option {
	return func(c *Controller) { c.prefs = p }
}

// WithHeartbeat registers fn to be called from the loop every Timing.Heartbeat.
// fn must not block.
func WithHeartbeat(fn func(logic.HeartbeatData)) Option {
	return func(c *Controller) { c.onHeartbeat = fn }
}

// Controller owns the preferences, the current screen and the commanded
// actuators. It is not safe for concurrent use; all state lives on the
// goroutine that calls Run.
type Controller struct {
	hw          Hardware
	timing      Timing
	sleep       Sleeper
	now         func() time.Time
	sink        Sink
	onHeartbeat func(logic.HeartbeatData)

	prefs     prefs.Preferences
	screen    logic.Screen
	actuators logic.Actuators
	reading   logic.Reading
	interlock logic.Interlock
	detector  *logic.Detector

	waitTicks int // base ticks since the last poll
	cooldown  int
	faults    map[string]int
}

// New creates a controller for hw.
func New(hw Hardware, opts ...Option) *Controller {
	c := &Controller{
		hw:        hw,
		timing:    DefaultTiming(),
		sleep:     SleeperFunc(time.Sleep),
		now:       time.Now,
		sink:      nopSink{},
		prefs:     prefs.Default(),
		actuators: logic.Idle(),
		faults:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cooldown = c.timing.CooldownTicks
	c.detector = logic.NewDetector(c.now())
	return c
}

// Preferences returns a copy of the current preferences.
func (c *Controller) Preferences() prefs.Preferences { return c.prefs }

// Screen returns the current idle screen.
func (c *Controller) Screen() logic.Screen { return c.screen }

// Actuators returns the last commanded outputs.
func (c *Controller) Actuators() logic.Actuators { return c.actuators }

// Reading returns the last good sensor reading.
func (c *Controller) Reading() logic.Reading { return c.reading }

// Counts returns transition counts since startup.
func (c *Controller) Counts() logic.EventCounts { return c.detector.Counts() }

// Run configures the sensor and loops until ctx is cancelled.
//
// If the sensor cannot be configured Run sounds the fatal alarm until ctx is
// cancelled and returns an error wrapping ErrSensorFatal.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.hw.Sensor.Configure(); err != nil {
		log.Error().Err(err).Msg("sensor configuration failed")
		c.emit(logic.Event{Type: logic.EventSensorFatal, Detail: err.Error()})
		c.fatalAlarm(ctx)
		return fmt.Errorf("%w: %v", ErrSensorFatal, err)
	}

	c.command(logic.Idle())
	c.renderIdle()
	log.Info().Str("clock", c.prefs.Clock.String()).Msg("controller started")

	for {
		if ctx.Err() != nil {
			c.shutdown()
			return nil
		}
		c.step()
	}
}

// step runs one base tick.
func (c *Controller) step() {
	c.sleep.Sleep(c.timing.BaseTick)

	if c.cooldown > 0 {
		c.cooldown--
	}
	c.waitTicks++
	if c.waitTicks%c.timing.PollTicks == 0 {
		c.prefs.Tick()
	}

	in := c.readInputs()

	if in.Smoke {
		c.runInterlock()
		c.renderIdle()
		return
	}

	refresh := false
	switch {
	case in.Up, in.Down:
		if c.cooldown == 0 {
			c.screen = c.screen.Next(in.Up)
			c.cooldown = c.timing.CooldownTicks
			refresh = true
		}
	case in.Select:
		if c.cooldown == 0 {
			c.runEdit()
			c.cooldown = c.timing.CooldownTicks
			refresh = true
		}
	default:
		if c.waitTicks >= c.timing.PollTicks {
			c.waitTicks = 0
			c.poll()
			refresh = true
		}
	}

	if refresh {
		c.renderIdle()
	}
}

// poll reads the sensor and applies the control engine.
func (c *Controller) poll() {
	r, err := c.hw.Sensor.Read()
	if err != nil {
		c.fault("sensor", err)
		c.emit(logic.Event{Type: logic.EventSensorFault, Detail: err.Error()})
		r = c.reading
	} else {
		c.reading = r
	}
	c.emit(logic.Event{Type: logic.EventReading, Reading: &r})

	c.command(logic.Decide(r, &c.prefs, c.actuators))

	if c.onHeartbeat != nil {
		if hb := c.detector.CheckHeartbeat(c.now(), c.timing.Heartbeat); hb != nil {
			c.onHeartbeat(*hb)
		}
	}
}

// runEdit runs an edit session on the current screen until it commits.
// Smoke is not sampled while editing.
func (c *Controller) runEdit() {
	s, ok := edit.New(c.screen, &c.prefs)
	if !ok {
		return
	}
	log.Debug().Str("screen", s.Screen().String()).Msg("edit session started")

	tick := false
	for !s.Done() {
		if s.Dirty() {
			c.renderEdit(s.View())
			s.MarkRendered()
		}

		c.sleep.Sleep(c.timing.EditCadence)

		// Two passes make one second.
		if tick {
			c.prefs.Tick()
		}
		tick = !tick

		in := c.readInputs()
		s.Apply(edit.Buttons{Up: in.Up, Down: in.Down, Select: in.Select})
	}

	if err := c.hw.Display.SetBlink(false); err != nil {
		c.fault("display", err)
	}

	p := c.prefs
	detail := s.Screen().String()
	if s.Cleared() {
		detail += " cleared"
	}
	c.emit(logic.Event{Type: logic.EventPreferencesChanged, Preferences: &p, Detail: detail})
	log.Info().Str("screen", s.Screen().String()).
		Str("temperature", fmt.Sprintf("%d-%d", p.Temperature.Low, p.Temperature.High)).
		Str("humidity", fmt.Sprintf("%d-%d", p.Humidity.Low, p.Humidity.High)).
		Str("watering", p.Watering.String()).
		Str("clock", p.Clock.String()).
		Msg("preferences committed")
}

// runInterlock holds the fire alarm until the smoke input clears.
func (c *Controller) runInterlock() {
	a, _ := c.interlock.Update(true, c.actuators)
	c.detector.RecordFireAlarm()
	c.command(a)
	c.emit(logic.Event{Type: logic.EventFireAlarm})
	log.Warn().Str("prior_vent", string(c.interlock.PriorVent())).Msg("smoke detected, fire interlock engaged")

	if err := display.Show(c.hw.Display, FireText, ""); err != nil {
		c.fault("display", err)
	}

	for {
		c.sleep.Sleep(c.timing.AlarmPeriod)
		c.prefs.Tick()

		in, err := c.hw.Inputs.Read()
		if err != nil {
			// Without a reading the alarm holds.
			c.fault("inputs", err)
			continue
		}
		if !in.Smoke {
			break
		}
		a, _ = c.interlock.Update(true, c.actuators)
		c.command(a)
	}

	a, _ = c.interlock.Update(false, c.actuators)
	c.command(a)
	c.emit(logic.Event{Type: logic.EventFireCleared})
	log.Info().Str("vent", string(a.Vent)).Msg("smoke cleared, fire interlock released")
}

// fatalAlarm pulses the buzzer until ctx is cancelled.
func (c *Controller) fatalAlarm(ctx context.Context) {
	if err := display.Show(c.hw.Display, SensorErrorText, ""); err != nil {
		c.fault("display", err)
	}
	for ctx.Err() == nil {
		c.writeOutputs(gpio.Outputs{Buzzer: true})
		c.sleep.Sleep(c.timing.FatalOn)
		c.writeOutputs(gpio.Outputs{})
		if ctx.Err() != nil {
			break
		}
		c.sleep.Sleep(c.timing.FatalOff)
	}
	c.writeOutputs(gpio.Outputs{})
}

func (c *Controller) shutdown() {
	c.writeOutputs(gpio.Outputs{})
	if err := c.hw.Display.Clear(); err != nil {
		c.fault("display", err)
	}
	log.Info().Msg("controller stopped")
}

// command drives the outputs to a and reports any transitions.
func (c *Controller) command(a logic.Actuators) {
	c.actuators = a
	c.writeOutputs(Outputs(a))
	for _, e := range c.detector.Process(a, c.now()) {
		c.emit(e)
	}
}

// Outputs maps commanded actuators onto line levels.
func Outputs(a logic.Actuators) gpio.Outputs {
	return gpio.Outputs{
		Buzzer:     a.Buzzer == logic.StateOn,
		Vent:       a.Vent == logic.VentOpen,
		Sprinklers: a.Sprinklers == logic.StateOn,
	}
}

func (c *Controller) writeOutputs(o gpio.Outputs) {
	if err := c.hw.Outputs.Write(o); err != nil {
		c.fault("outputs", err)
	}
}

func (c *Controller) readInputs() gpio.Levels {
	in, err := c.hw.Inputs.Read()
	if err != nil {
		c.fault("inputs", err)
		return gpio.Levels{}
	}
	return in
}

// emit stamps e with the host time, controller clock and actuators.
func (c *Controller) emit(e logic.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = c.now()
	}
	e.Clock = c.prefs.Clock
	if e.Actuators == (logic.Actuators{}) {
		e.Actuators = c.actuators
	}
	c.sink.Emit(e)
}

// fault logs hardware errors, rate limited per source.
func (c *Controller) fault(source string, err error) {
	n := c.faults[source]
	c.faults[source] = n + 1
	if n%100 == 0 {
		log.Error().Err(err).Str("source", source).Int("count", n+1).Msg("hardware error")
	}
}
