// Package logic contains the pure decision logic of the greenhouse controller:
// screen navigation, the environmental control engine, the fire interlock and
// actuator transition tracking.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"math"
	"time"

	"github.com/sweeney/greenhouse/internal/calendar"
	"github.com/sweeney/greenhouse/internal/prefs"
)

// State is the logical state of an on/off actuator.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// VentState is the commanded position of the roof vent.
type VentState string

const (
	VentOpen   VentState = "OPEN"
	VentClosed VentState = "CLOSED"
)

// Actuators is the full set of commanded outputs.
type Actuators struct {
	Vent       VentState
	Sprinklers State
	Buzzer     State
}

// Idle is the power-on actuator state: everything off and closed.
func Idle() Actuators {
	return Actuators{Vent: VentClosed, Sprinklers: StateOff, Buzzer: StateOff}
}

// Reading is one sensor sample.
type Reading struct {
	TemperatureF float64
	HumidityPct  float64
	PressureHPa  float64
}

// Temperature returns the temperature in whole °F, truncated and clamped to 0..255.
func (r Reading) Temperature() uint8 {
	return wholeUint8(r.TemperatureF)
}

// Humidity returns the relative humidity in whole percent, truncated and clamped to 0..255.
func (r Reading) Humidity() uint8 {
	return wholeUint8(r.HumidityPct)
}

// Pressure returns the pressure in whole hPa (millibar).
func (r Reading) Pressure() uint16 {
	switch {
	case math.IsNaN(r.PressureHPa) || r.PressureHPa <= 0:
		return 0
	case r.PressureHPa >= math.MaxUint16:
		return math.MaxUint16
	}
	return uint16(r.PressureHPa)
}

func wholeUint8(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxUint8:
		return math.MaxUint8
	}
	return uint8(v)
}

// EventType identifies a controller event.
type EventType string

const (
	EventReading            EventType = "READING"
	EventVentOpen           EventType = "VENT_OPEN"
	EventVentClosed         EventType = "VENT_CLOSED"
	EventSprinklersOn       EventType = "SPRINKLERS_ON"
	EventSprinklersOff      EventType = "SPRINKLERS_OFF"
	EventFireAlarm          EventType = "FIRE_ALARM"
	EventFireCleared        EventType = "FIRE_CLEARED"
	EventPreferencesChanged EventType = "PREFERENCES_CHANGED"
	EventSensorFault        EventType = "SENSOR_FAULT"
	EventSensorFatal        EventType = "SENSOR_FATAL"
)

// Event is something the controller wants the outside world to know about.
type Event struct {
	Timestamp   time.Time         // host time when the event was raised
	Type        EventType
	Clock       calendar.Calendar // controller clock when the event was raised
	Actuators   Actuators
	Reading     *Reading           // set for READING
	Preferences *prefs.Preferences // set for PREFERENCES_CHANGED
	Detail      string             // free text, e.g. an error message
}

// EventCounts tracks the number of each transition since startup.
type EventCounts struct {
	VentOpen      int
	VentClosed    int
	SprinklersOn  int
	SprinklersOff int
	FireAlarms    int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
