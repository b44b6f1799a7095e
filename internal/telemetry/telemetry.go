// Package telemetry formats controller events for external sinks and fans
// them out without blocking the control loop.
package telemetry

import (
	"encoding/json"
	"time"

	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/prefs"
)

// Publisher sends events to one external sink.
type Publisher interface {
	// Publish sends a controller event.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close releases the sink.
	Close() error
}

// ConnectionStatus reports whether a publisher's connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a process lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload is the JSON envelope for a controller event.
type Payload struct {
	Greenhouse GreenhousePayload `json:"greenhouse"`
}

// GreenhousePayload contains the event details.
type GreenhousePayload struct {
	Timestamp   string              `json:"timestamp"`
	Event       string              `json:"event"`
	Clock       string              `json:"clock"`
	Vent        string              `json:"vent"`
	Sprinklers  string              `json:"sprinklers"`
	Buzzer      string              `json:"buzzer"`
	Reading     *ReadingPayload     `json:"reading,omitempty"`
	Preferences *PreferencesPayload `json:"preferences,omitempty"`
	Detail      string              `json:"detail,omitempty"`
}

// ReadingPayload is a sensor sample.
type ReadingPayload struct {
	TemperatureF float64 `json:"temperature_f"`
	HumidityPct  float64 `json:"humidity_pct"`
	PressureHPa  float64 `json:"pressure_hpa"`
}

// RangePayload is a threshold range.
type RangePayload struct {
	Low  uint8 `json:"low"`
	High uint8 `json:"high"`
}

// WindowPayload is a present watering window.
type WindowPayload struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// PreferencesPayload is the operator's settings. Watering is null when no
// window is set.
type PreferencesPayload struct {
	Temperature RangePayload   `json:"temperature_f"`
	Humidity    RangePayload   `json:"humidity_pct"`
	Watering    *WindowPayload `json:"watering"`
}

// NewPreferencesPayload converts p for JSON output.
func NewPreferencesPayload(p prefs.Preferences) *PreferencesPayload {
	out := &PreferencesPayload{
		Temperature: RangePayload{Low: p.Temperature.Low, High: p.Temperature.High},
		Humidity:    RangePayload{Low: p.Humidity.Low, High: p.Humidity.High},
	}
	if start, end, ok := p.Watering.Bounds(); ok {
		out.Watering = &WindowPayload{Start: start.String(), End: end.String()}
	}
	return out
}

// NewReadingPayload converts r for JSON output.
func NewReadingPayload(r logic.Reading) *ReadingPayload {
	return &ReadingPayload{
		TemperatureF: r.TemperatureF,
		HumidityPct:  r.HumidityPct,
		PressureHPa:  r.PressureHPa,
	}
}

// FormatPayload creates the JSON payload for a controller event.
func FormatPayload(event logic.Event) ([]byte, error) {
	inner := GreenhousePayload{
		Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
		Event:      string(event.Type),
		Clock:      event.Clock.String(),
		Vent:       string(event.Actuators.Vent),
		Sprinklers: string(event.Actuators.Sprinklers),
		Buzzer:     string(event.Actuators.Buzzer),
		Detail:     event.Detail,
	}
	if event.Reading != nil {
		inner.Reading = NewReadingPayload(*event.Reading)
	}
	if event.Preferences != nil {
		inner.Preferences = NewPreferencesPayload(*event.Preferences)
	}
	return json.Marshal(Payload{Greenhouse: inner})
}

// SystemPayload is the JSON envelope for simple system events (LWT,
// RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
