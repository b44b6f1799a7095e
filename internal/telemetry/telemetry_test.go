package telemetry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/greenhouse/internal/calendar"
	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/prefs"
)

func TestFormatPayload(t *testing.T) {
	clock := calendar.New()
	clock.Second = 5
	event := logic.Event{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Type:      logic.EventVentOpen,
		Clock:     clock,
		Actuators: logic.Actuators{Vent: logic.VentOpen, Sprinklers: logic.StateOff, Buzzer: logic.StateOff},
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"greenhouse":{"timestamp":"2026-02-02T22:18:12Z","event":"VENT_OPEN","clock":"01/01/2000 00:00:05","vent":"OPEN","sprinklers":"OFF","buzzer":"OFF"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadReading(t *testing.T) {
	event := logic.Event{
		Timestamp: time.Now(),
		Type:      logic.EventReading,
		Actuators: logic.Idle(),
		Reading:   &logic.Reading{TemperatureF: 72.5, HumidityPct: 61, PressureHPa: 1012.4},
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	r := parsed.Greenhouse.Reading
	if r == nil {
		t.Fatal("expected reading")
	}
	if r.TemperatureF != 72.5 || r.HumidityPct != 61 || r.PressureHPa != 1012.4 {
		t.Errorf("unexpected reading: %+v", r)
	}
	if parsed.Greenhouse.Preferences != nil {
		t.Error("preferences should be omitted")
	}
}

func TestFormatPayloadPreferences(t *testing.T) {
	p := prefs.Default()
	event := logic.Event{Timestamp: time.Now(), Type: logic.EventPreferencesChanged, Preferences: &p}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed map[string]map[string]interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	pp, ok := parsed["greenhouse"]["preferences"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected preferences object, got %v", parsed["greenhouse"]["preferences"])
	}
	if w, exists := pp["watering"]; !exists || w != nil {
		t.Errorf("absent watering should be null, got %v (exists=%v)", w, exists)
	}

	p.Watering = prefs.NewWateringWindow(prefs.TimeOfDay{Hour: 22}, prefs.TimeOfDay{Hour: 23, Minute: 30})
	got := NewPreferencesPayload(p)
	if got.Watering == nil || got.Watering.Start != "22:00" || got.Watering.End != "23:30" {
		t.Errorf("watering: got %+v", got.Watering)
	}
	if got.Temperature != (RangePayload{Low: 60, High: 80}) {
		t.Errorf("temperature: got %+v", got.Temperature)
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	event := logic.Event{
		Timestamp: time.Date(2026, 2, 2, 17, 0, 0, 0, loc),
		Type:      logic.EventFireAlarm,
	}

	payload, _ := FormatPayload(event)
	var parsed Payload
	json.Unmarshal(payload, &parsed)

	if parsed.Greenhouse.Timestamp != "2026-02-02T22:00:00Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Greenhouse.Timestamp)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"MQTT_DISCONNECT"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadOmitsReason(t *testing.T) {
	payload, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	})

	expected := `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("got %s, want raw payload", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	if err := f.Publish(logic.Event{Timestamp: time.Now(), Type: logic.EventSprinklersOn}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Events) != 1 || len(f.Payloads) != 1 {
		t.Fatalf("expected 1 event and payload, got %d/%d", len(f.Events), len(f.Payloads))
	}
	if len(f.SystemEvents) != 1 || !f.SystemEvents[0].Retained {
		t.Errorf("unexpected system events: %+v", f.SystemEvents)
	}

	f.PublishError = errors.New("simulated error")
	if err := f.Publish(logic.Event{}); err == nil {
		t.Error("expected error")
	}
	if len(f.Events) != 1 {
		t.Errorf("failed publish should not record, got %d events", len(f.Events))
	}

	f.Reset()
	if len(f.Events) != 0 || len(f.SystemEvents) != 0 || f.PublishError != nil {
		t.Error("Reset should clear everything")
	}
}
