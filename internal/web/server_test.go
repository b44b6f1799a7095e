package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/greenhouse/internal/journal"
	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/prefs"
	"github.com/sweeney/greenhouse/internal/status"
)

type failingEvents struct{}

func (failingEvents) Recent(int) ([]journal.Entry, error) { return nil, errors.New("db locked") }

func (failingEvents) ByEvent(string, int) ([]journal.Entry, error) {
	return nil, errors.New("db locked")
}

func newTestServer(t *testing.T, events EventSource) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		BaseTickMs:  10,
		PollTicks:   100,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		Topic:       "greenhouse/controller/events",
		HTTPAddr:    ":80",
	}
	tr := status.NewTracker(start, cfg, prefs.Default())
	srv := New(":0", tr, events)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode JSON: %v", err)
		}
	}
	return resp
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t, nil)
	tr.Emit(logic.Event{
		Type:      logic.EventReading,
		Actuators: logic.Actuators{Vent: logic.VentOpen, Sprinklers: logic.StateOff, Buzzer: logic.StateOff},
		Reading:   &logic.Reading{TemperatureF: 84, HumidityPct: 65, PressureHPa: 1010},
	})
	tr.Emit(logic.Event{Type: logic.EventVentOpen})
	tr.SetMQTTConnected(true)

	var sj status.StatusJSON
	resp := getJSON(t, ts.URL+"/index.json", &sj)

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	if sj.Status.Vent != "OPEN" {
		t.Errorf("Vent: got %q, want OPEN", sj.Status.Vent)
	}
	if !sj.Status.Ready {
		t.Error("expected Ready=true")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q", sj.Status.MQTT.Broker)
	}
	if sj.Status.Counts.VentOpen != 1 {
		t.Errorf("Counts.VentOpen: got %d, want 1", sj.Status.Counts.VentOpen)
	}
	if sj.Status.Reading == nil || sj.Status.Reading.TemperatureF != 84 {
		t.Errorf("Reading: got %+v", sj.Status.Reading)
	}
	if sj.Status.Config.PollTicks != 100 {
		t.Errorf("Config.PollTicks: got %d, want 100", sj.Status.Config.PollTicks)
	}
}

func TestJSONUnknownStateBeforeFirstEvent(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	var sj status.StatusJSON
	getJSON(t, ts.URL+"/index.json", &sj)

	if sj.Status.Vent != "UNKNOWN" {
		t.Errorf("Vent before first event: got %q, want UNKNOWN", sj.Status.Vent)
	}
	if sj.Status.Ready {
		t.Error("expected Ready=false before the first reading")
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr := newTestServer(t, nil)
	tr.SetNetwork(&status.NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"})

	var sj status.StatusJSON
	getJSON(t, ts.URL+"/index.json", &sj)

	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t, nil)
	tr.Emit(logic.Event{Type: logic.EventFireAlarm, Actuators: logic.Actuators{Vent: logic.VentClosed, Sprinklers: logic.StateOn, Buzzer: logic.StateOn}})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"FIRE ALARM", "60 - 80", "None", "CLOSED"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("page should contain %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `id="fire" class="banner hidden"`) {
		t.Error("fire banner should be hidden without an alarm")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp := getJSON(t, ts.URL+"/nonexistent", nil)
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}

	// No journal, no events route.
	resp = getJSON(t, ts.URL+"/events.json", nil)
	if resp.StatusCode != 404 {
		t.Errorf("/events.json without journal: got %d, want 404", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	ts, tr := newTestServer(t, nil)

	var body map[string]any
	resp := getJSON(t, ts.URL+"/health", &body)
	if resp.StatusCode != 200 || body["status"] != "ok" {
		t.Errorf("healthy: got %d %v", resp.StatusCode, body)
	}

	tr.Emit(logic.Event{Type: logic.EventSensorFatal, Detail: "no device"})
	body = nil
	resp = getJSON(t, ts.URL+"/health", &body)
	if resp.StatusCode != http.StatusServiceUnavailable || body["status"] != "sensor_fatal" {
		t.Errorf("fatal: got %d %v", resp.StatusCode, body)
	}
}

func TestEventsEndpoint(t *testing.T) {
	j, err := journal.Open(":memory:")
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	for i, et := range []logic.EventType{logic.EventVentOpen, logic.EventReading, logic.EventVentClosed} {
		if err := j.Publish(logic.Event{Type: et, Timestamp: base.Add(time.Duration(i) * time.Second), Actuators: logic.Idle()}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	ts, _ := newTestServer(t, j)

	var all struct {
		Events []journal.Entry `json:"events"`
	}
	getJSON(t, ts.URL+"/events.json", &all)
	if len(all.Events) != 3 {
		t.Fatalf("events: got %d, want 3", len(all.Events))
	}
	if all.Events[0].Event != "VENT_CLOSED" {
		t.Errorf("newest first: got %s", all.Events[0].Event)
	}

	var limited struct {
		Events []journal.Entry `json:"events"`
	}
	getJSON(t, ts.URL+"/events.json?limit=1&event=VENT_OPEN", &limited)
	if len(limited.Events) != 1 || limited.Events[0].Event != "VENT_OPEN" {
		t.Errorf("filtered: got %+v", limited.Events)
	}

	resp := getJSON(t, ts.URL+"/events.json?limit=abc", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit: got %d, want 400", resp.StatusCode)
	}
}

func TestEventsEndpointJournalError(t *testing.T) {
	ts, _ := newTestServer(t, failingEvents{})

	resp := getJSON(t, ts.URL+"/events.json", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t, nil)

	var sj1 status.StatusJSON
	getJSON(t, ts.URL+"/index.json", &sj1)
	if sj1.Status.Ready {
		t.Error("expected Ready=false initially")
	}

	p := prefs.Default()
	p.Humidity = prefs.ThresholdRange{Low: 40, High: 90}
	tr.Emit(logic.Event{Type: logic.EventReading, Reading: &logic.Reading{HumidityPct: 50}})
	tr.Emit(logic.Event{Type: logic.EventPreferencesChanged, Preferences: &p})
	tr.SetMQTTConnected(true)

	var sj2 status.StatusJSON
	getJSON(t, ts.URL+"/index.json", &sj2)

	if !sj2.Status.Ready {
		t.Error("expected Ready=true after a reading")
	}
	if sj2.Status.Preferences.Humidity.High != 90 {
		t.Errorf("Preferences.Humidity: got %+v", sj2.Status.Preferences.Humidity)
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}
