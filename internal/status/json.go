package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/greenhouse/internal/telemetry"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string                        `json:"event,omitempty"`
	Reason        string                        `json:"reason,omitempty"`
	Ready         bool                          `json:"ready"`
	Vent          string                        `json:"vent"`
	Sprinklers    string                        `json:"sprinklers"`
	Buzzer        string                        `json:"buzzer"`
	FireAlarm     bool                          `json:"fire_alarm"`
	SensorFatal   bool                          `json:"sensor_fatal"`
	SensorFaults  int                           `json:"sensor_faults"`
	LastFault     string                        `json:"last_fault,omitempty"`
	Clock         string                        `json:"clock"`
	Reading       *telemetry.ReadingPayload     `json:"reading,omitempty"`
	Preferences   *telemetry.PreferencesPayload `json:"preferences"`
	LastEvent     string                        `json:"last_event,omitempty"`
	LastEventAt   string                        `json:"last_event_at,omitempty"`
	UptimeSeconds int64                         `json:"uptime_seconds"`
	StartTime     string                        `json:"start_time"`
	Timestamp     string                        `json:"timestamp"`
	MQTT          MQTTStatus                    `json:"mqtt"`
	Counts        CountsJSON                    `json:"event_counts"`
	Network       *NetworkJSON                  `json:"network,omitempty"`
	Config        ConfigJSON                    `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	VentOpen      int `json:"vent_open"`
	VentClosed    int `json:"vent_closed"`
	SprinklersOn  int `json:"sprinklers_on"`
	SprinklersOff int `json:"sprinklers_off"`
	FireAlarms    int `json:"fire_alarms"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	BaseTickMs  int64  `json:"base_tick_ms"`
	PollTicks   int    `json:"poll_ticks"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	Topic       string `json:"topic,omitempty"`
	Kafka       string `json:"kafka,omitempty"`
	HTTPAddr    string `json:"http_addr"`
	Journal     string `json:"journal,omitempty"`
	WSBroker    string `json:"ws_broker,omitempty"`
}

func orUnknown(s string) string {
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Ready:         snap.Ready,
		Vent:          orUnknown(string(snap.Actuators.Vent)),
		Sprinklers:    orUnknown(string(snap.Actuators.Sprinklers)),
		Buzzer:        orUnknown(string(snap.Actuators.Buzzer)),
		FireAlarm:     snap.FireAlarm,
		SensorFatal:   snap.SensorFatal,
		SensorFaults:  snap.SensorFaults,
		LastFault:     snap.LastFault,
		Clock:         snap.Clock.String(),
		Preferences:   telemetry.NewPreferencesPayload(snap.Preferences),
		LastEvent:     string(snap.LastEvent),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			VentOpen:      snap.Counts.VentOpen,
			VentClosed:    snap.Counts.VentClosed,
			SprinklersOn:  snap.Counts.SprinklersOn,
			SprinklersOff: snap.Counts.SprinklersOff,
			FireAlarms:    snap.Counts.FireAlarms,
		},
		Config: ConfigJSON{
			BaseTickMs:  snap.Config.BaseTickMs,
			PollTicks:   snap.Config.PollTicks,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			Topic:       snap.Config.Topic,
			Kafka:       snap.Config.Kafka,
			HTTPAddr:    snap.Config.HTTPAddr,
			Journal:     snap.Config.Journal,
			WSBroker:    snap.Config.WSBroker,
		},
	}
	if snap.Reading != nil {
		inner.Reading = telemetry.NewReadingPayload(*snap.Reading)
	}
	if !snap.LastEventAt.IsZero() {
		inner.LastEventAt = snap.LastEventAt.UTC().Format(time.RFC3339)
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for a system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
