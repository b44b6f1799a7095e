// Package status provides a thread-safe status tracker for the greenhouse daemon.
// It is fed from controller events and read by HTTP handlers and heartbeats.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/greenhouse/internal/calendar"
	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/prefs"
)

// NetworkInfo contains network state as reported by the host.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	BaseTickMs  int64
	PollTicks   int
	HeartbeatMs int64
	Broker      string
	Topic       string
	Kafka       string
	HTTPAddr    string
	Journal     string
	WSBroker    string // Websocket broker URL for browser MQTT (empty = disabled)
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Actuators     logic.Actuators
	Ready         bool // a sensor reading has been taken
	Reading       *logic.Reading
	Preferences   prefs.Preferences
	Clock         calendar.Calendar
	FireAlarm     bool
	SensorFatal   bool
	SensorFaults  int
	LastFault     string
	LastEvent     logic.EventType
	LastEventAt   time.Time
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time, config and
// power-on preferences.
func NewTracker(startTime time.Time, cfg Config, p prefs.Preferences) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime:   startTime,
			Config:      cfg,
			Preferences: p,
			Clock:       p.Clock,
		},
	}
}

// Emit folds a controller event into the snapshot. It never blocks for
// longer than the lock is held, so the controller can call it directly.
func (t *Tracker) Emit(e logic.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &t.snap
	s.LastEvent = e.Type
	s.LastEventAt = e.Timestamp
	s.Clock = e.Clock
	if e.Actuators != (logic.Actuators{}) {
		s.Actuators = e.Actuators
	}

	switch e.Type {
	case logic.EventReading:
		if e.Reading != nil {
			r := *e.Reading
			s.Reading = &r
		}
		s.Ready = true
	case logic.EventVentOpen:
		s.Counts.VentOpen++
	case logic.EventVentClosed:
		s.Counts.VentClosed++
	case logic.EventSprinklersOn:
		s.Counts.SprinklersOn++
	case logic.EventSprinklersOff:
		s.Counts.SprinklersOff++
	case logic.EventFireAlarm:
		s.Counts.FireAlarms++
		s.FireAlarm = true
	case logic.EventFireCleared:
		s.FireAlarm = false
	case logic.EventPreferencesChanged:
		if e.Preferences != nil {
			s.Preferences = *e.Preferences
		}
	case logic.EventSensorFault:
		s.SensorFaults++
		s.LastFault = e.Detail
	case logic.EventSensorFatal:
		s.SensorFatal = true
		s.Ready = false
		s.LastFault = e.Detail
	}
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.Reading != nil {
		r := *s.Reading
		s.Reading = &r
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
