// Package mqtt publishes controller events and lifecycle messages to an MQTT
// broker, buffering while the connection is down.
package mqtt

import (
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/greenhouse/internal/telemetry"
)

// Default topics.
const (
	Topic       = "greenhouse/controller/events"
	TopicSystem = "greenhouse/controller/system"
)

// DefaultBufferSize is how many messages are held while disconnected.
const DefaultBufferSize = 500

// Config holds broker connection settings.
type Config struct {
	Broker      string
	ClientID    string // empty = "greenhouse-" + random suffix
	Topic       string
	TopicSystem string
	BufferSize  int
}

func (c Config) withDefaults() Config {
	if c.ClientID == "" {
		c.ClientID = "greenhouse-" + uuid.NewString()[:8]
	}
	if c.Topic == "" {
		c.Topic = Topic
	}
	if c.TopicSystem == "" {
		c.TopicSystem = TopicSystem
	}
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	return c
}

// WillPayload is the retained last-will message the broker publishes if the
// controller drops off without a clean shutdown.
func WillPayload(now time.Time) []byte {
	payload, _ := telemetry.FormatSystemPayload(telemetry.SystemEvent{
		Timestamp: now,
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	return payload
}
