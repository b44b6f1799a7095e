package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/telemetry"
)

const publishTimeout = 5 * time.Second

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client      paho.Client
	topic       string
	topicSystem string
	now         func() time.Time

	mu        sync.Mutex
	buf       *outbox
	connected bool // at least one successful connect so far
}

// NewRealPublisher creates a publisher and starts connecting in the
// background. Messages published before the first connection are buffered.
func NewRealPublisher(cfg Config) *RealPublisher {
	cfg = cfg.withDefaults()
	p := &RealPublisher{
		topic:       cfg.Topic,
		topicSystem: cfg.TopicSystem,
		now:         time.Now,
		buf:         newOutbox(cfg.BufferSize),
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(cfg.TopicSystem, WillPayload(time.Now()), 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Str("broker", cfg.Broker).Msg("mqtt connection lost")
		})

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

// newPublisher wraps an existing client. Used by tests.
func newPublisher(client paho.Client, cfg Config) *RealPublisher {
	cfg = cfg.withDefaults()
	return &RealPublisher{
		client:      client,
		topic:       cfg.Topic,
		topicSystem: cfg.TopicSystem,
		now:         time.Now,
		buf:         newOutbox(cfg.BufferSize),
	}
}

// onConnect replays buffered messages. Reconnects are announced.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	pending := p.buf.drainAll()
	p.mu.Unlock()

	log.Info().Int("buffered", len(pending)).Bool("reconnect", reconnect).Msg("mqtt connected")

	for _, m := range pending {
		if err := p.send(m); err != nil {
			log.Error().Err(err).Str("topic", m.topic).Msg("mqtt replay failed")
		}
	}

	if reconnect {
		payload, _ := telemetry.FormatSystemPayload(telemetry.SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"})
		if err := p.send(bufferedMsg{topic: p.topicSystem, payload: payload, qos: 1}); err != nil {
			log.Error().Err(err).Msg("mqtt reconnect announcement failed")
		}
	}
}

// Publish sends a controller event.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := telemetry.FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.publish(bufferedMsg{topic: p.topic, payload: payload, expendable: event.Type == logic.EventReading})
}

// PublishSystem sends a system lifecycle event.
func (p *RealPublisher) PublishSystem(event telemetry.SystemEvent) error {
	payload, err := telemetry.FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.publish(bufferedMsg{topic: p.topicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(m bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buf.push(m)
		p.mu.Unlock()
		return nil
	}
	return p.send(m)
}

func (p *RealPublisher) send(m bufferedMsg) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second quiesce
	return nil
}
