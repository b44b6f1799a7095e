package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/telemetry"
)

// fakeToken is a completed paho token.
type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool {
	return !t.timeout
}
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient records publishes and lets tests flip the connection state.
type fakeClient struct {
	mu         sync.Mutex
	open       bool
	msgs       []published
	publishErr error
	timeout    bool
	disconnect bool
}

func (c *fakeClient) IsConnected() bool      { return c.IsConnectionOpen() }
func (c *fakeClient) IsConnectionOpen() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.open }
func (c *fakeClient) Connect() paho.Token    { return &fakeToken{} }
func (c *fakeClient) Disconnect(uint)        { c.mu.Lock(); c.disconnect = true; c.mu.Unlock() }
func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr == nil && !c.timeout {
		c.msgs = append(c.msgs, published{topic, qos, retained, payload.([]byte)})
	}
	return &fakeToken{err: c.publishErr, timeout: c.timeout}
}
func (c *fakeClient) Subscribe(string, byte, paho.MessageHandler) paho.Token { return &fakeToken{} }
func (c *fakeClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &fakeToken{}
}
func (c *fakeClient) Unsubscribe(...string) paho.Token           { return &fakeToken{} }
func (c *fakeClient) AddRoute(string, paho.MessageHandler)       {}
func (c *fakeClient) OptionsReader() paho.ClientOptionsReader    { return paho.ClientOptionsReader{} }
func (c *fakeClient) setOpen(open bool)                          { c.mu.Lock(); c.open = open; c.mu.Unlock() }
func (c *fakeClient) sent() []published                          { c.mu.Lock(); defer c.mu.Unlock(); return append([]published(nil), c.msgs...) }

var _ paho.Client = (*fakeClient)(nil)

func TestTopics(t *testing.T) {
	if Topic != "greenhouse/controller/events" {
		t.Errorf("unexpected topic: %s", Topic)
	}
	if TopicSystem != "greenhouse/controller/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
}

func TestConfigDefaults(t *testing.T) {
	c := Config{Broker: "tcp://localhost:1883"}.withDefaults()
	if !strings.HasPrefix(c.ClientID, "greenhouse-") || len(c.ClientID) != len("greenhouse-")+8 {
		t.Errorf("ClientID: got %q", c.ClientID)
	}
	if c.Topic != Topic || c.TopicSystem != TopicSystem {
		t.Errorf("topics: got %q %q", c.Topic, c.TopicSystem)
	}
	if c.BufferSize != DefaultBufferSize {
		t.Errorf("BufferSize: got %d", c.BufferSize)
	}

	c = Config{ClientID: "gh-1", Topic: "a", TopicSystem: "b", BufferSize: 3}.withDefaults()
	if c.ClientID != "gh-1" || c.Topic != "a" || c.TopicSystem != "b" || c.BufferSize != 3 {
		t.Errorf("explicit values overwritten: %+v", c)
	}
}

func TestWillPayloadFormat(t *testing.T) {
	payload := WillPayload(time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC))

	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"MQTT_DISCONNECT"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestPublishConnected(t *testing.T) {
	c := &fakeClient{open: true}
	p := newPublisher(c, Config{})

	event := logic.Event{Timestamp: time.Now(), Type: logic.EventSprinklersOn, Actuators: logic.Idle()}
	if err := p.Publish(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.PublishSystem(telemetry.SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := c.sent()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].topic != Topic || msgs[0].qos != 0 || msgs[0].retained {
		t.Errorf("event message: got %+v", msgs[0])
	}
	var parsed telemetry.Payload
	if err := json.Unmarshal(msgs[0].payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Greenhouse.Event != "SPRINKLERS_ON" {
		t.Errorf("event: got %s", parsed.Greenhouse.Event)
	}
	if msgs[1].topic != TopicSystem || msgs[1].qos != 1 || !msgs[1].retained {
		t.Errorf("system message: got %+v", msgs[1])
	}
}

func TestPublishBuffersWhileDisconnected(t *testing.T) {
	c := &fakeClient{}
	p := newPublisher(c, Config{BufferSize: 10})

	for _, et := range []logic.EventType{logic.EventVentOpen, logic.EventVentClosed} {
		if err := p.Publish(logic.Event{Timestamp: time.Now(), Type: et}); err != nil {
			t.Fatalf("buffered publish should not fail: %v", err)
		}
	}
	if p.Buffered() != 2 {
		t.Fatalf("Buffered: got %d, want 2", p.Buffered())
	}
	if len(c.sent()) != 0 {
		t.Fatal("nothing should reach the client while disconnected")
	}

	// First connect replays without a RECONNECTED announcement.
	c.setOpen(true)
	p.onConnect()

	msgs := c.sent()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 replayed messages, got %d", len(msgs))
	}
	if !strings.Contains(string(msgs[0].payload), "VENT_OPEN") || !strings.Contains(string(msgs[1].payload), "VENT_CLOSED") {
		t.Errorf("replay order wrong: %s / %s", msgs[0].payload, msgs[1].payload)
	}
	if p.Buffered() != 0 {
		t.Errorf("buffer should be empty after replay, got %d", p.Buffered())
	}
}

func TestReconnectAnnounced(t *testing.T) {
	c := &fakeClient{open: true}
	p := newPublisher(c, Config{})
	p.onConnect()

	c.setOpen(false)
	p.PublishSystem(telemetry.SystemEvent{Timestamp: time.Now(), Event: "HEARTBEAT"})
	c.setOpen(true)
	p.onConnect()

	msgs := c.sent()
	if len(msgs) != 2 {
		t.Fatalf("expected heartbeat replay plus RECONNECTED, got %d", len(msgs))
	}
	var parsed telemetry.SystemPayload
	if err := json.Unmarshal(msgs[1].payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.System.Event != "RECONNECTED" || msgs[1].topic != TopicSystem {
		t.Errorf("unexpected announcement: %s on %s", msgs[1].payload, msgs[1].topic)
	}
}

func TestPublishErrors(t *testing.T) {
	c := &fakeClient{open: true, publishErr: errors.New("not authorised")}
	p := newPublisher(c, Config{})
	if err := p.Publish(logic.Event{Type: logic.EventReading}); err == nil || !strings.Contains(err.Error(), "not authorised") {
		t.Errorf("expected wrapped publish error, got %v", err)
	}

	c = &fakeClient{open: true, timeout: true}
	p = newPublisher(c, Config{})
	if err := p.Publish(logic.Event{Type: logic.EventReading}); err == nil || err.Error() != "publish timeout" {
		t.Errorf("expected timeout, got %v", err)
	}
}

func TestIsConnectedAndClose(t *testing.T) {
	c := &fakeClient{}
	p := newPublisher(c, Config{})
	if p.IsConnected() {
		t.Error("should report disconnected")
	}
	c.setOpen(true)
	if !p.IsConnected() {
		t.Error("should report connected")
	}
	p.Close()
	if !c.disconnect {
		t.Error("Close should disconnect the client")
	}
}

var _ telemetry.Publisher = (*RealPublisher)(nil)
var _ telemetry.ConnectionStatus = (*RealPublisher)(nil)

func TestOutageKeepsTransitionsOverReadings(t *testing.T) {
	c := &fakeClient{}
	p := newPublisher(c, Config{BufferSize: 3})

	p.Publish(logic.Event{Timestamp: time.Now(), Type: logic.EventVentOpen})
	for i := 0; i < 5; i++ {
		p.Publish(logic.Event{Timestamp: time.Now(), Type: logic.EventReading})
	}
	p.Publish(logic.Event{Timestamp: time.Now(), Type: logic.EventFireAlarm})

	c.setOpen(true)
	p.onConnect()

	var got []string
	for _, m := range c.sent() {
		var parsed telemetry.Payload
		if err := json.Unmarshal(m.payload, &parsed); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		got = append(got, parsed.Greenhouse.Event)
	}
	want := []string{"VENT_OPEN", "READING", "FIRE_ALARM"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("replayed: got %v, want %v", got, want)
	}
}
