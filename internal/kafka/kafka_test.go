package kafka

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/telemetry"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("write without deadline")
	}
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewPublisherValidation(t *testing.T) {
	if _, err := NewPublisher(Config{Topic: "t"}); err == nil {
		t.Error("expected error with no brokers")
	}
	if _, err := NewPublisher(Config{Brokers: []string{"localhost:9092"}}); err == nil {
		t.Error("expected error with no topic")
	}
	p, err := NewPublisher(Config{Brokers: []string{"localhost:9092"}, Topic: "greenhouse.events"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w := p.system.(*kafka.Writer); w.Topic != "greenhouse.events.system" {
		t.Errorf("system topic: got %q", w.Topic)
	}
	if string(p.key) != "greenhouse" {
		t.Errorf("default key: got %q", p.key)
	}
}

func TestPublishEvent(t *testing.T) {
	events, system := &fakeWriter{}, &fakeWriter{}
	p := newPublisher(events, system, "house-1")

	ts := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	if err := p.Publish(logic.Event{Timestamp: ts, Type: logic.EventFireAlarm}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(events.msgs) != 1 || len(system.msgs) != 0 {
		t.Fatalf("got %d event / %d system messages", len(events.msgs), len(system.msgs))
	}
	m := events.msgs[0]
	if string(m.Key) != "house-1" {
		t.Errorf("Key: got %q", m.Key)
	}
	if !m.Time.Equal(ts) {
		t.Errorf("Time: got %v", m.Time)
	}
	if !strings.Contains(string(m.Value), `"event":"FIRE_ALARM"`) {
		t.Errorf("Value: got %s", m.Value)
	}
}

func TestPublishSystem(t *testing.T) {
	events, system := &fakeWriter{}, &fakeWriter{}
	p := newPublisher(events, system, "")

	if err := p.PublishSystem(telemetry.SystemEvent{Timestamp: time.Now(), Event: "STARTUP"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(system.msgs) != 1 || !strings.Contains(string(system.msgs[0].Value), `"event":"STARTUP"`) {
		t.Errorf("unexpected system messages: %+v", system.msgs)
	}
}

func TestPublishErrorWrapped(t *testing.T) {
	cause := errors.New("leader not available")
	p := newPublisher(&fakeWriter{err: cause}, &fakeWriter{}, "")
	err := p.Publish(logic.Event{Type: logic.EventReading})
	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}

func TestClose(t *testing.T) {
	events, system := &fakeWriter{}, &fakeWriter{}
	p := newPublisher(events, system, "")
	if err := p.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !events.closed || !system.closed {
		t.Error("both writers should be closed")
	}
}

var _ telemetry.Publisher = (*Publisher)(nil)
