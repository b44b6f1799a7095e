package telemetry

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/greenhouse/internal/logic"
)

// DefaultQueueSize is the number of events buffered between the controller
// and the publishers.
const DefaultQueueSize = 256

// Dispatcher fans controller events out to publishers on its own goroutine.
// Emit never blocks; when the queue is full the event is dropped and counted.
type Dispatcher struct {
	pubs    []Publisher
	queue   chan logic.Event
	dropped atomic.Uint64
	once    sync.Once
	done    chan struct{}
}

// NewDispatcher creates a dispatcher with a queue of size events.
func NewDispatcher(size int, pubs ...Publisher) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Dispatcher{
		pubs:  pubs,
		queue: make(chan logic.Event, size),
		done:  make(chan struct{}),
	}
}

// Emit queues event for publishing.
func (d *Dispatcher) Emit(event logic.Event) {
	select {
	case d.queue <- event:
	default:
		if n := d.dropped.Add(1); n == 1 || n%100 == 0 {
			log.Warn().Str("event", string(event.Type)).Uint64("dropped", n).Msg("telemetry queue full, dropping event")
		}
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Run publishes queued events until ctx is cancelled, then drains whatever
// is left in the queue and returns.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case e := <-d.queue:
			d.publish(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-d.queue:
					d.publish(e)
				default:
					return
				}
			}
		}
	}
}

// Wait blocks until Run has returned.
func (d *Dispatcher) Wait() {
	<-d.done
}

// PublishSystem sends a system event to every publisher synchronously.
func (d *Dispatcher) PublishSystem(event SystemEvent) {
	for _, p := range d.pubs {
		if err := p.PublishSystem(event); err != nil {
			log.Error().Err(err).Str("event", event.Event).Msg("failed to publish system event")
		}
	}
}

// Close closes every publisher once.
func (d *Dispatcher) Close() error {
	var first error
	d.once.Do(func() {
		for _, p := range d.pubs {
			if err := p.Close(); err != nil && first == nil {
				first = err
			}
		}
	})
	return first
}

func (d *Dispatcher) publish(e logic.Event) {
	for _, p := range d.pubs {
		if err := p.Publish(e); err != nil {
			log.Error().Err(err).Str("event", string(e.Type)).Msg("failed to publish event")
		}
	}
}
