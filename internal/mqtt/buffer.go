package mqtt

import "github.com/rs/zerolog/log"

// bufferedMsg is a serialized message held for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool

	// Periodic readings are expendable: a full outbox evicts them before
	// transitions, alarms or lifecycle messages.
	expendable bool
}

// outbox is a bounded FIFO of messages published while the broker was
// unreachable. When full, the oldest expendable message is evicted, or the
// oldest message if none is expendable.
// Not safe for concurrent use; caller must synchronize.
type outbox struct {
	msgs     []bufferedMsg
	capacity int
	dropped  int // evicted since the last drain
}

func newOutbox(capacity int) *outbox {
	return &outbox{msgs: make([]bufferedMsg, 0, capacity), capacity: capacity}
}

func (o *outbox) push(msg bufferedMsg) {
	if len(o.msgs) == o.capacity {
		victim := 0
		for i, m := range o.msgs {
			if m.expendable {
				victim = i
				break
			}
		}
		if o.dropped == 0 {
			log.Warn().Int("capacity", o.capacity).Str("topic", o.msgs[victim].topic).Msg("mqtt outbox full, evicting")
		}
		o.msgs = append(o.msgs[:victim], o.msgs[victim+1:]...)
		o.dropped++
	}
	o.msgs = append(o.msgs, msg)
}

// drainAll returns buffered messages oldest first and empties the outbox.
func (o *outbox) drainAll() []bufferedMsg {
	if len(o.msgs) == 0 {
		return nil
	}
	if o.dropped > 0 {
		log.Warn().Int("dropped", o.dropped).Msg("mqtt outbox overflowed while disconnected")
	}
	out := o.msgs
	o.msgs = make([]bufferedMsg, 0, o.capacity)
	o.dropped = 0
	return out
}

func (o *outbox) len() int {
	return len(o.msgs)
}
