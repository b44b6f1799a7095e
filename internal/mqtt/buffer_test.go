package mqtt

import (
	"fmt"
	"testing"
)

func reading(n int) bufferedMsg {
	return bufferedMsg{topic: Topic, payload: []byte(fmt.Sprintf("R%d", n)), expendable: true}
}

func transition(name string) bufferedMsg {
	return bufferedMsg{topic: Topic, payload: []byte(name)}
}

func payloads(msgs []bufferedMsg) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = string(m.payload)
	}
	return out
}

func TestOutboxEviction(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		push     []bufferedMsg
		want     []string
		dropped  int
	}{
		{
			name:     "under capacity keeps order",
			capacity: 5,
			push:     []bufferedMsg{reading(1), transition("VENT_OPEN"), reading(2)},
			want:     []string{"R1", "VENT_OPEN", "R2"},
		},
		{
			name:     "readings evicted before transitions",
			capacity: 3,
			push:     []bufferedMsg{transition("VENT_OPEN"), reading(1), reading(2), transition("FIRE_ALARM")},
			want:     []string{"VENT_OPEN", "R2", "FIRE_ALARM"},
			dropped:  1,
		},
		{
			name:     "oldest reading goes first",
			capacity: 3,
			push:     []bufferedMsg{reading(1), reading(2), reading(3), reading(4), reading(5)},
			want:     []string{"R3", "R4", "R5"},
			dropped:  2,
		},
		{
			name:     "no readings evicts oldest",
			capacity: 2,
			push:     []bufferedMsg{transition("VENT_OPEN"), transition("VENT_CLOSED"), transition("SPRINKLERS_ON")},
			want:     []string{"VENT_CLOSED", "SPRINKLERS_ON"},
			dropped:  1,
		},
		{
			name:     "reading pushed onto transitions evicts the oldest",
			capacity: 2,
			push:     []bufferedMsg{transition("FIRE_ALARM"), transition("FIRE_CLEARED"), reading(1)},
			want:     []string{"FIRE_CLEARED", "R1"},
			dropped:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOutbox(tt.capacity)
			for _, m := range tt.push {
				o.push(m)
			}
			if o.dropped != tt.dropped {
				t.Errorf("dropped: got %d, want %d", o.dropped, tt.dropped)
			}
			got := payloads(o.drainAll())
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("drained: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutboxDrainResets(t *testing.T) {
	o := newOutbox(2)
	if got := o.drainAll(); got != nil {
		t.Errorf("empty drain: got %d items", len(got))
	}

	for i := 0; i < 4; i++ {
		o.push(reading(i))
	}
	if o.len() != 2 {
		t.Errorf("len: got %d, want 2", o.len())
	}
	o.drainAll()
	if o.len() != 0 || o.dropped != 0 {
		t.Errorf("after drain: len %d dropped %d", o.len(), o.dropped)
	}

	// A second cycle starts from scratch.
	o.push(transition("VENT_OPEN"))
	if got := payloads(o.drainAll()); len(got) != 1 || got[0] != "VENT_OPEN" {
		t.Errorf("second cycle: got %v", got)
	}
}

func TestOutboxPreservesFields(t *testing.T) {
	o := newOutbox(4)
	o.push(bufferedMsg{topic: TopicSystem, payload: []byte(`{"system":{}}`), qos: 1, retained: true})

	got := o.drainAll()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	m := got[0]
	if m.topic != TopicSystem || string(m.payload) != `{"system":{}}` || m.qos != 1 || !m.retained || m.expendable {
		t.Errorf("got %+v", m)
	}
}
