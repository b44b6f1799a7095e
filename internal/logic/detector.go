package logic

import "time"

// Detector turns the stream of commanded actuator states into transition
// events and keeps running counts for heartbeats.
type Detector struct {
	current       Actuators
	baselined     bool
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewDetector creates a transition detector.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(startTime time.Time) *Detector {
	return &Detector{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process takes the actuators just commanded and returns any transition
// events. The first call establishes the baseline and emits nothing.
// Vent transitions are reported before sprinkler transitions.
func (d *Detector) Process(a Actuators, now time.Time) []Event {
	if !d.baselined {
		d.current = a
		d.baselined = true
		return nil
	}

	var events []Event

	if a.Vent != d.current.Vent {
		t := EventVentClosed
		if a.Vent == VentOpen {
			t = EventVentOpen
			d.eventCounts.VentOpen++
		} else {
			d.eventCounts.VentClosed++
		}
		events = append(events, Event{Timestamp: now, Type: t, Actuators: a})
	}

	if a.Sprinklers != d.current.Sprinklers {
		t := EventSprinklersOff
		if a.Sprinklers == StateOn {
			t = EventSprinklersOn
			d.eventCounts.SprinklersOn++
		} else {
			d.eventCounts.SprinklersOff++
		}
		events = append(events, Event{Timestamp: now, Type: t, Actuators: a})
	}

	d.current = a
	return events
}

// RecordFireAlarm counts an interlock activation.
func (d *Detector) RecordFireAlarm() {
	d.eventCounts.FireAlarms++
}

// IsBaselined returns whether the detector has seen its first sample.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// Current returns the last actuators processed.
func (d *Detector) Current() Actuators {
	return d.current
}

// Counts returns a copy of the transition counters.
func (d *Detector) Counts() EventCounts {
	return d.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !d.baselined {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.eventCounts,
	}
}
