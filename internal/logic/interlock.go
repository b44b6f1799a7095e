package logic

// Transition is what an Interlock update did.
type Transition int

const (
	TransitionNone    Transition = iota
	TransitionAlarm              // Normal -> Alarm
	TransitionCleared            // Alarm -> Normal
)

// Interlock overrides normal control while smoke is detected.
//
// On entering the alarm it remembers the commanded vent position. While the
// alarm holds, sprinklers and buzzer are on and the vent is shut. When smoke
// clears, buzzer and sprinklers go off and the vent returns to the remembered
// position; nothing is recomputed from sensor data at that point.
type Interlock struct {
	alarm     bool
	priorVent VentState
}

// Active reports whether the alarm is currently held.
func (i *Interlock) Active() bool {
	return i.alarm
}

// PriorVent returns the vent position captured when the alarm was raised.
func (i *Interlock) PriorVent() VentState {
	return i.priorVent
}

// Update feeds one smoke sample and returns the actuators to command.
func (i *Interlock) Update(smoke bool, current Actuators) (Actuators, Transition) {
	switch {
	case smoke && !i.alarm:
		i.alarm = true
		i.priorVent = current.Vent
		return alarmOutputs(), TransitionAlarm
	case smoke:
		return alarmOutputs(), TransitionNone
	case i.alarm:
		i.alarm = false
		return Actuators{Vent: i.priorVent, Sprinklers: StateOff, Buzzer: StateOff}, TransitionCleared
	}
	return current, TransitionNone
}

func alarmOutputs() Actuators {
	return Actuators{Vent: VentClosed, Sprinklers: StateOn, Buzzer: StateOn}
}
