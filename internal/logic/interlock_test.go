package logic

import (
	"testing"

	"github.com/sweeney/greenhouse/internal/prefs"
)

func TestInterlockNormalPassesThrough(t *testing.T) {
	var il Interlock
	current := Actuators{Vent: VentOpen, Sprinklers: StateOn, Buzzer: StateOff}
	got, tr := il.Update(false, current)
	if tr != TransitionNone {
		t.Errorf("transition: got %v, want none", tr)
	}
	if got != current {
		t.Errorf("got %+v, want %+v", got, current)
	}
	if il.Active() {
		t.Error("should not be active")
	}
}

func TestInterlockAlarmForcesOutputs(t *testing.T) {
	var il Interlock
	got, tr := il.Update(true, Actuators{Vent: VentOpen, Sprinklers: StateOff, Buzzer: StateOff})
	if tr != TransitionAlarm {
		t.Errorf("transition: got %v, want alarm", tr)
	}
	want := Actuators{Vent: VentClosed, Sprinklers: StateOn, Buzzer: StateOn}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if !il.Active() {
		t.Error("should be active")
	}

	// Holding: same outputs, no new transition, prior vent unchanged.
	got, tr = il.Update(true, got)
	if tr != TransitionNone || got != want {
		t.Errorf("hold: got %+v %v", got, tr)
	}
	if il.PriorVent() != VentOpen {
		t.Errorf("PriorVent: got %s, want OPEN", il.PriorVent())
	}
}

func TestInterlockRestoresPriorVent(t *testing.T) {
	for _, prior := range []VentState{VentOpen, VentClosed} {
		t.Run(string(prior), func(t *testing.T) {
			var il Interlock
			p := prefs.Default()
			current := Actuators{Vent: prior, Sprinklers: StateOff, Buzzer: StateOff}

			current, _ = il.Update(true, current)

			// Readings during the alarm would flip the vent if they were used.
			for _, temp := range []float64{10, 120, 70} {
				current, _ = il.Update(true, Decide(Reading{TemperatureF: temp, HumidityPct: 65}, &p, current))
			}

			got, tr := il.Update(false, current)
			if tr != TransitionCleared {
				t.Errorf("transition: got %v, want cleared", tr)
			}
			want := Actuators{Vent: prior, Sprinklers: StateOff, Buzzer: StateOff}
			if got != want {
				t.Errorf("got %+v, want %+v", got, want)
			}
			if il.Active() {
				t.Error("should be back to normal")
			}
		})
	}
}

func TestScreenNext(t *testing.T) {
	if got := ScreenWatering.Next(true); got != ScreenTemperature {
		t.Errorf("Watering.Next(up): got %v", got)
	}
	if got := ScreenTemperature.Next(false); got != ScreenWatering {
		t.Errorf("Temperature.Next(down): got %v", got)
	}
	s := ScreenTemperature
	for i := 0; i < 5; i++ {
		s = s.Next(true)
	}
	if s != ScreenTemperature {
		t.Errorf("five steps should cycle back, got %v", s)
	}
	if ScreenDateTime.String() != "datetime" {
		t.Errorf("String: got %q", ScreenDateTime.String())
	}
}
