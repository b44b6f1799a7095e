package logic

import "github.com/sweeney/greenhouse/internal/prefs"

// Decide maps a sensor reading and the current preferences onto the vent and
// sprinklers. The buzzer is carried over from current untouched.
//
//   - vent opens when the temperature is outside the acceptable range
//   - sprinklers run when humidity is outside its range or it is watering time
func Decide(r Reading, p *prefs.Preferences, current Actuators) Actuators {
	next := current

	if p.Temperature.Outside(r.Temperature()) {
		next.Vent = VentOpen
	} else {
		next.Vent = VentClosed
	}

	if p.Humidity.Outside(r.Humidity()) || p.IsWateringTime() {
		next.Sprinklers = StateOn
	} else {
		next.Sprinklers = StateOff
	}

	return next
}
