package logic

import "github.com/sweeney/greenhouse/internal/calendar"

// Screen selects which view is rendered on the idle display.
type Screen uint8

const (
	ScreenTemperature Screen = iota
	ScreenHumidity
	ScreenPressure
	ScreenDateTime
	ScreenWatering

	screenCount
)

// Next returns the neighbouring screen, cycling through all five.
func (s Screen) Next(up bool) Screen {
	return Screen(calendar.Step(uint8(s), 0, uint8(screenCount-1), up))
}

func (s Screen) String() string {
	switch s {
	case ScreenTemperature:
		return "temperature"
	case ScreenHumidity:
		return "humidity"
	case ScreenPressure:
		return "pressure"
	case ScreenDateTime:
		return "datetime"
	case ScreenWatering:
		return "watering"
	}
	return "unknown"
}
