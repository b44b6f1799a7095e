// Package prefs holds the operator-edited settings of the greenhouse:
// the running calendar, acceptable temperature and humidity ranges, and an
// optional daily watering window.
package prefs

import (
	"fmt"

	"github.com/sweeney/greenhouse/internal/calendar"
)

// Edit bounds for the threshold ranges.
const (
	TemperatureMin uint8 = 0
	TemperatureMax uint8 = 120 // °F
	HumidityMin    uint8 = 0
	HumidityMax    uint8 = 100 // %
)

// ThresholdRange is an inclusive (Low, High) pair.
// After a committed edit Low <= High always holds.
type ThresholdRange struct {
	Low  uint8
	High uint8
}

// Normalize swaps the bounds if they are out of order.
func (r *ThresholdRange) Normalize() {
	if r.Low > r.High {
		r.Low, r.High = r.High, r.Low
	}
}

// Outside reports whether v lies strictly below Low or strictly above High.
func (r ThresholdRange) Outside(v uint8) bool {
	return v < r.Low || v > r.High
}

// TimeOfDay is an hour and minute within a day.
type TimeOfDay struct {
	Hour   uint8
	Minute uint8
}

// Minutes returns the minutes since midnight.
func (t TimeOfDay) Minutes() uint16 {
	return uint16(t.Hour)*60 + uint16(t.Minute)
}

func (t TimeOfDay) String() string {
	return calendar.Pad(t.Hour) + ":" + calendar.Pad(t.Minute)
}

// WateringWindow is an optional daily time range. The zero value is absent.
// Start and End are only meaningful when Present reports true.
type WateringWindow struct {
	set   bool
	start TimeOfDay
	end   TimeOfDay
}

// NoWatering returns an absent window.
func NoWatering() WateringWindow {
	return WateringWindow{}
}

// NewWateringWindow returns a present window from start to end.
func NewWateringWindow(start, end TimeOfDay) WateringWindow {
	return WateringWindow{set: true, start: start, end: end}
}

// DefaultWateringWindow is the window materialised when the operator starts
// editing an absent one: 00:00 - 01:00.
func DefaultWateringWindow() WateringWindow {
	return NewWateringWindow(TimeOfDay{0, 0}, TimeOfDay{1, 0})
}

// Present reports whether a window is set.
func (w WateringWindow) Present() bool { return w.set }

// Bounds returns the window's start and end and whether it is present.
func (w WateringWindow) Bounds() (start, end TimeOfDay, ok bool) {
	return w.start, w.end, w.set
}

// Normalize swaps start and end if start is later in the day than end.
func (w *WateringWindow) Normalize() {
	if w.set && w.start.Minutes() > w.end.Minutes() {
		w.start, w.end = w.end, w.start
	}
}

// Contains reports whether minutes-since-midnight m falls inside the window,
// inclusive on both bounds. An absent window contains nothing.
func (w WateringWindow) Contains(m uint16) bool {
	if !w.set {
		return false
	}
	return w.start.Minutes() <= m && m <= w.end.Minutes()
}

// String returns "HH:MM - HH:MM" or "None".
func (w WateringWindow) String() string {
	if !w.set {
		return "None"
	}
	return w.start.String() + " - " + w.end.String()
}

// Preferences is the single settings record owned by the controller.
type Preferences struct {
	Clock       calendar.Calendar
	Temperature ThresholdRange // °F
	Humidity    ThresholdRange // %RH
	Watering    WateringWindow
}

// Default returns power-on preferences: 60-80 °F, 60-70 %RH, no watering,
// clock at 00:00:00 01/01/2000.
func Default() Preferences {
	return Preferences{
		Clock:       calendar.New(),
		Temperature: ThresholdRange{Low: 60, High: 80},
		Humidity:    ThresholdRange{Low: 60, High: 70},
	}
}

// Tick advances the clock by one second.
func (p *Preferences) Tick() {
	p.Clock.Tick()
}

// IsWateringTime reports whether the current clock minute is inside the
// watering window. Seconds are ignored; both bounds are inclusive.
func (p *Preferences) IsWateringTime() bool {
	return p.Watering.Contains(p.Clock.MinutesSinceMidnight())
}

// Validate checks the ordering invariants hold.
func (p *Preferences) Validate() error {
	if p.Temperature.Low > p.Temperature.High {
		return fmt.Errorf("temperature range %d..%d out of order", p.Temperature.Low, p.Temperature.High)
	}
	if p.Humidity.Low > p.Humidity.High {
		return fmt.Errorf("humidity range %d..%d out of order", p.Humidity.Low, p.Humidity.High)
	}
	if p.Humidity.High > HumidityMax {
		return fmt.Errorf("humidity high %d above %d", p.Humidity.High, HumidityMax)
	}
	if p.Temperature.High > TemperatureMax {
		return fmt.Errorf("temperature high %d above %d", p.Temperature.High, TemperatureMax)
	}
	if start, end, ok := p.Watering.Bounds(); ok && start.Minutes() > end.Minutes() {
		return fmt.Errorf("watering window %s out of order", p.Watering)
	}
	return nil
}

// WateringField names one editable component of a watering window.
type WateringField int

const (
	StartHour WateringField = iota
	StartMinute
	EndHour
	EndMinute
)

// Step moves one component of a present window, wrapping hours at 24 and
// minutes at 60. It reports false and changes nothing if the window is absent.
func (w *WateringWindow) Step(field WateringField, up bool) bool {
	if !w.set {
		return false
	}
	switch field {
	case StartHour:
		w.start.Hour = calendar.Step(w.start.Hour, 0, 23, up)
	case StartMinute:
		w.start.Minute = calendar.Step(w.start.Minute, 0, 59, up)
	case EndHour:
		w.end.Hour = calendar.Step(w.end.Hour, 0, 23, up)
	case EndMinute:
		w.end.Minute = calendar.Step(w.end.Minute, 0, 59, up)
	default:
		return false
	}
	return true
}
