// Package calendar keeps wall-clock time without a real-time clock.
// Time only moves when the caller ticks it, one second at a time.
// This package has NO external dependencies and performs no I/O.
package calendar

import "fmt"

// Calendar is a second-resolution date and time.
// Day never exceeds DaysInMonth(Month, Year).
type Calendar struct {
	Second uint8 // 0..59
	Minute uint8 // 0..59
	Hour   uint8 // 0..23
	Day    uint8 // 1..DaysInMonth
	Month  uint8 // 1..12
	Year   uint16
}

// New returns the power-on default: 00:00:00 on 01/01/2000.
func New() Calendar {
	return Calendar{Day: 1, Month: 1, Year: 2000}
}

// IsLeapYear reports whether year is a Gregorian leap year.
func IsLeapYear(year uint16) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInMonth returns the number of days in month of year.
func DaysInMonth(month uint8, year uint16) uint8 {
	switch month {
	case 2:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

// DaysInMonth returns the length of the calendar's current month.
func (c *Calendar) DaysInMonth() uint8 {
	return DaysInMonth(c.Month, c.Year)
}

// Tick advances the calendar by one second, carrying into larger units.
// Each carry step looks at the month as it is at that moment, so a single
// tick can cross a minute, hour, day, month and year boundary at once.
func (c *Calendar) Tick() {
	c.Second++
	if c.Second < 60 {
		return
	}
	c.Second = 0

	c.Minute++
	if c.Minute < 60 {
		return
	}
	c.Minute = 0

	c.Hour++
	if c.Hour < 24 {
		return
	}
	c.Hour = 0

	c.Day++
	if c.Day <= c.DaysInMonth() {
		return
	}
	c.Day = 1

	c.Month++
	if c.Month <= 12 {
		return
	}
	c.Month = 1
	// Year wraps at the uint16 limit; nobody will be around to notice.
	c.Year++
}

// FormatTime returns the time as HH:MM:SS.
func (c Calendar) FormatTime() string {
	return fmt.Sprintf("%s:%s:%s", Pad(c.Hour), Pad(c.Minute), Pad(c.Second))
}

// FormatDate returns the date as DD/MM/YYYY. The year is printed as-is.
func (c Calendar) FormatDate() string {
	return fmt.Sprintf("%s/%s/%d", Pad(c.Day), Pad(c.Month), c.Year)
}

// String returns "DD/MM/YYYY HH:MM:SS".
func (c Calendar) String() string {
	return c.FormatDate() + " " + c.FormatTime()
}

// MinutesSinceMidnight returns Hour*60 + Minute.
func (c Calendar) MinutesSinceMidnight() uint16 {
	return uint16(c.Hour)*60 + uint16(c.Minute)
}

// Pad renders v in decimal with a leading zero when v < 10.
// Values of 100 and above are printed without special handling.
func Pad(v uint8) string {
	if v < 10 {
		return fmt.Sprintf("0%d", v)
	}
	return fmt.Sprintf("%d", v)
}

// StepDay returns the next day within the current month, wrapping at both ends.
func (c *Calendar) StepDay(up bool) uint8 {
	return Step(c.Day, 1, c.DaysInMonth(), up)
}

// StepMinute moves the minute by one, wrapping 59 <-> 0.
func (c *Calendar) StepMinute(up bool) {
	c.Minute = Step(c.Minute, 0, 59, up)
}

// StepHour moves the hour by one, wrapping 23 <-> 0.
func (c *Calendar) StepHour(up bool) {
	c.Hour = Step(c.Hour, 0, 23, up)
}

// StepMonth moves the month by one, wrapping 12 <-> 1, and pulls the day
// back into range if the new month is shorter.
func (c *Calendar) StepMonth(up bool) {
	c.Month = Step(c.Month, 1, 12, up)
	c.clampDay()
}

// StepYear moves the year by one. Incrementing is unbounded; decrementing
// stops at zero. Feb 29 becomes Feb 28 when leaving a leap year.
func (c *Calendar) StepYear(up bool) {
	if up {
		c.Year++
	} else if c.Year != 0 {
		c.Year--
	}
	c.clampDay()
}

func (c *Calendar) clampDay() {
	if n := c.DaysInMonth(); c.Day > n {
		c.Day = n
	}
	if c.Day == 0 {
		c.Day = 1
	}
}
