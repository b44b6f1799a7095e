// Package edit implements the operator's field-by-field editing of one
// preference group. A Session is a pure state machine: the controller owns
// the cadence, rendering and clock ticking, and feeds sampled button levels
// into Apply.
package edit

import (
	"fmt"

	"github.com/sweeney/greenhouse/internal/calendar"
	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/prefs"
)

// Buttons is one sample of the three navigation button levels.
type Buttons struct {
	Up     bool
	Down   bool
	Select bool
}

// Cursor is where the blinking marker sits on the second display line.
type Cursor int

const (
	CursorLeft   Cursor = iota // editing the first/lower component
	CursorRight                // editing the second/upper component
	CursorCentre               // editing a single date component
)

// Column returns the display column for a 16-column display.
func (c Cursor) Column() int {
	switch c {
	case CursorRight:
		return 15
	case CursorCentre:
		return 7
	}
	return 0
}

// View is what the display should show for the active field.
type View struct {
	Text   string
	Cursor Cursor
}

// field describes one editable value.
type field struct {
	name   string
	cursor Cursor
	render func(p *prefs.Preferences) string
	step   func(p *prefs.Preferences, up bool)
}

// group is the ordered set of fields behind one screen.
type group struct {
	fields []field
	// commit restores the group's ordering invariant.
	commit func(p *prefs.Preferences)
	// watering groups materialise a default window before the first edit
	// and can be cleared with UP+DOWN.
	watering bool
}

// Session edits one preference group in place.
type Session struct {
	screen  logic.Screen
	p       *prefs.Preferences
	g       group
	index   int
	done    bool
	dirty   bool
	cleared bool
}

// New starts a session for screen. It returns false for screens with nothing
// to edit.
func New(screen logic.Screen, p *prefs.Preferences) (*Session, bool) {
	g, ok := groupFor(screen)
	if !ok {
		return nil, false
	}
	return &Session{screen: screen, p: p, g: g, dirty: true}, true
}

// Screen returns the screen the session edits.
func (s *Session) Screen() logic.Screen { return s.screen }

// Done reports whether the session has committed.
func (s *Session) Done() bool { return s.done }

// Cleared reports whether the session ended by clearing the watering window.
func (s *Session) Cleared() bool { return s.cleared }

// Field returns the index and name of the active field.
func (s *Session) Field() (int, string) {
	if s.index >= len(s.g.fields) {
		return s.index, ""
	}
	return s.index, s.g.fields[s.index].name
}

// Dirty reports whether the view changed since the last MarkRendered.
func (s *Session) Dirty() bool { return s.dirty }

// MarkRendered records that the current view has been drawn.
func (s *Session) MarkRendered() { s.dirty = false }

// View returns the text and cursor for the active field.
func (s *Session) View() View {
	f := s.g.fields[s.clampedIndex()]
	return View{Text: f.render(s.p), Cursor: f.cursor}
}

func (s *Session) clampedIndex() int {
	if s.index >= len(s.g.fields) {
		return len(s.g.fields) - 1
	}
	return s.index
}

// Apply feeds one button sample. UP+DOWN together (watering only) clears the
// window and commits; otherwise UP takes priority over DOWN over SELECT.
func (s *Session) Apply(b Buttons) {
	if s.done {
		return
	}

	if s.g.watering && b.Up && b.Down {
		s.p.Watering = prefs.NoWatering()
		s.cleared = true
		s.commit()
		return
	}

	switch {
	case b.Up || b.Down:
		if s.g.watering && !s.p.Watering.Present() {
			s.p.Watering = prefs.DefaultWateringWindow()
		} else {
			s.g.fields[s.index].step(s.p, b.Up)
		}
		s.dirty = true
	case b.Select:
		s.index++
		s.dirty = true
		if s.index >= len(s.g.fields) {
			s.commit()
		}
	}
}

func (s *Session) commit() {
	if s.g.commit != nil {
		s.g.commit(s.p)
	}
	s.done = true
	s.dirty = true
}

func groupFor(screen logic.Screen) (group, bool) {
	switch screen {
	case logic.ScreenTemperature:
		return rangeGroup(
			func(p *prefs.Preferences) *prefs.ThresholdRange { return &p.Temperature },
			prefs.TemperatureMin, prefs.TemperatureMax, "%d - %d"), true
	case logic.ScreenHumidity:
		return rangeGroup(
			func(p *prefs.Preferences) *prefs.ThresholdRange { return &p.Humidity },
			prefs.HumidityMin, prefs.HumidityMax, "%d%% - %d%%"), true
	case logic.ScreenDateTime:
		return dateGroup(), true
	case logic.ScreenWatering:
		return wateringGroup(), true
	}
	return group{}, false
}

func rangeGroup(sel func(*prefs.Preferences) *prefs.ThresholdRange, min, max uint8, format string) group {
	render := func(p *prefs.Preferences) string {
		r := sel(p)
		return fmt.Sprintf(format, r.Low, r.High)
	}
	return group{
		fields: []field{
			{name: "low", cursor: CursorLeft, render: render, step: func(p *prefs.Preferences, up bool) {
				r := sel(p)
				r.Low = calendar.Clamp(r.Low, min, max, up)
			}},
			{name: "high", cursor: CursorRight, render: render, step: func(p *prefs.Preferences, up bool) {
				r := sel(p)
				r.High = calendar.Clamp(r.High, min, max, up)
			}},
		},
		commit: func(p *prefs.Preferences) { sel(p).Normalize() },
	}
}

func dateGroup() group {
	dateField := func(name, label string, get func(c *calendar.Calendar) uint, step func(c *calendar.Calendar, up bool)) field {
		return field{
			name:   name,
			cursor: CursorCentre,
			render: func(p *prefs.Preferences) string { return fmt.Sprintf("%s: %d", label, get(&p.Clock)) },
			step:   func(p *prefs.Preferences, up bool) { step(&p.Clock, up) },
		}
	}
	return group{
		fields: []field{
			dateField("minute", "Minute",
				func(c *calendar.Calendar) uint { return uint(c.Minute) },
				(*calendar.Calendar).StepMinute),
			dateField("hour", "Hour",
				func(c *calendar.Calendar) uint { return uint(c.Hour) },
				(*calendar.Calendar).StepHour),
			dateField("day", "Day",
				func(c *calendar.Calendar) uint { return uint(c.Day) },
				func(c *calendar.Calendar, up bool) { c.Day = c.StepDay(up) }),
			dateField("month", "Month",
				func(c *calendar.Calendar) uint { return uint(c.Month) },
				(*calendar.Calendar).StepMonth),
			dateField("year", "Year",
				func(c *calendar.Calendar) uint { return uint(c.Year) },
				(*calendar.Calendar).StepYear),
		},
	}
}

func wateringGroup() group {
	render := func(p *prefs.Preferences) string { return p.Watering.String() }
	wf := func(name string, cursor Cursor, f prefs.WateringField) field {
		return field{
			name:   name,
			cursor: cursor,
			render: render,
			step:   func(p *prefs.Preferences, up bool) { p.Watering.Step(f, up) },
		}
	}
	return group{
		fields: []field{
			wf("start hour", CursorLeft, prefs.StartHour),
			wf("start minute", CursorLeft, prefs.StartMinute),
			wf("end hour", CursorRight, prefs.EndHour),
			wf("end minute", CursorRight, prefs.EndMinute),
		},
		commit:   func(p *prefs.Preferences) { p.Watering.Normalize() },
		watering: true,
	}
}
