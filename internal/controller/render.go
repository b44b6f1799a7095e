package controller

import (
	"fmt"

	"github.com/sweeney/greenhouse/internal/display"
	"github.com/sweeney/greenhouse/internal/edit"
	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/prefs"
)

// Fixed display texts.
const (
	FireText        = "Fire Present"
	SensorErrorText = "Sensor Error"
)

// IdleLines returns the two display lines for screen.
func IdleLines(screen logic.Screen, r logic.Reading, p *prefs.Preferences) (top, bottom string) {
	switch screen {
	case logic.ScreenTemperature:
		return fmt.Sprintf("Temp: %dF", r.Temperature()),
			fmt.Sprintf("(%d, %d)", p.Temperature.Low, p.Temperature.High)
	case logic.ScreenHumidity:
		return fmt.Sprintf("RH: %d%%", r.Humidity()),
			fmt.Sprintf("(%d%%, %d%%)", p.Humidity.Low, p.Humidity.High)
	case logic.ScreenPressure:
		return fmt.Sprintf("PRS: %d mb", r.Pressure()), ""
	case logic.ScreenDateTime:
		return p.Clock.FormatTime(), p.Clock.FormatDate()
	case logic.ScreenWatering:
		return p.Watering.String(), ""
	}
	return "", ""
}

func (c *Controller) renderIdle() {
	top, bottom := IdleLines(c.screen, c.reading, &c.prefs)
	if err := display.Show(c.hw.Display, top, bottom); err != nil {
		c.fault("display", err)
	}
}

// renderEdit shows the field value on line one and parks the blinking
// cursor on line two under the component being edited.
func (c *Controller) renderEdit(v edit.View) {
	d := c.hw.Display
	err := d.Clear()
	if err == nil {
		err = d.SetCursor(0, 0)
	}
	if err == nil {
		err = d.Write(v.Text)
	}
	if err == nil {
		err = d.SetCursor(v.Cursor.Column(), 1)
	}
	if err == nil {
		err = d.SetBlink(true)
	}
	if err != nil {
		c.fault("display", err)
	}
}
