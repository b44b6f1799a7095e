package sim

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sweeney/greenhouse/internal/display"
	"github.com/sweeney/greenhouse/internal/gpio"
	"github.com/sweeney/greenhouse/internal/status"
)

const refreshInterval = 100 * time.Millisecond

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Smoke  key.Binding
	Fault  key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Smoke, k.Fault, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Select}, {k.Smoke, k.Fault, k.Quit}}
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Select: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "select")),
	Smoke:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "smoke")),
	Fault:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "sensor fault")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	lcdStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Background(lipgloss.Color("#9BBC0F")).
			Foreground(lipgloss.Color("#0F380F")).
			Padding(0, 1)
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).Width(12)
	onStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#50FA7B"))
	offStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4"))
	alarmStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the simulator's terminal UI. It reads the greenhouse and the
// status tracker; it never touches the controller directly.
type Model struct {
	gh      *Greenhouse
	tracker *status.Tracker
	keys    keyMap
	help    help.Model
}

// NewModel creates the UI for gh. tracker may be nil.
func NewModel(gh *Greenhouse, tracker *status.Tracker) Model {
	return Model{gh: gh, tracker: tracker, keys: keys, help: help.New()}
}

// Init starts the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles key presses and refresh ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	case tickMsg:
		return m, tick()
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			m.gh.Panel.Press(Up)
		case key.Matches(msg, m.keys.Down):
			m.gh.Panel.Press(Down)
		case key.Matches(msg, m.keys.Select):
			m.gh.Panel.Press(Select)
		case key.Matches(msg, m.keys.Smoke):
			m.gh.Panel.ToggleSmoke()
		case key.Matches(msg, m.keys.Fault):
			m.gh.Climate.ToggleFault()
		}
	}
	return m, nil
}

// View renders the LCD, the relays, the air and the controller status.
func (m Model) View() string {
	col, row, blink := m.gh.LCD.Cursor()
	lcd := lcdStyle.Render(renderLCD(m.gh.LCD.Lines(), col, row, blink))

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		lcd, " ",
		panelStyle.Render(m.relaysView(m.gh.Relays.Outputs())),
		" ",
		panelStyle.Render(m.climateView()),
	)

	parts := []string{titleStyle.Render("GREENHOUSE SIMULATOR"), top}
	if m.tracker != nil {
		parts = append(parts, panelStyle.Render(statusView(m.tracker.Snapshot())))
	}
	parts = append(parts, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
}

func (m Model) relaysView(o gpio.Outputs) string {
	vent := offStyle.Render("CLOSED")
	if o.Vent {
		vent = onStyle.Render("OPEN")
	}
	rows := []string{
		row("Vent", vent),
		row("Sprinklers", onOff(o.Sprinklers, onStyle)),
		row("Buzzer", onOff(o.Buzzer, alarmStyle)),
	}
	return strings.Join(rows, "\n")
}

func (m Model) climateView() string {
	r := m.gh.Climate.Current()
	sensor := onStyle.Render("OK")
	if m.gh.Climate.Faulty() {
		sensor = alarmStyle.Render("FAULT")
	}
	rows := []string{
		row("Air", fmt.Sprintf("%.1f°F  %.1f%%  %.0f hPa", r.TemperatureF, r.HumidityPct, r.PressureHPa)),
		row("Smoke", onOff(m.gh.Panel.Smoke(), alarmStyle)),
		row("Sensor", sensor),
	}
	return strings.Join(rows, "\n")
}

func statusView(s status.Snapshot) string {
	last := string(s.LastEvent)
	if last == "" {
		last = "-"
	}
	c := s.Counts
	rows := []string{
		row("Clock", s.Clock.String()),
		row("Last event", last),
		row("Counts", fmt.Sprintf("vent %d/%d  sprinklers %d/%d  fire %d",
			c.VentOpen, c.VentClosed, c.SprinklersOn, c.SprinklersOff, c.FireAlarms)),
	}
	if s.SensorFaults > 0 {
		rows = append(rows, row("Faults", alarmStyle.Render(fmt.Sprintf("%d (%s)", s.SensorFaults, s.LastFault))))
	}
	return strings.Join(rows, "\n")
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func onOff(on bool, style lipgloss.Style) string {
	if on {
		return style.Render("ON")
	}
	return offStyle.Render("OFF")
}

// renderLCD draws the two display lines, marking the blinking cursor cell.
func renderLCD(lines [display.Rows]string, col, row int, blink bool) string {
	out := make([]string, display.Rows)
	for r, l := range lines {
		l = display.Fit(l)
		if blink && r == row && col >= 0 && col < display.Columns {
			l = l[:col] + "█" + l[col+1:]
		}
		out[r] = l
	}
	return strings.Join(out, "\n")
}
