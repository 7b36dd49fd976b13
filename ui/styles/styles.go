package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/maxlab/magnetpanel/internal/tango"
)

func PanelStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		Width(max(1, width-4))
}

func StatusStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Background(lipgloss.Color("235")).
		Padding(0, 1).
		Width(width)
}

func TabStyle(active bool) lipgloss.Style {
	s := lipgloss.NewStyle().Padding(0, 1)
	if active {
		return s.Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62"))
	}
	return s.Foreground(lipgloss.Color("245"))
}

func TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("141")).
		Bold(true).
		Padding(0, 2).
		Align(lipgloss.Center)
}

func HeaderStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
}

var stateColors = map[tango.State]lipgloss.Color{
	tango.StateOn:      "42",
	tango.StateOff:     "250",
	tango.StateFault:   "196",
	tango.StateAlarm:   "208",
	tango.StateRunning: "33",
	tango.StateStandby: "220",
	tango.StateMoving:  "75",
	tango.StateUnknown: "244",
}

func StateStyle(s tango.State) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Foreground(lipgloss.Color("16")).
		Background(stateColors[s])
}

func QualityStyle(q tango.Quality) lipgloss.Style {
	s := lipgloss.NewStyle()
	switch q {
	case tango.Invalid:
		return s.Foreground(lipgloss.Color("244")).Strikethrough(true)
	case tango.Alarm:
		return s.Foreground(lipgloss.Color("196"))
	case tango.Warning:
		return s.Foreground(lipgloss.Color("208"))
	case tango.Changing:
		return s.Foreground(lipgloss.Color("33"))
	}
	return s.Foreground(lipgloss.Color("252"))
}

func LabelStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
}

func SelectedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
}

func CursorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Reverse(true)
}

func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
}

func HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
}

func InfoLogStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Padding(0, 2)
}

func CommandLogStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(lipgloss.Color("39")).
		Padding(0, 1).
		MarginLeft(2)
}

func FailureLogStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(lipgloss.Color("196")).
		Padding(0, 1).
		MarginLeft(2)
}

func ConfirmStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(lipgloss.Color("208")).
		Padding(0, 1).
		Width(max(1, width-4))
}
