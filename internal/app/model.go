package app

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/maxlab/magnetpanel/internal/dispatcher"
	"github.com/maxlab/magnetpanel/internal/models"
	"github.com/maxlab/magnetpanel/internal/panels"
	"github.com/maxlab/magnetpanel/internal/update"
	"github.com/maxlab/magnetpanel/ui/components"
	"github.com/maxlab/magnetpanel/ui/styles"
)

const logLines = 4

type AppModel struct {
	appModel   models.AppModel
	dispatcher *dispatcher.EventDispatcher
	layout     *panels.Layout
	deps       update.Deps
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(
		update.TickCmd(),
		m.dispatcher.ListenForCoreEvents(),
		m.dispatcher.ListenForUpdates(),
	)
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle core events and updates, then keep listening
	switch msg := msg.(type) {
	case update.CoreEventMsg:
		cmd := update.HandleCoreEvent(&m.appModel, msg)
		return m, tea.Batch(cmd, m.dispatcher.ListenForCoreEvents())
	case update.UpdatesMsg:
		update.HandleUpdates(&m.appModel, msg, m.deps.Tabs)
		return m, m.dispatcher.ListenForUpdates()
	}

	cmd := update.HandleUpdateWithEventBus(&m.appModel, msg, m.deps)
	return m, cmd
}

func (m *AppModel) View() string {
	width := m.appModel.Width
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle().Width(width).Render(m.appModel.Title))
	b.WriteString("\n")
	b.WriteString(components.RenderTabs(m.deps.Tabs))
	b.WriteString("\n")

	footer := m.footer(width)
	bodyHeight := m.appModel.Height - lipgloss.Height(footer) - 2
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	if p := m.deps.Tabs.ActivePanel(); p != nil {
		b.WriteString(styles.PanelStyle(width).Render(p.View(width-4, bodyHeight-2)))
	} else {
		b.WriteString(styles.PanelStyle(width).Render(styles.HelpStyle().Render("No device selected")))
	}
	b.WriteString("\n")
	b.WriteString(footer)
	return b.String()
}

func (m *AppModel) footer(width int) string {
	var parts []string
	if c := m.appModel.PendingConfirmation; c != nil {
		parts = append(parts, components.RenderConfirmation(c.Operation, width))
	}
	if log := components.RenderLog(m.appModel.Log, logLines); log != "" {
		parts = append(parts, log)
	}
	if m.appModel.ShowHelp {
		parts = append(parts, components.RenderHelp(m.deps.Keys.ShortHelp()))
	}
	parts = append(parts, components.RenderStatus(
		m.appModel.Status,
		m.appModel.Busy,
		m.appModel.BusyDots,
		m.dispatcher.Updates().Stats(),
		m.appModel.Discarded,
		width,
	))
	return strings.Join(parts, "\n")
}
