package panels

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/maxlab/magnetpanel/internal/eventbus"
	"github.com/maxlab/magnetpanel/internal/panel"
	"github.com/maxlab/magnetpanel/internal/tango"
)

// magnetStates is the widget behind MagnetListPanel: one row per magnet
// with its State and Status.
type magnetStates struct {
	magnets []tango.ModelID
	states  map[tango.ModelID]string
	status  map[tango.ModelID]string
}

func (m *magnetStates) Attrs() []tango.ModelID {
	var out []tango.ModelID
	for _, mag := range m.magnets {
		out = append(out, tango.Attr(mag, "State"), tango.Attr(mag, "Status"))
	}
	return out
}

func (m *magnetStates) Apply(attr tango.ModelID, v tango.Value) bool {
	dev := attr.Device()
	if _, ok := m.states[dev]; !ok {
		return false
	}
	switch attr.Name() {
	case "State":
		if s, ok := v.Data.(tango.State); ok {
			m.states[dev] = s.String()
		}
	case "Status":
		m.status[dev] = fmt.Sprint(v.Data)
	default:
		return false
	}
	return true
}

func (m *magnetStates) rows() []table.Row {
	rows := make([]table.Row, len(m.magnets))
	for i, mag := range m.magnets {
		rows[i] = table.Row{string(mag), m.states[mag], m.status[mag]}
	}
	return rows
}

// MagnetListPanel lists the magnets powered by a circuit.
type MagnetListPanel struct {
	base
	lookup Lookup
	list   *magnetStates
	table  table.Model
}

func NewMagnetListPanel(env panel.Env, lookup Lookup) *MagnetListPanel {
	cols := []table.Column{
		{Title: "Magnet", Width: 16},
		{Title: "State", Width: 9},
		{Title: "Status", Width: 30},
	}
	t := table.New(table.WithColumns(cols), table.WithFocused(true), table.WithHeight(6))
	st := table.DefaultStyles()
	st.Header = st.Header.Bold(true)
	st.Selected = st.Selected.Bold(true)
	t.SetStyles(st)
	return &MagnetListPanel{base: base{env: env}, lookup: lookup, table: t}
}

func (p *MagnetListPanel) Bind(ctx context.Context, model tango.ModelID) error {
	if err := model.Validate(); err != nil {
		return err
	}
	magnets, err := p.lookup.Magnets(ctx, model)
	if err != nil {
		return err
	}
	list := &magnetStates{
		magnets: magnets,
		states:  make(map[tango.ModelID]string, len(magnets)),
		status:  make(map[tango.ModelID]string, len(magnets)),
	}
	for _, m := range magnets {
		list.states[m] = "…"
	}
	if err := p.bind(ctx, model, list); err != nil {
		return err
	}
	p.list = list
	p.table.SetRows(list.rows())
	return nil
}

// Magnets are the devices listed by the current binding.
func (p *MagnetListPanel) Magnets() []tango.ModelID {
	if p.list == nil {
		return nil
	}
	return p.list.magnets
}

func (p *MagnetListPanel) Apply(u eventbus.Update) {
	p.base.Apply(u)
	if p.list != nil {
		p.table.SetRows(p.list.rows())
	}
}

func (p *MagnetListPanel) Unbind() {
	p.base.Unbind()
	p.list = nil
	p.table.SetRows(nil)
}

func (p *MagnetListPanel) Update(msg tea.Msg) tea.Cmd {
	if !p.bound() {
		return nil
	}
	var cmd tea.Cmd
	p.table, cmd = p.table.Update(msg)
	return cmd
}

func (p *MagnetListPanel) View(width, height int) string {
	if !p.bound() {
		return unbound(width)
	}
	if len(p.list.magnets) == 0 {
		return "No magnets configured for " + string(p.Model())
	}
	p.table.SetWidth(max(20, width))
	p.table.SetHeight(max(3, height-2))
	return p.table.View()
}
