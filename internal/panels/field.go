package panels

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maxlab/magnetpanel/internal/panel"
	"github.com/maxlab/magnetpanel/internal/tango"
	"github.com/maxlab/magnetpanel/internal/widgets"
)

// FieldPanel tabulates the multipole field components of a circuit.
type FieldPanel struct {
	base
	header *widgets.DeviceHeader
	table  *widgets.ColumnsTable
}

func NewFieldPanel(env panel.Env) *FieldPanel {
	return &FieldPanel{base: base{env: env}}
}

func (p *FieldPanel) Bind(ctx context.Context, model tango.ModelID) error {
	header := widgets.NewDeviceHeader(model)
	table := widgets.NewColumnsTable(true, attrsOf(model, "fieldA", "fieldB", "fieldAnormalised", "fieldBnormalised")...)
	if err := p.bind(ctx, model, header, table); err != nil {
		return err
	}
	p.header, p.table = header, table
	return nil
}

func (p *FieldPanel) Rows() [][]string {
	if p.table == nil {
		return nil
	}
	return p.table.Rows()
}

func (p *FieldPanel) Update(msg tea.Msg) tea.Cmd {
	if !p.bound() {
		return nil
	}
	return p.table.Update(msg)
}

func (p *FieldPanel) View(width, height int) string {
	if !p.bound() {
		return unbound(width)
	}
	return stack(p.header.View(width), p.table.View(width, max(3, height-4)))
}
