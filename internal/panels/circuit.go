package panels

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maxlab/magnetpanel/internal/panel"
	"github.com/maxlab/magnetpanel/internal/tango"
	"github.com/maxlab/magnetpanel/internal/widgets"
)

var circuitAttrs = []string{
	"energy",
	"variableComponent",
	"currentActual",
	"currentCalculated",
	"fixNormFieldOnEnergyChange",
}

// CircuitPanel shows the setpoints and currents of a magnet circuit.
type CircuitPanel struct {
	base
	header *widgets.DeviceHeader
	form   *widgets.AttributeForm
	bar    *widgets.ValueBar
	status *widgets.StatusArea
}

func NewCircuitPanel(env panel.Env) *CircuitPanel {
	return &CircuitPanel{base: base{env: env}}
}

func (p *CircuitPanel) Bind(ctx context.Context, model tango.ModelID) error {
	header := widgets.NewDeviceHeader(model)
	form := widgets.NewAttributeForm(attrsOf(model, circuitAttrs...)...)
	form.Write = p.env.Write
	bar := widgets.NewValueBar(tango.Attr(model, "variableComponent"))
	status := widgets.NewStatusArea(model)
	if err := p.bind(ctx, model, header, form, bar, status); err != nil {
		return err
	}
	p.header, p.form, p.bar, p.status = header, form, bar, status
	return nil
}

func (p *CircuitPanel) Update(msg tea.Msg) tea.Cmd {
	if !p.bound() {
		return nil
	}
	return p.form.Update(msg)
}

func (p *CircuitPanel) View(width, height int) string {
	if !p.bound() {
		return unbound(width)
	}
	return stack(p.header.View(width), p.form.View(width), p.bar.View(width), p.status.View(width, 3))
}

func attrsOf(device tango.ModelID, names ...string) []tango.ModelID {
	out := make([]tango.ModelID, len(names))
	for i, n := range names {
		out[i] = tango.Attr(device, n)
	}
	return out
}
