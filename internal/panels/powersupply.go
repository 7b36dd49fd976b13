package panels

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maxlab/magnetpanel/internal/panel"
	"github.com/maxlab/magnetpanel/internal/tango"
	"github.com/maxlab/magnetpanel/internal/widgets"
)

func onOffCommands() []widgets.Command {
	return []widgets.Command{
		widgets.NewCommand("On", "o", "on"),
		widgets.NewCommand("Off", "f", "off"),
	}
}

// PowerSupplyPanel controls a DC power supply.
type PowerSupplyPanel struct {
	base
	header   *widgets.DeviceHeader
	commands *widgets.CommandBar
	form     *widgets.AttributeForm
	bar      *widgets.ValueBar
	status   *widgets.StatusArea
}

func NewPowerSupplyPanel(env panel.Env) *PowerSupplyPanel {
	return &PowerSupplyPanel{base: base{env: env}}
}

func (p *PowerSupplyPanel) Bind(ctx context.Context, model tango.ModelID) error {
	header := widgets.NewDeviceHeader(model)
	commands := widgets.NewCommandBar(model, onOffCommands()...)
	commands.Run = p.env.Command
	form := widgets.NewAttributeForm(attrsOf(model, "Current", "Voltage", "Impedance")...)
	form.Write = p.env.Write
	bar := widgets.NewValueBar(tango.Attr(model, "Current"))
	status := widgets.NewStatusArea(model)
	if err := p.bind(ctx, model, header, form, bar, status); err != nil {
		return err
	}
	p.header, p.commands, p.form, p.bar, p.status = header, commands, form, bar, status
	return nil
}

func (p *PowerSupplyPanel) Update(msg tea.Msg) tea.Cmd {
	if !p.bound() {
		return nil
	}
	if cmd := p.commands.Update(msg); cmd != nil {
		return cmd
	}
	return p.form.Update(msg)
}

func (p *PowerSupplyPanel) View(width, height int) string {
	if !p.bound() {
		return unbound(width)
	}
	return stack(p.header.View(width), p.commands.View(), p.form.View(width), p.bar.View(width), p.status.View(width, 3))
}

// PulsePowerSupplyPanel controls a pulsed supply, which has no DC current.
type PulsePowerSupplyPanel struct {
	base
	header   *widgets.DeviceHeader
	commands *widgets.CommandBar
	form     *widgets.AttributeForm
	status   *widgets.StatusArea
}

func NewPulsePowerSupplyPanel(env panel.Env) *PulsePowerSupplyPanel {
	return &PulsePowerSupplyPanel{base: base{env: env}}
}

func (p *PulsePowerSupplyPanel) Bind(ctx context.Context, model tango.ModelID) error {
	header := widgets.NewDeviceHeader(model)
	commands := widgets.NewCommandBar(model, onOffCommands()...)
	commands.Run = p.env.Command
	form := widgets.NewAttributeForm(attrsOf(model, "Voltage", "Frequency", "PulseLength")...)
	form.Write = p.env.Write
	status := widgets.NewStatusArea(model)
	if err := p.bind(ctx, model, header, form, status); err != nil {
		return err
	}
	p.header, p.commands, p.form, p.status = header, commands, form, status
	return nil
}

func (p *PulsePowerSupplyPanel) Update(msg tea.Msg) tea.Cmd {
	if !p.bound() {
		return nil
	}
	if cmd := p.commands.Update(msg); cmd != nil {
		return cmd
	}
	return p.form.Update(msg)
}

func (p *PulsePowerSupplyPanel) View(width, height int) string {
	if !p.bound() {
		return unbound(width)
	}
	return stack(p.header.View(width), p.commands.View(), p.form.View(width), p.status.View(width, 3))
}
