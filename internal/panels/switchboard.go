package panels

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maxlab/magnetpanel/internal/panel"
	"github.com/maxlab/magnetpanel/internal/tango"
	"github.com/maxlab/magnetpanel/internal/widgets"
)

var (
	switchBoardModes      = []string{"QUADRUPOLE", "SEXTUPOLE", "OCTUPOLE", "DIPOLE"}
	switchBoardPolarities = []string{"NORMAL", "INVERTED"}
)

// SwitchBoardPanel sets how a trim coil switchboard connects its coils.
type SwitchBoardPanel struct {
	base
	header   *widgets.DeviceHeader
	commands *widgets.CommandBar
	form     *widgets.AttributeForm
	status   *widgets.StatusArea
}

func NewSwitchBoardPanel(env panel.Env) *SwitchBoardPanel {
	return &SwitchBoardPanel{base: base{env: env}}
}

func (p *SwitchBoardPanel) Bind(ctx context.Context, model tango.ModelID) error {
	header := widgets.NewDeviceHeader(model)
	commands := widgets.NewCommandBar(model, onOffCommands()...)
	commands.Run = p.env.Command
	form := widgets.NewAttributeForm(attrsOf(model, "Mode", "Polarity")...)
	form.SetOptions(tango.Attr(model, "Mode"), switchBoardModes...)
	form.SetOptions(tango.Attr(model, "Polarity"), switchBoardPolarities...)
	form.Write = p.env.Write
	status := widgets.NewStatusArea(model)
	if err := p.bind(ctx, model, header, form, status); err != nil {
		return err
	}
	p.header, p.commands, p.form, p.status = header, commands, form, status
	return nil
}

func (p *SwitchBoardPanel) Update(msg tea.Msg) tea.Cmd {
	if !p.bound() {
		return nil
	}
	if cmd := p.commands.Update(msg); cmd != nil {
		return cmd
	}
	return p.form.Update(msg)
}

func (p *SwitchBoardPanel) View(width, height int) string {
	if !p.bound() {
		return unbound(width)
	}
	return stack(p.header.View(width), p.commands.View(), p.form.View(width), p.status.View(width, 3))
}
