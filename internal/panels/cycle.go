package panels

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maxlab/magnetpanel/internal/panel"
	"github.com/maxlab/magnetpanel/internal/tango"
	"github.com/maxlab/magnetpanel/internal/widgets"
)

const trendSamples = 600

// cyclingSwitch pauses a trend unless the circuit reports it is cycling,
// and starts a fresh trace when cycling begins.
type cyclingSwitch struct {
	attr    tango.ModelID
	trend   *widgets.Trend
	cycling bool
}

func (c *cyclingSwitch) Attrs() []tango.ModelID { return []tango.ModelID{c.attr} }

func (c *cyclingSwitch) Apply(attr tango.ModelID, v tango.Value) bool {
	if attr != c.attr {
		return false
	}
	on, _ := v.Data.(bool)
	if on && !c.cycling {
		c.trend.Clear()
	}
	c.cycling = on
	c.trend.Paused = !on
	return true
}

// CyclePanel runs the cycling procedure of a circuit and traces the
// current of its power supply while it runs.
type CyclePanel struct {
	base
	lookup   Lookup
	header   *widgets.DeviceHeader
	status   *widgets.StatusArea
	commands *widgets.CommandBar
	trend    *widgets.Trend
	cycling  *cyclingSwitch
}

func NewCyclePanel(env panel.Env, lookup Lookup) *CyclePanel {
	return &CyclePanel{base: base{env: env}, lookup: lookup}
}

func (p *CyclePanel) Bind(ctx context.Context, model tango.ModelID) error {
	if err := model.Validate(); err != nil {
		return err
	}
	ps, err := p.lookup.PowerSupplyOf(ctx, model)
	if err != nil {
		return err
	}
	header := widgets.NewDeviceHeader(model)
	status := widgets.NewStatusArea(tango.Attr(model, "cyclingStatus"))
	commands := widgets.NewCommandBar(model,
		widgets.NewCommand("StartCycle", "c", "start cycle"),
		widgets.NewCommand("StopCycle", "s", "stop cycle"),
	)
	commands.Run = p.env.Command
	trend := widgets.NewTrend(tango.Attr(ps, "Current"), trendSamples)
	trend.Paused = true
	cycling := &cyclingSwitch{attr: tango.Attr(model, "cyclingState"), trend: trend}
	// the switch goes first so a batch that starts cycling is traced
	if err := p.bind(ctx, model, cycling, header, status, trend); err != nil {
		return err
	}
	p.header, p.status, p.commands, p.trend, p.cycling = header, status, commands, trend, cycling
	return nil
}

// Cycling reports the last cyclingState seen.
func (p *CyclePanel) Cycling() bool { return p.cycling != nil && p.cycling.cycling }

func (p *CyclePanel) Trend() *widgets.Trend { return p.trend }

func (p *CyclePanel) Update(msg tea.Msg) tea.Cmd {
	if !p.bound() {
		return nil
	}
	return p.commands.Update(msg)
}

func (p *CyclePanel) View(width, height int) string {
	if !p.bound() {
		return unbound(width)
	}
	return stack(p.header.View(width), p.status.View(width, 2), p.commands.View(), p.trend.View(max(10, width-2)))
}
