package panels

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/maxlab/magnetpanel/internal/eventbus"
	"github.com/maxlab/magnetpanel/internal/panel"
	"github.com/maxlab/magnetpanel/internal/simulator"
	"github.com/maxlab/magnetpanel/internal/subscription"
	"github.com/maxlab/magnetpanel/internal/tango"
	"github.com/maxlab/magnetpanel/internal/topology"
)

type catalog struct {
	classes map[tango.ModelID]string
	props   map[tango.ModelID]map[string][]string
}

func (c catalog) ClassOf(_ context.Context, d tango.ModelID) (string, error) {
	class, ok := c.classes[d]
	if !ok {
		return "", tango.ErrNotFound
	}
	return class, nil
}

func (c catalog) GetProperty(_ context.Context, d tango.ModelID, name string) ([]string, error) {
	if _, ok := c.classes[d]; !ok {
		return nil, tango.ErrNotFound
	}
	return c.props[d][name], nil
}

func facility() catalog {
	return catalog{
		classes: map[tango.ModelID]string{
			"r3/mag/q1":   topology.ClassMagnet,
			"r3/mag/q2":   topology.ClassMagnet,
			"r3/mag/crq1": topology.ClassMagnetCircuit,
			"r3/ps/q1":    topology.ClassPowerSupply,
			"r3/mag/k1":   topology.ClassMagnet,
			"r3/mag/crk1": topology.ClassMagnetCircuit,
			"r3/ps/k1":    topology.ClassPulsePowerSupply,
			"r3/mag/tc1":  topology.ClassTrimCircuit,
			"r3/ps/tc1":   topology.ClassPowerSupply,
			"r3/swb/tc":   topology.ClassSwitchBoard,
		},
		props: map[tango.ModelID]map[string][]string{
			"r3/mag/q1":   {topology.PropCircuitProxies: {"r3/mag/crq1"}},
			"r3/mag/q2":   {topology.PropCircuitProxies: {"r3/mag/crq1"}},
			"r3/mag/crq1": {topology.PropPowerSupplyProxy: {"r3/ps/q1"}, topology.PropMagnetProxies: {"r3/mag/q1", "r3/mag/q2"}},
			"r3/mag/k1":   {topology.PropCircuitProxies: {"r3/mag/crk1"}},
			"r3/mag/crk1": {topology.PropPowerSupplyProxy: {"r3/ps/k1"}, topology.PropMagnetProxies: {"r3/mag/k1"}},
			"r3/mag/tc1": {
				topology.PropPowerSupplyProxy: {"r3/ps/tc1"},
				topology.PropSwitchBoardProxy: {"r3/swb/tc"},
			},
		},
	}
}

type rig struct {
	sim     *simulator.Simulator
	updates *eventbus.Coalescer
	env     panel.Env
	res     *topology.Resolver
}

func newRig(t *testing.T) *rig {
	t.Helper()
	cat := facility()
	sim := simulator.New(cat, time.Second)
	updates := eventbus.NewCoalescer()
	t.Cleanup(updates.Close)
	return &rig{
		sim:     sim,
		updates: updates,
		env:     panel.Env{Subs: subscription.NewRegistry(sim), Reader: sim, Updates: updates},
		res:     topology.NewResolver(cat, nil),
	}
}

// pump delivers pending simulator events and dispatches them to tabs the
// way the UI loop does.
func (r *rig) pump(t *testing.T, tabs *panel.LazyTabs) {
	t.Helper()
	r.sim.Flush()
	if r.updates.Pending() == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	batch, err := r.updates.Next(ctx)
	require.NoError(t, err)
	for _, u := range batch {
		tabs.Dispatch(u)
	}
}

func TestMagnetLayoutOpensOnPowerSupplyTab(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	l := NewMagnetLayout(r.env, r.res)

	require.NoError(t, l.SetModel(ctx, "r3/mag/q1"))
	require.Equal(t, 1, l.Tabs.Active())
	require.Equal(t, TabPowerSupply, l.Tabs.Label(l.Tabs.Active()))
	require.Equal(t, 1, l.Tabs.BoundCount())
	want := []tango.ModelID{"r3/mag/crq1", "r3/ps/q1", "r3/mag/crq1", "r3/mag/crq1", "r3/mag/crq1"}
	for i, m := range want {
		require.Equal(t, m, l.Tabs.Pending(i))
	}
	require.Equal(t, "Magnet circuit panel: r3/mag/crq1", l.Title())

	r.pump(t, l.Tabs)
	view := l.Tabs.ActivePanel().View(80, 24)
	require.Contains(t, view, "r3/ps/q1")
	require.Contains(t, view, "Impedance")

	require.NoError(t, l.SetModel(ctx, "r3/mag/q2"))
	require.Equal(t, 1, l.Tabs.Active(), "later models keep the selected tab")
}

func TestPulsedSupplyGetsItsOwnPanel(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	l := NewMagnetLayout(r.env, r.res)

	require.NoError(t, l.SetModel(ctx, "r3/mag/q1"))
	require.IsType(t, &PowerSupplyPanel{}, l.Tabs.Panel(1))

	require.NoError(t, l.SetModel(ctx, "r3/mag/k1"))
	require.Equal(t, 1, l.Tabs.Active())
	require.IsType(t, &PulsePowerSupplyPanel{}, l.Tabs.Panel(1))
	require.Equal(t, tango.ModelID("r3/ps/k1"), l.Tabs.Panel(1).Model())
	require.Equal(t, 1, l.Tabs.BoundCount())

	require.NoError(t, l.SetModel(ctx, "r3/mag/q1"))
	require.IsType(t, &PowerSupplyPanel{}, l.Tabs.Panel(1))
	require.Equal(t, tango.ModelID("r3/ps/q1"), l.Tabs.Panel(1).Model())
}

func TestTrimLayout(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	l := NewTrimLayout(r.env, r.res)

	require.NoError(t, l.SetModel(ctx, "r3/mag/tc1"))
	require.Equal(t, 1, l.Tabs.Active())
	require.Equal(t, tango.ModelID("r3/ps/tc1"), l.Tabs.Panel(1).Model())
	require.Equal(t, "Switchboard", l.Tabs.Label(4))
	require.Equal(t, tango.ModelID("r3/swb/tc"), l.Tabs.Pending(4))

	require.NoError(t, l.Tabs.Select(ctx, 4))
	require.IsType(t, &SwitchBoardPanel{}, l.Tabs.Panel(4))
	require.Equal(t, tango.ModelID("r3/swb/tc"), l.Tabs.Panel(4).Model())
	r.pump(t, l.Tabs)
	require.Contains(t, l.Tabs.ActivePanel().View(80, 24), "QUADRUPOLE")
}

func TestTrimLayoutRejectsOtherCircuits(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	l := NewTrimLayout(r.env, r.res)
	require.NoError(t, l.SetModel(ctx, "r3/mag/tc1"))

	for _, model := range []tango.ModelID{"r3/mag/crq1", "r3/mag/q1"} {
		err := l.SetModel(ctx, model)
		var lookup *topology.TopologyLookupError
		require.ErrorAs(t, err, &lookup)
		require.ErrorIs(t, err, topology.ErrNotTrim)
		require.Equal(t, model, lookup.Device)
	}
	require.Equal(t, tango.ModelID("r3/swb/tc"), l.Tabs.Pending(4))
	require.Equal(t, tango.ModelID("r3/ps/tc1"), l.Tabs.Panel(1).Model())
	require.Equal(t, topology.KindTrim, l.Current().Kind)
}

func TestFailedWalkKeepsTabs(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	l := NewMagnetLayout(r.env, r.res)
	require.NoError(t, l.SetModel(ctx, "r3/mag/q1"))

	err := l.SetModel(ctx, "r3/mag/q9")
	var lookup *topology.TopologyLookupError
	require.ErrorAs(t, err, &lookup)
	require.Equal(t, tango.ModelID("r3/mag/crq1"), l.Tabs.Pending(0))
	require.Equal(t, tango.ModelID("r3/ps/q1"), l.Tabs.Panel(1).Model())
}

func TestUnknownClassClearsTabs(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	l := NewMagnetLayout(r.env, r.res)
	require.NoError(t, l.SetModel(ctx, "r3/mag/q1"))

	require.NoError(t, l.SetModel(ctx, "r3/swb/tc"))
	require.Equal(t, 0, l.Tabs.BoundCount())
	for i := 0; i < l.Tabs.Len(); i++ {
		require.Empty(t, l.Tabs.Pending(i))
	}
	require.Zero(t, r.sim.Subscriptions())
}

func TestMagnetListShowsCircuitMagnets(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	l := NewMagnetLayout(r.env, r.res)
	require.NoError(t, l.SetModel(ctx, "r3/mag/q1"))
	require.NoError(t, l.Tabs.Select(ctx, 2))

	list := l.Tabs.Panel(2).(*MagnetListPanel)
	require.Equal(t, []tango.ModelID{"r3/mag/q1", "r3/mag/q2"}, list.Magnets())
	r.pump(t, l.Tabs)
	require.Contains(t, list.View(80, 10), "r3/mag/q2")
}

func TestCycleTraceRunsOnlyWhileCycling(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	l := NewMagnetLayout(r.env, r.res)
	require.NoError(t, l.SetModel(ctx, "r3/mag/q1"))
	require.NoError(t, l.Tabs.Select(ctx, 3))
	cycle := l.Tabs.Panel(3).(*CyclePanel)

	require.NoError(t, r.sim.Command(ctx, "r3/ps/q1", "On"))
	r.pump(t, l.Tabs)
	r.sim.Advance(time.Second)
	r.pump(t, l.Tabs)
	require.False(t, cycle.Cycling())
	require.Empty(t, cycle.Trend().Samples())

	require.NoError(t, r.sim.Command(ctx, "r3/mag/crq1", "StartCycle"))
	r.pump(t, l.Tabs)
	require.True(t, cycle.Cycling())
	for i := 0; i < 3; i++ {
		r.sim.Advance(time.Second)
		r.pump(t, l.Tabs)
	}
	require.NotEmpty(t, cycle.Trend().Samples())
}

func TestFieldPanelShowsNaNChannels(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	l := NewMagnetLayout(r.env, r.res)
	require.NoError(t, l.SetModel(ctx, "r3/mag/q1"))
	require.NoError(t, l.Tabs.Select(ctx, 4))

	r.sim.Advance(time.Second)
	r.pump(t, l.Tabs)
	rows := l.Tabs.Panel(4).(*FieldPanel).Rows()
	require.Len(t, rows, 9, "eight channels and the mean")
	require.Equal(t, "N/A", rows[7][1])
}

func TestPanelBindFailureIsReported(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	l := NewMagnetLayout(r.env, r.res)
	r.sim.SetUnreachable("r3/ps/q1", true)

	err := l.SetModel(ctx, "r3/mag/q1")
	var be *panel.BindError
	require.ErrorAs(t, err, &be)
	require.ErrorIs(t, err, tango.ErrUnreachable)
	require.Equal(t, 0, l.Tabs.BoundCount())
	require.Zero(t, r.sim.Subscriptions())

	r.sim.SetUnreachable("r3/ps/q1", false)
	require.NoError(t, l.Tabs.Rebind(ctx))
	require.Equal(t, 1, l.Tabs.BoundCount())
}
