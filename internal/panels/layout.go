package panels

import (
	"context"
	"log/slog"

	"github.com/maxlab/magnetpanel/internal/panel"
	"github.com/maxlab/magnetpanel/internal/tango"
	"github.com/maxlab/magnetpanel/internal/topology"
)

// Resolver is the topology walk a layout uses to turn the operator's model
// into per-tab models.
type Resolver interface {
	Lookup
	Resolve(ctx context.Context, model tango.ModelID) (topology.Layout, error)
}

const (
	TabCircuit     = "Circuit"
	TabPowerSupply = "Power supply"
	TabMagnets     = "Magnets"
	TabCycle       = "Cycle"
	TabField       = "Field"
	TabSwitchBoard = "Switchboard"
)

// Variants registers the panels that replace the default one for a device
// class.
func Variants(env panel.Env) *panel.Variants {
	v := panel.NewVariants()
	v.Register(topology.ClassPulsePowerSupply, func() panel.Panel { return NewPulsePowerSupplyPanel(env) })
	return v
}

// Layout is a full application panel: a tab container whose tab models
// follow from one device through the topology walk.
type Layout struct {
	Tabs *panel.LazyTabs

	trim     bool
	env      panel.Env
	resolver Resolver
	variants *panel.Variants
	psTab    int
	psClass  string
	current  topology.Layout
}

// NewMagnetLayout builds the Circuit, Power supply, Magnets, Cycle and
// Field tabs.
func NewMagnetLayout(env panel.Env, resolver Resolver) *Layout {
	l := &Layout{Tabs: panel.NewLazyTabs(), env: env, resolver: resolver, variants: Variants(env), psClass: topology.ClassPowerSupply}
	l.Tabs.AddTab(TabCircuit, NewCircuitPanel(env))
	l.psTab = l.Tabs.AddTab(TabPowerSupply, NewPowerSupplyPanel(env))
	l.Tabs.AddTab(TabMagnets, NewMagnetListPanel(env, resolver))
	l.Tabs.AddTab(TabCycle, NewCyclePanel(env, resolver))
	l.Tabs.AddTab(TabField, NewFieldPanel(env))
	return l
}

// NewTrimLayout builds the Circuit, Power supply, Magnets, Field and
// Switchboard tabs of a trim coil.
func NewTrimLayout(env panel.Env, resolver Resolver) *Layout {
	l := &Layout{Tabs: panel.NewLazyTabs(), env: env, resolver: resolver, variants: Variants(env), psClass: topology.ClassPowerSupply, trim: true}
	l.Tabs.AddTab(TabCircuit, NewCircuitPanel(env))
	l.psTab = l.Tabs.AddTab(TabPowerSupply, NewPowerSupplyPanel(env))
	l.Tabs.AddTab(TabMagnets, NewMagnetListPanel(env, resolver))
	l.Tabs.AddTab(TabField, NewFieldPanel(env))
	l.Tabs.AddTab(TabSwitchBoard, NewSwitchBoardPanel(env))
	return l
}

// Current is the last layout the panel was set to.
func (l *Layout) Current() topology.Layout { return l.current }

func (l *Layout) Title() string { return l.current.Title() }

// SetModel walks the topology from model and hands the per-tab models to
// the tab container. A failed walk leaves the tabs untouched. A device of
// a class without a layout clears them. A trim layout rejects any model
// that is not a trim coil circuit. The first call selects the power supply
// tab.
func (l *Layout) SetModel(ctx context.Context, model tango.ModelID) error {
	if model == "" {
		l.current = topology.Layout{}
		return l.Tabs.SetModel(ctx, nil)
	}
	layout, err := l.resolver.Resolve(ctx, model)
	if err != nil {
		return err
	}
	if l.trim && layout.Kind != topology.KindTrim {
		return &topology.TopologyLookupError{Device: model, Property: topology.PropSwitchBoardProxy, Err: topology.ErrNotTrim}
	}
	if layout.Kind == topology.KindUnknown {
		slog.Info("no panel layout for device class", "model", model, "class", layout.Class)
		l.current = layout
		return l.Tabs.SetModel(ctx, nil)
	}
	if layout.PowerSupplyClass != l.psClass {
		// drop the old models first so the new variant never binds to a
		// device of the previous class
		if err := l.Tabs.SetModel(ctx, nil); err != nil {
			return err
		}
		p := l.variants.For(layout.PowerSupplyClass, func() panel.Panel { return NewPowerSupplyPanel(l.env) })
		if err := l.Tabs.ReplaceTab(ctx, l.psTab, p); err != nil {
			return err
		}
		l.psClass = layout.PowerSupplyClass
	}
	l.current = layout
	models := layout.Models()
	if l.trim {
		models = layout.TrimModels()
	}
	if err := l.Tabs.SetModel(ctx, models); err != nil {
		return err
	}
	if l.Tabs.Active() < 0 {
		return l.Tabs.Select(ctx, l.psTab)
	}
	return nil
}
