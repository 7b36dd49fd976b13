// Package topology walks the device graph stored in device properties:
// magnet -> circuit -> power supply, and for trim coils the switchboard.
package topology

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/maxlab/magnetpanel/internal/tango"
)

const (
	ClassMagnet           = "Magnet"
	ClassMagnetCircuit    = "MagnetCircuit"
	ClassTrimCircuit      = "TrimCircuit"
	ClassPowerSupply      = "PowerSupply"
	ClassPulsePowerSupply = "PulsePowerSupply"
	ClassSwitchBoard      = "SwitchBoard"

	PropCircuitProxies   = "CircuitProxies"
	PropPowerSupplyProxy = "PowerSupplyProxy"
	PropSwitchBoardProxy = "SwitchBoardProxy"
	PropMagnetProxies    = "MagnetProxies"
)

// TopologyLookupError reports a failed step of the device walk.
type TopologyLookupError struct {
	Device      tango.ModelID
	Property    string // empty when the device itself could not be resolved
	Err         error
	Suggestions []string
}

func (e *TopologyLookupError) Error() string {
	var b strings.Builder
	if e.Property == "" {
		fmt.Fprintf(&b, "topology lookup of %s: %v", e.Device, e.Err)
	} else {
		fmt.Fprintf(&b, "topology lookup of %s property %s: %v", e.Device, e.Property, e.Err)
	}
	if len(e.Suggestions) > 0 {
		fmt.Fprintf(&b, " (did you mean %s?)", strings.Join(e.Suggestions, ", "))
	}
	return b.String()
}

func (e *TopologyLookupError) Unwrap() error { return e.Err }

var (
	ErrEmptyProperty = errors.New("property has no value")
	ErrNotTrim       = errors.New("device is not a trim coil circuit")
)

// Kind is the panel layout a model resolves to.
type Kind int

const (
	KindUnknown Kind = iota
	KindMagnet
	KindCircuit
	KindTrim
)

func (k Kind) String() string {
	switch k {
	case KindMagnet:
		return "magnet"
	case KindCircuit:
		return "circuit"
	case KindTrim:
		return "trim"
	default:
		return "unknown"
	}
}

// Layout is the result of a walk: the devices every tab binds to.
type Layout struct {
	Kind             Kind
	Model            tango.ModelID // what the operator asked for
	Class            string
	Magnet           tango.ModelID // set when Model is a magnet
	Circuit          tango.ModelID
	PowerSupply      tango.ModelID
	PowerSupplyClass string
	SwitchBoard      tango.ModelID // trim circuits only
}

// Namer lists known device names for suggestions. Optional.
type Namer interface {
	Names(ctx context.Context) ([]string, error)
}

type Resolver struct {
	topo  tango.Topology
	names Namer
}

func NewResolver(topo tango.Topology, names Namer) *Resolver {
	return &Resolver{topo: topo, names: names}
}

// Resolve walks from model to every related device. It does not touch any
// panel, so a failure leaves the caller's state as it was.
func (r *Resolver) Resolve(ctx context.Context, model tango.ModelID) (Layout, error) {
	if err := model.Validate(); err != nil {
		return Layout{}, &TopologyLookupError{Device: model, Err: err}
	}
	class, err := r.topo.ClassOf(ctx, model)
	if err != nil {
		return Layout{}, r.lookupError(ctx, model, "", err)
	}
	out := Layout{Model: model, Class: class}

	switch class {
	case ClassMagnet:
		out.Kind = KindMagnet
		out.Magnet = model
		if out.Circuit, err = r.first(ctx, model, PropCircuitProxies); err != nil {
			return Layout{}, err
		}
	case ClassMagnetCircuit:
		out.Kind = KindCircuit
		out.Circuit = model
	case ClassTrimCircuit:
		out.Kind = KindTrim
		out.Circuit = model
		if out.SwitchBoard, err = r.first(ctx, model, PropSwitchBoardProxy); err != nil {
			return Layout{}, err
		}
	default:
		return out, nil
	}

	if out.PowerSupply, err = r.first(ctx, out.Circuit, PropPowerSupplyProxy); err != nil {
		return Layout{}, err
	}
	if out.PowerSupplyClass, err = r.topo.ClassOf(ctx, out.PowerSupply); err != nil {
		return Layout{}, r.lookupError(ctx, out.PowerSupply, "", err)
	}
	return out, nil
}

// Magnets returns the magnets powered by a circuit.
func (r *Resolver) Magnets(ctx context.Context, circuit tango.ModelID) ([]tango.ModelID, error) {
	vals, err := r.topo.GetProperty(ctx, circuit, PropMagnetProxies)
	if err != nil {
		return nil, r.lookupError(ctx, circuit, PropMagnetProxies, err)
	}
	out := make([]tango.ModelID, 0, len(vals))
	for _, v := range vals {
		out = append(out, tango.ModelID(strings.TrimSpace(v)))
	}
	return out, nil
}

// PowerSupplyOf returns the power supply feeding a circuit.
func (r *Resolver) PowerSupplyOf(ctx context.Context, circuit tango.ModelID) (tango.ModelID, error) {
	return r.first(ctx, circuit, PropPowerSupplyProxy)
}

func (r *Resolver) first(ctx context.Context, device tango.ModelID, prop string) (tango.ModelID, error) {
	vals, err := r.topo.GetProperty(ctx, device, prop)
	if err != nil {
		return "", r.lookupError(ctx, device, prop, err)
	}
	if len(vals) == 0 || strings.TrimSpace(vals[0]) == "" {
		return "", &TopologyLookupError{Device: device, Property: prop, Err: ErrEmptyProperty}
	}
	id := tango.ModelID(strings.TrimSpace(vals[0]))
	if err := id.Validate(); err != nil {
		return "", &TopologyLookupError{Device: device, Property: prop, Err: err}
	}
	return id, nil
}

func (r *Resolver) lookupError(ctx context.Context, device tango.ModelID, prop string, err error) error {
	e := &TopologyLookupError{Device: device, Property: prop, Err: err}
	if prop == "" && errors.Is(err, tango.ErrNotFound) && r.names != nil {
		if names, nerr := r.names.Names(ctx); nerr == nil {
			e.Suggestions = Suggest(string(device), names, 3)
		}
	}
	return e
}

// Suggest returns up to n known names closest to name by edit distance,
// skipping anything further than half the length of name.
func Suggest(name string, known []string, n int) []string {
	type scored struct {
		name string
		dist int
	}
	limit := len(name)/2 + 1
	var candidates []scored
	for _, k := range known {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(k))
		if d <= limit {
			candidates = append(candidates, scored{k, d})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].name < candidates[j].name
	})
	out := make([]string, 0, n)
	for i := 0; i < len(candidates) && i < n; i++ {
		out = append(out, candidates[i].name)
	}
	return out
}

// Models returns the model list for the magnet panel tabs: circuit, power
// supply, magnets, cycle, field.
func (l Layout) Models() []tango.ModelID {
	c := l.Circuit
	return []tango.ModelID{c, l.PowerSupply, c, c, c}
}

// TrimModels returns the model list for the trim coil panel tabs: circuit,
// power supply, magnets, field, switchboard.
func (l Layout) TrimModels() []tango.ModelID {
	c := l.Circuit
	return []tango.ModelID{c, l.PowerSupply, c, c, l.SwitchBoard}
}

// Title is the window title shown for the layout.
func (l Layout) Title() string {
	switch l.Kind {
	case KindTrim:
		return "Trim coil panel: " + string(l.Circuit)
	case KindMagnet, KindCircuit:
		return "Magnet circuit panel: " + string(l.Circuit)
	default:
		return "N/A"
	}
}
