package simulator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/maxlab/magnetpanel/internal/tango"
)

type kind int

const (
	kindFloat kind = iota
	kindBool
	kindString
	kindState
	kindSpectrum
)

type attrSpec struct {
	info    tango.AttrInfo
	kind    kind
	initial any
	// the read value follows the written setpoint over time instead of
	// taking it immediately
	tracksSetpoint bool
}

func (a attrSpec) coerce(v any) (any, error) {
	switch a.kind {
	case kindFloat:
		var f float64
		switch x := v.(type) {
		case float64:
			f = x
		case int:
			f = float64(x)
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				return nil, err
			}
			f = parsed
		default:
			return nil, fmt.Errorf("expected a number, got %T", v)
		}
		if a.info.Min != a.info.Max && (f < a.info.Min || f > a.info.Max) {
			return nil, fmt.Errorf("%g outside [%g, %g]", f, a.info.Min, a.info.Max)
		}
		return f, nil
	case kindBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			return strconv.ParseBool(strings.TrimSpace(x))
		}
		return nil, fmt.Errorf("expected a boolean, got %T", v)
	case kindString:
		if x, ok := v.(string); ok {
			return x, nil
		}
		return nil, fmt.Errorf("expected a string, got %T", v)
	}
	return nil, tango.ErrReadOnly
}

type classModel struct {
	attrs    map[string]attrSpec
	commands map[string]func(s *Simulator, d *device) error
	links    []string
	step     func(s *Simulator, d *device, dt time.Duration, now time.Time)
}

type device struct {
	name   tango.ModelID
	class  string
	model  *classModel
	values map[string]tango.Value
	links  map[string]tango.ModelID

	// circuit bookkeeping
	lastSetpoint float64
	cyclePhase   time.Duration
}

func newDevice(name tango.ModelID, class string, model *classModel, now time.Time) *device {
	d := &device{
		name:   name,
		class:  class,
		model:  model,
		values: make(map[string]tango.Value, len(model.attrs)),
		links:  make(map[string]tango.ModelID),
	}
	for attr, spec := range model.attrs {
		v := tango.Value{Data: spec.initial, Quality: tango.Valid, Time: now}
		if spec.info.Writable {
			v.WriteValue = spec.initial
		}
		d.values[attr] = v
	}
	return d
}

func (d *device) snapshot() map[string]tango.Value {
	out := make(map[string]tango.Value, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}

func (d *device) set(attr string, data any, q tango.Quality, now time.Time) {
	v := d.values[attr]
	v.Data = data
	v.Quality = q
	v.Time = now
	d.values[attr] = v
}

func (d *device) float(attr string) float64 {
	f, _ := d.values[attr].Float()
	return f
}

func (d *device) setpoint(attr string) float64 {
	if f, ok := d.values[attr].WriteValue.(float64); ok {
		return f
	}
	return d.float(attr)
}

func (d *device) state() tango.State {
	s, _ := d.values["State"].Data.(tango.State)
	return s
}

func (d *device) setState(st tango.State, status string, now time.Time) {
	d.set("State", st, tango.Valid, now)
	d.set("Status", status, tango.Valid, now)
}

func (d *device) linked(s *Simulator, prop string) *device {
	name, ok := d.links[prop]
	if !ok {
		return nil
	}
	return s.devices[name]
}

func floatAttr(label, unit, format string, writable bool, min, max, initial float64) attrSpec {
	return attrSpec{
		info:    tango.AttrInfo{Label: label, Unit: unit, Format: format, Writable: writable, Min: min, Max: max},
		kind:    kindFloat,
		initial: initial,
	}
}

func stateAttrs(initial tango.State, status string) map[string]attrSpec {
	return map[string]attrSpec{
		"State":  {info: tango.AttrInfo{Label: "State"}, kind: kindState, initial: initial},
		"Status": {info: tango.AttrInfo{Label: "Status"}, kind: kindString, initial: status},
	}
}

func with(base map[string]attrSpec, extra map[string]attrSpec) map[string]attrSpec {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

const (
	slewRate      = 20.0 // A/s
	cyclePeriod   = 10 * time.Second
	cycleCount    = 3
	fieldChannels = 8
	usedChannels  = 4
)

var (
	errPowerSupplyOff = errors.New("power supply is not on")
	errAlreadyCycling = errors.New("circuit is already cycling")
)

func onOff(on tango.State, onStatus, offStatus string) map[string]func(*Simulator, *device) error {
	return map[string]func(*Simulator, *device) error{
		"On": func(s *Simulator, d *device) error {
			d.setState(on, onStatus, s.now())
			return nil
		},
		"Off": func(s *Simulator, d *device) error {
			d.setState(tango.StateOff, offStatus, s.now())
			return nil
		},
	}
}

func stepPowerSupply(s *Simulator, d *device, dt time.Duration, now time.Time) {
	target := 0.0
	if d.state() == tango.StateOn {
		target = d.setpoint("Current")
	}
	cur := d.float("Current")
	delta := target - cur
	maxStep := slewRate * dt.Seconds()
	q := tango.Valid
	if math.Abs(delta) > maxStep {
		delta = math.Copysign(maxStep, delta)
		q = tango.Changing
	}
	cur += delta
	d.set("Current", cur, q, now)
	d.set("Voltage", cur*d.float("Impedance"), tango.Valid, now)
}

func stepCircuit(s *Simulator, d *device, dt time.Duration, now time.Time) {
	energy := d.float("energy")
	calculated := d.float("variableComponent") * 100 * energy / 3.0
	d.set("currentCalculated", calculated, tango.Valid, now)

	ps := d.linked(s, "PowerSupplyProxy")
	if ps == nil {
		d.setState(tango.StateUnknown, "No power supply configured", now)
		return
	}
	cycling, _ := d.values["cyclingState"].Data.(bool)
	switch {
	case cycling:
		d.cyclePhase += dt
		if d.cyclePhase >= cycleCount*cyclePeriod {
			d.set("cyclingState", false, tango.Valid, now)
			d.set("cyclingStatus", "Cycling done", tango.Valid, now)
			setPSCurrent(ps, calculated, now)
			break
		}
		maxCurrent := ps.model.attrs["Current"].info.Max
		phase := 2 * math.Pi * float64(d.cyclePhase) / float64(cyclePeriod)
		setPSCurrent(ps, maxCurrent*(1-math.Cos(phase))/2, now)
		n := int(d.cyclePhase/cyclePeriod) + 1
		d.set("cyclingStatus", fmt.Sprintf("Cycling, step %d of %d", n, cycleCount), tango.Valid, now)
	case calculated != d.lastSetpoint:
		setPSCurrent(ps, calculated, now)
	}
	d.lastSetpoint = calculated

	actual := ps.float("Current")
	d.set("currentActual", actual, ps.values["Current"].Quality, now)
	switch ps.state() {
	case tango.StateOn:
		if cycling {
			d.setState(tango.StateRunning, "Circuit is cycling", now)
		} else {
			d.setState(tango.StateOn, "Circuit is on", now)
		}
	default:
		d.setState(ps.state(), "Power supply is "+strings.ToLower(ps.state().String()), now)
	}

	fieldA := make([]float64, fieldChannels)
	fieldB := make([]float64, fieldChannels)
	normA := make([]float64, fieldChannels)
	normB := make([]float64, fieldChannels)
	for i := range fieldA {
		if i >= usedChannels {
			fieldA[i], fieldB[i], normA[i], normB[i] = math.NaN(), math.NaN(), math.NaN(), math.NaN()
			continue
		}
		coeff := 1 / math.Pow(10, float64(i))
		fieldB[i] = actual * 0.01 * coeff
		fieldA[i] = actual * 0.0001 * coeff
		if energy != 0 {
			normB[i] = fieldB[i] / energy
			normA[i] = fieldA[i] / energy
		}
	}
	d.set("fieldA", fieldA, tango.Valid, now)
	d.set("fieldB", fieldB, tango.Valid, now)
	d.set("fieldAnormalised", normA, tango.Valid, now)
	d.set("fieldBnormalised", normB, tango.Valid, now)
}

func setPSCurrent(ps *device, current float64, now time.Time) {
	spec := ps.model.attrs["Current"]
	current = math.Max(spec.info.Min, math.Min(spec.info.Max, current))
	v := ps.values["Current"]
	v.WriteValue = current
	v.Time = now
	ps.values["Current"] = v
}

func stepFollower(prop string) func(*Simulator, *device, time.Duration, time.Time) {
	return func(s *Simulator, d *device, _ time.Duration, now time.Time) {
		parent := d.linked(s, prop)
		if parent == nil {
			d.setState(tango.StateUnknown, "No "+prop+" configured", now)
			return
		}
		d.setState(parent.state(), fmt.Sprintf("Following %s", parent.name), now)
	}
}

func circuitAttrs() map[string]attrSpec {
	return with(stateAttrs(tango.StateUnknown, "Initialising"), map[string]attrSpec{
		"energy":            floatAttr("Energy", "GeV", "%.3f", true, 0, 10, 3.0),
		"variableComponent": floatAttr("Variable component", "m^-2", "%.4f", true, -2, 2, 0),
		"currentActual":     floatAttr("Current (actual)", "A", "%.3f", false, 0, 0, 0),
		"currentCalculated": floatAttr("Current (calculated)", "A", "%.3f", false, 0, 0, 0),
		"fixNormFieldOnEnergyChange": {
			info:    tango.AttrInfo{Label: "Fix normalised field", Writable: true},
			kind:    kindBool,
			initial: true,
		},
		"fieldA":           {info: tango.AttrInfo{Label: "Field A", Unit: "T m^1-n", Format: "%.5g"}, kind: kindSpectrum, initial: []float64{}},
		"fieldB":           {info: tango.AttrInfo{Label: "Field B", Unit: "T m^1-n", Format: "%.5g"}, kind: kindSpectrum, initial: []float64{}},
		"fieldAnormalised": {info: tango.AttrInfo{Label: "Field A norm", Unit: "m^-n", Format: "%.5g"}, kind: kindSpectrum, initial: []float64{}},
		"fieldBnormalised": {info: tango.AttrInfo{Label: "Field B norm", Unit: "m^-n", Format: "%.5g"}, kind: kindSpectrum, initial: []float64{}},
	})
}

var classes = map[string]*classModel{
	"PowerSupply": {
		attrs: with(stateAttrs(tango.StateOff, "The power supply is off"), map[string]attrSpec{
			"Current": func() attrSpec {
				a := floatAttr("Current", "A", "%.3f", true, -200, 200, 0)
				a.tracksSetpoint = true
				return a
			}(),
			"Voltage":   floatAttr("Voltage", "V", "%.2f", false, 0, 0, 0),
			"Impedance": floatAttr("Impedance", "Ohm", "%.4f", false, 0, 0, 0.05),
		}),
		commands: onOff(tango.StateOn, "The power supply is on", "The power supply is off"),
		step:     stepPowerSupply,
	},
	"PulsePowerSupply": {
		attrs: with(stateAttrs(tango.StateOff, "The pulser is off"), map[string]attrSpec{
			"Voltage":     floatAttr("Voltage", "kV", "%.2f", true, 0, 40, 10),
			"Frequency":   floatAttr("Frequency", "Hz", "%.1f", true, 0, 10, 2),
			"PulseLength": floatAttr("Pulse length", "us", "%.2f", true, 0, 10, 3.2),
		}),
		commands: onOff(tango.StateOn, "The pulser is on", "The pulser is off"),
	},
	"MagnetCircuit": {
		attrs: with(circuitAttrs(), map[string]attrSpec{
			"cyclingState":  {info: tango.AttrInfo{Label: "Cycling"}, kind: kindBool, initial: false},
			"cyclingStatus": {info: tango.AttrInfo{Label: "Cycling status"}, kind: kindString, initial: "Not cycling"},
		}),
		commands: map[string]func(*Simulator, *device) error{
			"StartCycle": func(s *Simulator, d *device) error {
				ps := d.linked(s, "PowerSupplyProxy")
				if ps == nil || ps.state() != tango.StateOn {
					return errPowerSupplyOff
				}
				if cycling, _ := d.values["cyclingState"].Data.(bool); cycling {
					return errAlreadyCycling
				}
				d.cyclePhase = 0
				d.set("cyclingState", true, tango.Valid, s.now())
				d.set("cyclingStatus", "Cycling started", tango.Valid, s.now())
				return nil
			},
			"StopCycle": func(s *Simulator, d *device) error {
				d.set("cyclingState", false, tango.Valid, s.now())
				d.set("cyclingStatus", "Cycling stopped", tango.Valid, s.now())
				d.lastSetpoint = math.NaN()
				return nil
			},
		},
		links: []string{"PowerSupplyProxy"},
		step:  stepCircuit,
	},
	"TrimCircuit": {
		attrs: with(circuitAttrs(), map[string]attrSpec{
			"cyclingState": {info: tango.AttrInfo{Label: "Cycling"}, kind: kindBool, initial: false},
		}),
		commands: map[string]func(*Simulator, *device) error{},
		links:    []string{"PowerSupplyProxy", "SwitchBoardProxy"},
		step:     stepCircuit,
	},
	"Magnet": {
		attrs:    stateAttrs(tango.StateUnknown, "Initialising"),
		commands: map[string]func(*Simulator, *device) error{},
		links:    []string{"CircuitProxies"},
		step:     stepFollower("CircuitProxies"),
	},
	"SwitchBoard": {
		attrs: with(stateAttrs(tango.StateOn, "Switchboard ready"), map[string]attrSpec{
			"Mode":     {info: tango.AttrInfo{Label: "Mode", Writable: true}, kind: kindString, initial: "QUADRUPOLE"},
			"Polarity": {info: tango.AttrInfo{Label: "Polarity", Writable: true}, kind: kindString, initial: "NORMAL"},
		}),
		commands: onOff(tango.StateOn, "Switchboard ready", "Switchboard disabled"),
	},
}
