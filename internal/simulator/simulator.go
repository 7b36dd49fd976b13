// Package simulator is an in-process control system. It keeps the state of
// every device it is asked about, advances it on a fixed period and
// publishes change events to subscribers.
package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maxlab/magnetpanel/internal/tango"
)

// Catalog tells the simulator which devices exist.
type Catalog interface {
	ClassOf(ctx context.Context, device tango.ModelID) (string, error)
	GetProperty(ctx context.Context, device tango.ModelID, name string) ([]string, error)
}

type subscription struct {
	attr tango.ModelID
	cb   tango.Callback
}

type delivery struct {
	attr tango.ModelID
	cb   tango.Callback
	v    tango.Value
}

// batch is the set of events of one snapshot. seq orders batches in the
// order their snapshots were taken under mu.
type batch struct {
	seq uint64
	ds  []delivery
}

// Simulator implements tango.ControlSystem.
type Simulator struct {
	catalog Catalog
	period  time.Duration
	now     func() time.Time

	mu          sync.Mutex
	devices     map[tango.ModelID]*device
	subs        map[tango.Handle]subscription
	initial     []tango.Handle
	unreachable map[tango.ModelID]bool

	kick chan struct{}

	// batches are delivered strictly in seq order, whatever goroutine
	// produced them
	deliverMu   sync.Mutex
	deliverTurn *sync.Cond
	issued      uint64
	served      uint64
}

func New(catalog Catalog, period time.Duration) *Simulator {
	if period <= 0 {
		period = time.Second
	}
	s := &Simulator{
		catalog:     catalog,
		period:      period,
		now:         time.Now,
		devices:     make(map[tango.ModelID]*device),
		subs:        make(map[tango.Handle]subscription),
		unreachable: make(map[tango.ModelID]bool),
		kick:        make(chan struct{}, 1),
	}
	s.deliverTurn = sync.NewCond(&s.deliverMu)
	return s
}

// Run advances the simulation until ctx is done.
func (s *Simulator) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	last := s.now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.kick:
			s.deliver(s.collectInitial())
		case t := <-ticker.C:
			dt := t.Sub(last)
			last = t
			s.deliver(s.step(dt))
		}
	}
}

// SetUnreachable makes every operation on device fail with ErrUnreachable.
func (s *Simulator) SetUnreachable(device tango.ModelID, down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unreachable[device] = down
}

// lookup returns the device, creating its state on first use. Callers
// hold s.mu.
func (s *Simulator) lookup(ctx context.Context, name tango.ModelID) (*device, error) {
	if err := name.Validate(); err != nil {
		return nil, err
	}
	if s.unreachable[name] {
		return nil, fmt.Errorf("%s: %w", name, tango.ErrUnreachable)
	}
	if d, ok := s.devices[name]; ok {
		return d, nil
	}
	class, err := s.catalog.ClassOf(ctx, name)
	if err != nil {
		return nil, err
	}
	model, ok := classes[class]
	if !ok {
		return nil, fmt.Errorf("device %s has unsupported class %q: %w", name, class, tango.ErrNotFound)
	}
	d := newDevice(name, class, model, s.now())
	s.devices[name] = d
	slog.Debug("simulated device created", "device", name, "class", class)
	for _, prop := range model.links {
		vals, err := s.catalog.GetProperty(ctx, name, prop)
		if err != nil || len(vals) == 0 {
			continue
		}
		link := tango.ModelID(vals[0])
		d.links[prop] = link
		if _, err := s.lookup(ctx, link); err != nil {
			slog.Warn("linked device unavailable", "device", name, "property", prop, "link", link, "err", err)
		}
	}
	return d, nil
}

func (s *Simulator) attribute(ctx context.Context, attr tango.ModelID) (*device, attrSpec, error) {
	if err := attr.Validate(); err != nil {
		return nil, attrSpec{}, err
	}
	d, err := s.lookup(ctx, attr.Device())
	if err != nil {
		return nil, attrSpec{}, err
	}
	spec, ok := d.model.attrs[attr.Name()]
	if !ok {
		return nil, attrSpec{}, fmt.Errorf("attribute %s: %w", attr, tango.ErrNotFound)
	}
	return d, spec, nil
}

func (s *Simulator) Subscribe(attr tango.ModelID, cb tango.Callback) (tango.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, err := s.attribute(context.Background(), attr); err != nil {
		return "", err
	}
	h := tango.Handle(uuid.NewString())
	s.subs[h] = subscription{attr: attr, cb: cb}
	s.initial = append(s.initial, h)
	select {
	case s.kick <- struct{}{}:
	default:
	}
	return h, nil
}

func (s *Simulator) Unsubscribe(h tango.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[h]; !ok {
		return fmt.Errorf("subscription %s: %w", h, tango.ErrNotFound)
	}
	delete(s.subs, h)
	return nil
}

// Subscriptions reports how many upstream subscriptions are open.
func (s *Simulator) Subscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Simulator) Info(ctx context.Context, attr tango.ModelID) (tango.AttrInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, spec, err := s.attribute(ctx, attr)
	if err != nil {
		return tango.AttrInfo{}, err
	}
	return spec.info, nil
}

func (s *Simulator) Read(ctx context.Context, attr tango.ModelID) (tango.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, _, err := s.attribute(ctx, attr)
	if err != nil {
		return tango.Value{}, err
	}
	return d.values[attr.Name()], nil
}

func (s *Simulator) Command(ctx context.Context, device tango.ModelID, name string) error {
	s.mu.Lock()
	d, err := s.lookup(ctx, device)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	fn, ok := d.model.commands[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s on %s: %w", name, device, tango.ErrNoCommand)
	}
	before := d.snapshot()
	err = fn(s, d)
	changed := s.batchLocked(s.changesLocked(map[tango.ModelID]map[string]tango.Value{device: before}))
	s.mu.Unlock()
	s.deliver(changed)
	if err != nil {
		return fmt.Errorf("%s on %s: %w", name, device, err)
	}
	slog.Info("command executed", "device", device, "command", name)
	return nil
}

func (s *Simulator) Write(ctx context.Context, attr tango.ModelID, value any) error {
	s.mu.Lock()
	d, spec, err := s.attribute(ctx, attr)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if !spec.info.Writable {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", attr, tango.ErrReadOnly)
	}
	v, err := spec.coerce(value)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("write %s: %w", attr, err)
	}
	before := d.snapshot()
	cur := d.values[attr.Name()]
	cur.WriteValue = v
	if !spec.tracksSetpoint {
		cur.Data = v
	}
	cur.Time = s.now()
	d.values[attr.Name()] = cur
	changed := s.batchLocked(s.changesLocked(map[tango.ModelID]map[string]tango.Value{d.name: before}))
	s.mu.Unlock()
	s.deliver(changed)
	return nil
}

// Advance moves the simulation forward by dt and publishes the resulting
// change events on the calling goroutine.
func (s *Simulator) Advance(dt time.Duration) {
	s.deliver(s.step(dt))
}

func (s *Simulator) step(dt time.Duration) batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	before := make(map[tango.ModelID]map[string]tango.Value, len(s.devices))
	for name, d := range s.devices {
		before[name] = d.snapshot()
	}
	for _, d := range s.devices {
		if d.model.step != nil {
			d.model.step(s, d, dt, now)
		}
	}
	return s.batchLocked(s.changesLocked(before))
}

// changesLocked diffs device values against before and returns one
// delivery per subscriber of a changed attribute.
func (s *Simulator) changesLocked(before map[tango.ModelID]map[string]tango.Value) []delivery {
	var out []delivery
	for _, sub := range s.subs {
		dev := sub.attr.Device()
		prev, ok := before[dev]
		if !ok {
			continue
		}
		d := s.devices[dev]
		if d == nil {
			continue
		}
		name := sub.attr.Name()
		cur := d.values[name]
		if old, ok := prev[name]; ok && sameValue(old, cur) {
			continue
		}
		out = append(out, delivery{attr: sub.attr, cb: sub.cb, v: cur})
	}
	return out
}

func (s *Simulator) collectInitial() batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []delivery
	for _, h := range s.initial {
		sub, ok := s.subs[h]
		if !ok {
			continue
		}
		d := s.devices[sub.attr.Device()]
		if d == nil {
			continue
		}
		out = append(out, delivery{attr: sub.attr, cb: sub.cb, v: d.values[sub.attr.Name()]})
	}
	s.initial = s.initial[:0]
	return s.batchLocked(out)
}

// Flush delivers the initial values of new subscriptions immediately.
func (s *Simulator) Flush() {
	s.deliver(s.collectInitial())
}

// batchLocked stamps ds with the next sequence number. Callers hold s.mu
// and must pass the result to deliver.
func (s *Simulator) batchLocked(ds []delivery) batch {
	s.issued++
	return batch{seq: s.issued, ds: ds}
}

// deliver waits until every earlier batch has been delivered, so a
// subscriber never sees an older value after a newer one. Callbacks must
// not call back into Command or Write.
func (s *Simulator) deliver(b batch) {
	s.deliverMu.Lock()
	for s.served+1 != b.seq {
		s.deliverTurn.Wait()
	}
	s.deliverMu.Unlock()

	for _, d := range b.ds {
		d.cb(d.attr, d.v)
	}

	s.deliverMu.Lock()
	s.served = b.seq
	s.deliverTurn.Broadcast()
	s.deliverMu.Unlock()
}

func sameValue(a, b tango.Value) bool {
	return a.Quality == b.Quality && sameData(a.Data, b.Data) && sameData(a.WriteValue, b.WriteValue)
}

// sameData treats NaN entries of spectra as equal so unused channels do
// not produce an event on every tick.
func sameData(a, b any) bool {
	as, aok := a.([]float64)
	bs, bok := b.([]float64)
	if !aok || !bok {
		return reflect.DeepEqual(a, b)
	}
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i] != bs[i] && !(math.IsNaN(as[i]) && math.IsNaN(bs[i])) {
			return false
		}
	}
	return true
}
