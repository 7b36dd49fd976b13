package subscription

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/maxlab/magnetpanel/internal/tango"
)

// ListenerID identifies one listener added to a Registry.
type ListenerID string

// Listener is called for every notification on its target.
type Listener func(attr tango.ModelID, v tango.Value)

type target struct {
	handle    tango.Handle
	listeners map[ListenerID]Listener
	order     []ListenerID
}

// Registry keeps a set of listeners per attribute and holds a single
// upstream subscription per attribute. Adding a listener never replaces
// the ones already registered on the same attribute.
type Registry struct {
	source  tango.Source
	mu      sync.RWMutex
	targets map[tango.ModelID]*target
	owners  map[ListenerID]tango.ModelID
}

func NewRegistry(source tango.Source) *Registry {
	return &Registry{
		source:  source,
		targets: make(map[tango.ModelID]*target),
		owners:  make(map[ListenerID]tango.ModelID),
	}
}

// Add registers l on attr, subscribing upstream on first use.
func (r *Registry) Add(attr tango.ModelID, l Listener) (ListenerID, error) {
	if err := attr.Validate(); err != nil {
		return "", err
	}
	id := ListenerID(uuid.NewString())

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.targets[attr]
	if !ok {
		t = &target{listeners: make(map[ListenerID]Listener)}
		r.targets[attr] = t
		h, err := r.source.Subscribe(attr, r.fanOut)
		if err != nil {
			delete(r.targets, attr)
			return "", fmt.Errorf("subscribe %s: %w", attr, err)
		}
		t.handle = h
		slog.Debug("subscription opened", "attr", attr, "handle", h)
	}
	t.listeners[id] = l
	t.order = append(t.order, id)
	r.owners[id] = attr
	return id, nil
}

// Remove drops one listener. Removing the last listener of an attribute
// closes the upstream subscription. Unknown ids are ignored.
func (r *Registry) Remove(id ListenerID) error {
	r.mu.Lock()
	attr, ok := r.owners[id]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.owners, id)
	t := r.targets[attr]
	delete(t.listeners, id)
	for i, other := range t.order {
		if other == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	if len(t.listeners) > 0 {
		r.mu.Unlock()
		return nil
	}
	delete(r.targets, attr)
	handle := t.handle
	r.mu.Unlock()

	slog.Debug("subscription closed", "attr", attr, "handle", handle)
	if handle == "" {
		return nil
	}
	if err := r.source.Unsubscribe(handle); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", attr, err)
	}
	return nil
}

func (r *Registry) fanOut(attr tango.ModelID, v tango.Value) {
	r.mu.RLock()
	t, ok := r.targets[attr]
	if !ok {
		r.mu.RUnlock()
		return
	}
	ls := make([]Listener, 0, len(t.order))
	for _, id := range t.order {
		ls = append(ls, t.listeners[id])
	}
	r.mu.RUnlock()

	for _, l := range ls {
		l(attr, v)
	}
}

// Targets lists the attributes that currently hold an upstream subscription.
func (r *Registry) Targets() []tango.ModelID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]tango.ModelID, 0, len(r.targets))
	for attr := range r.targets {
		out = append(out, attr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Listeners returns how many listeners are registered on attr.
func (r *Registry) Listeners(attr tango.ModelID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.targets[attr]; ok {
		return len(t.listeners)
	}
	return 0
}
