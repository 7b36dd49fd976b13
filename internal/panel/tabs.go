package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maxlab/magnetpanel/internal/eventbus"
	"github.com/maxlab/magnetpanel/internal/tango"
)

var (
	ErrModelCount      = errors.New("model count does not match tab count")
	ErrIndexOutOfRange = errors.New("tab index out of range")
)

type tabEntry struct {
	label   string
	panel   Panel
	pending tango.ModelID
}

// LazyTabs holds an ordered list of panels and binds only the selected one.
// Selecting a tab releases the previous tab's binding first, so at most one
// panel holds live subscriptions. All methods must run on the UI loop.
type LazyTabs struct {
	entries []*tabEntry
	active  int
}

func NewLazyTabs() *LazyTabs {
	return &LazyTabs{active: -1}
}

func (t *LazyTabs) Len() int { return len(t.entries) }

// Active returns the selected index or -1.
func (t *LazyTabs) Active() int { return t.active }

func (t *LazyTabs) Label(i int) string {
	if !t.valid(i) {
		return ""
	}
	return t.entries[i].label
}

func (t *LazyTabs) Panel(i int) Panel {
	if !t.valid(i) {
		return nil
	}
	return t.entries[i].panel
}

// Pending returns the identifier tab i binds to when selected.
func (t *LazyTabs) Pending(i int) tango.ModelID {
	if !t.valid(i) {
		return ""
	}
	return t.entries[i].pending
}

// ActivePanel returns the selected panel or nil.
func (t *LazyTabs) ActivePanel() Panel {
	return t.Panel(t.active)
}

// BoundCount is the number of panels holding a model.
func (t *LazyTabs) BoundCount() int {
	n := 0
	for _, e := range t.entries {
		if e.panel.Model() != "" {
			n++
		}
	}
	return n
}

func (t *LazyTabs) valid(i int) bool { return i >= 0 && i < len(t.entries) }

// AddTab appends a tab with no pending model and returns its index.
func (t *LazyTabs) AddTab(label string, p Panel) int {
	t.entries = append(t.entries, &tabEntry{label: label, panel: p})
	return len(t.entries) - 1
}

// InsertTab inserts a tab at index, shifting later tabs up by one.
func (t *LazyTabs) InsertTab(index int, label string, p Panel) int {
	if index < 0 {
		index = 0
	}
	if index >= len(t.entries) {
		return t.AddTab(label, p)
	}
	t.entries = append(t.entries, nil)
	copy(t.entries[index+1:], t.entries[index:])
	t.entries[index] = &tabEntry{label: label, panel: p}
	if t.active >= index {
		t.active++
	}
	return index
}

// RemoveTab unbinds the tab if it is active and removes it. Later tabs
// shift down by one. Removing the active tab leaves nothing selected.
func (t *LazyTabs) RemoveTab(index int) error {
	if !t.valid(index) {
		return fmt.Errorf("remove tab %d: %w", index, ErrIndexOutOfRange)
	}
	switch {
	case index == t.active:
		t.unbind(index)
		t.active = -1
	case index < t.active:
		t.active--
	}
	t.entries = append(t.entries[:index], t.entries[index+1:]...)
	return nil
}

// ReplaceTab swaps the panel of a tab, keeping its label and pending model.
// When the tab is active the new panel is bound right away.
func (t *LazyTabs) ReplaceTab(ctx context.Context, index int, p Panel) error {
	if !t.valid(index) {
		return fmt.Errorf("replace tab %d: %w", index, ErrIndexOutOfRange)
	}
	if index == t.active {
		t.unbind(index)
	}
	t.entries[index].panel = p
	if index == t.active {
		return t.bind(ctx, index)
	}
	return nil
}

// SetModel assigns the pending model of every tab, in order. An empty list
// clears them all. The active tab, if any, is rebound immediately; other
// tabs bind when selected.
func (t *LazyTabs) SetModel(ctx context.Context, ids []tango.ModelID) error {
	if len(ids) != 0 && len(ids) != len(t.entries) {
		return fmt.Errorf("%w: got %d models for %d tabs", ErrModelCount, len(ids), len(t.entries))
	}
	for i, e := range t.entries {
		if len(ids) == 0 {
			e.pending = ""
		} else {
			e.pending = ids[i]
		}
	}
	if !t.valid(t.active) {
		return nil
	}
	e := t.entries[t.active]
	if e.pending != "" && e.panel.Model() == e.pending {
		return nil
	}
	t.unbind(t.active)
	return t.bind(ctx, t.active)
}

// Select makes index the active tab. The previous tab is unbound first;
// the new one is bound to its pending model if it has one. Selecting the
// active tab again does nothing. A bind failure leaves the tab selected
// but unbound and is returned as a *BindError.
func (t *LazyTabs) Select(ctx context.Context, index int) error {
	if !t.valid(index) {
		return fmt.Errorf("select tab %d: %w", index, ErrIndexOutOfRange)
	}
	if index == t.active {
		return nil
	}
	if t.valid(t.active) {
		t.unbind(t.active)
	}
	t.active = index
	if t.entries[index].panel.Model() != "" {
		return nil
	}
	return t.bind(ctx, index)
}

// Step selects the tab delta positions away, wrapping around.
func (t *LazyTabs) Step(ctx context.Context, delta int) error {
	n := len(t.entries)
	if n == 0 {
		return nil
	}
	from := t.active
	if from < 0 {
		from = 0
		if delta > 0 {
			delta--
		}
	}
	return t.Select(ctx, ((from+delta)%n+n)%n)
}

// Rebind retries binding the active tab, for an explicit operator request
// after a failure.
func (t *LazyTabs) Rebind(ctx context.Context) error {
	if !t.valid(t.active) {
		return nil
	}
	t.unbind(t.active)
	return t.bind(ctx, t.active)
}

// Clear unbinds the active panel and forgets every pending model.
func (t *LazyTabs) Clear() {
	for i, e := range t.entries {
		if i == t.active {
			t.unbind(i)
		}
		e.pending = ""
	}
}

// Dispatch hands a marshaled update to the active panel when it belongs to
// the panel's current binding, and discards it otherwise.
func (t *LazyTabs) Dispatch(u eventbus.Update) bool {
	p := t.ActivePanel()
	if p == nil || p.Model() == "" || p.Token() != u.Token {
		slog.Debug("stale update discarded", "attr", u.Attr, "token", u.Token)
		return false
	}
	p.Apply(u)
	return true
}

func (t *LazyTabs) bind(ctx context.Context, index int) error {
	e := t.entries[index]
	if e.pending == "" {
		return nil
	}
	if err := e.panel.Bind(ctx, e.pending); err != nil {
		// a failed bind must not leave a half-bound panel behind
		if e.panel.Model() != "" {
			e.panel.Unbind()
		}
		var be *BindError
		if errors.As(err, &be) {
			return err
		}
		return &BindError{Label: e.label, Model: e.pending, Err: err}
	}
	slog.Debug("tab bound", "tab", e.label, "model", e.pending)
	return nil
}

func (t *LazyTabs) unbind(index int) {
	e := t.entries[index]
	if e.panel.Model() == "" {
		return
	}
	slog.Debug("tab unbound", "tab", e.label, "model", e.panel.Model())
	e.panel.Unbind()
}
