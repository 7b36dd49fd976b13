// Package panel defines what a bindable panel is and the tab container
// that binds panels lazily, one at a time.
package panel

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/maxlab/magnetpanel/internal/eventbus"
	"github.com/maxlab/magnetpanel/internal/subscription"
	"github.com/maxlab/magnetpanel/internal/tango"
)

// Panel is a visual unit bound to at most one model at a time. A failed
// Bind must leave the panel unbound.
type Panel interface {
	Bind(ctx context.Context, model tango.ModelID) error
	Unbind()
	// Model is the bound model, empty when unbound.
	Model() tango.ModelID
	// Token identifies the current binding; updates carrying another
	// token are stale.
	Token() string
	Apply(u eventbus.Update)
	Update(msg tea.Msg) tea.Cmd
	View(width, height int) string
}

// BindError is returned when a panel cannot bind to a model.
type BindError struct {
	Label string
	Model tango.ModelID
	Err   error
}

func (e *BindError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("bind %s tab to %s: %v", e.Label, e.Model, e.Err)
	}
	return fmt.Sprintf("bind %s: %v", e.Model, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// Env carries the collaborators panels need to subscribe.
type Env struct {
	Subs    *subscription.Registry
	Reader  tango.Reader
	Updates *eventbus.Coalescer
	// Commands, if set, receives command requests from panel buttons.
	Commands func(device tango.ModelID, command string) tea.Cmd
	// Writes, if set, receives attribute writes from forms.
	Writes func(attr tango.ModelID, value any) tea.Cmd
}

// Binding is the live subscription set of one panel binding.
type Binding struct {
	Token string
	Model tango.ModelID

	group   *subscription.Group
	updates *eventbus.Coalescer
}

// Bind subscribes to every attr on behalf of model. Either all of them are
// subscribed or none is.
func (e Env) Bind(model tango.ModelID, attrs ...tango.ModelID) (*Binding, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	if e.Subs == nil || e.Updates == nil {
		return nil, errors.New("panel environment is not wired")
	}
	token := uuid.NewString()
	updates := e.Updates
	g := e.Subs.NewGroup()
	err := g.Subscribe(func(attr tango.ModelID, v tango.Value) {
		updates.Post(eventbus.Update{Token: token, Attr: attr, Value: v})
	}, attrs...)
	if err != nil {
		return nil, err
	}
	return &Binding{Token: token, Model: model, group: g, updates: updates}, nil
}

// Release unsubscribes everything and drops updates still queued for the
// binding. It is safe on a nil Binding.
func (b *Binding) Release() {
	if b == nil {
		return
	}
	_ = b.group.Close()
	b.updates.Drop(b.Token)
}

// Command asks the environment to run a device command.
func (e Env) Command(device tango.ModelID, command string) tea.Cmd {
	if e.Commands == nil || device == "" {
		return nil
	}
	return e.Commands(device, command)
}

// Write asks the environment to write an attribute.
func (e Env) Write(attr tango.ModelID, value any) tea.Cmd {
	if e.Writes == nil || attr == "" {
		return nil
	}
	return e.Writes(attr, value)
}
