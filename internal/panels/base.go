// Package panels holds the concrete panels of the magnet and trim coil
// applications and the tab layouts that combine them.
package panels

import (
	"context"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/maxlab/magnetpanel/internal/eventbus"
	"github.com/maxlab/magnetpanel/internal/panel"
	"github.com/maxlab/magnetpanel/internal/tango"
)

type widget interface {
	Attrs() []tango.ModelID
	Apply(attr tango.ModelID, v tango.Value) bool
}

type loader interface {
	Load(ctx context.Context, r tango.Reader) error
}

// Lookup is the part of the topology walk panels need after binding.
type Lookup interface {
	Magnets(ctx context.Context, circuit tango.ModelID) ([]tango.ModelID, error)
	PowerSupplyOf(ctx context.Context, circuit tango.ModelID) (tango.ModelID, error)
}

// base carries the binding bookkeeping shared by every panel. Widgets are
// rebuilt on each Bind, so nothing from a previous model leaks through.
type base struct {
	env     panel.Env
	binding *panel.Binding
	widgets []widget
}

// bind loads widget metadata and subscribes to every widget attribute. On
// failure nothing stays subscribed.
func (b *base) bind(ctx context.Context, model tango.ModelID, ws ...widget) error {
	if err := model.Validate(); err != nil {
		return err
	}
	if b.env.Reader != nil {
		for _, w := range ws {
			if l, ok := w.(loader); ok {
				if err := l.Load(ctx, b.env.Reader); err != nil {
					return err
				}
			}
		}
	}
	var attrs []tango.ModelID
	for _, w := range ws {
		attrs = append(attrs, w.Attrs()...)
	}
	binding, err := b.env.Bind(model, attrs...)
	if err != nil {
		return err
	}
	b.binding = binding
	b.widgets = ws
	return nil
}

func (b *base) Unbind() {
	b.binding.Release()
	b.binding = nil
	b.widgets = nil
}

func (b *base) Model() tango.ModelID {
	if b.binding == nil {
		return ""
	}
	return b.binding.Model
}

func (b *base) Token() string {
	if b.binding == nil {
		return ""
	}
	return b.binding.Token
}

func (b *base) Apply(u eventbus.Update) {
	for _, w := range b.widgets {
		w.Apply(u.Attr, u.Value)
	}
}

func (b *base) bound() bool { return b.binding != nil }

func unbound(width int) string {
	return lipgloss.NewStyle().
		Width(max(1, width)).
		Foreground(lipgloss.Color("241")).
		Render("No model")
}

func stack(parts ...string) string {
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}
