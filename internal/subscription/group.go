package subscription

import (
	"errors"

	"github.com/maxlab/magnetpanel/internal/tango"
)

// Group holds the listeners of one binding so they can be released together.
type Group struct {
	reg *Registry
	ids []ListenerID
}

func (r *Registry) NewGroup() *Group {
	return &Group{reg: r}
}

// Subscribe adds l to every attr. If any of them fails, the listeners
// added by this call are removed again and the error is returned.
func (g *Group) Subscribe(l Listener, attrs ...tango.ModelID) error {
	added := make([]ListenerID, 0, len(attrs))
	for _, attr := range attrs {
		id, err := g.reg.Add(attr, l)
		if err != nil {
			for _, done := range added {
				_ = g.reg.Remove(done)
			}
			return err
		}
		added = append(added, id)
	}
	g.ids = append(g.ids, added...)
	return nil
}

// Len is the number of listeners held.
func (g *Group) Len() int { return len(g.ids) }

// Close removes every listener in the group. It is safe to call twice.
func (g *Group) Close() error {
	var errs []error
	for _, id := range g.ids {
		if err := g.reg.Remove(id); err != nil {
			errs = append(errs, err)
		}
	}
	g.ids = nil
	return errors.Join(errs...)
}
