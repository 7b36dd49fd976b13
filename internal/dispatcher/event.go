package dispatcher

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maxlab/magnetpanel/internal/eventbus"
	"github.com/maxlab/magnetpanel/internal/update"
)

// EventDispatcher turns the two inbound streams, core events and attribute
// updates, into Bubble Tea messages. Each listener returns after one
// message; the model re-arms it.
type EventDispatcher struct {
	eventBus *eventbus.EventBus
	updates  *eventbus.Coalescer
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewEventDispatcher(eventBus *eventbus.EventBus, updates *eventbus.Coalescer) *EventDispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventDispatcher{
		eventBus: eventBus,
		updates:  updates,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// ListenForCoreEvents waits for the next core event.
func (ed *EventDispatcher) ListenForCoreEvents() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ed.ctx.Done():
			return nil
		case ev, ok := <-ed.eventBus.CoreToUI():
			if !ok {
				return nil
			}
			return update.CoreEventMsg{Event: ev}
		}
	}
}

// ListenForUpdates waits for the next batch of coalesced updates.
func (ed *EventDispatcher) ListenForUpdates() tea.Cmd {
	return func() tea.Msg {
		batch, err := ed.updates.Next(ed.ctx)
		if err != nil {
			return nil
		}
		return update.UpdatesMsg{Updates: batch}
	}
}

func (ed *EventDispatcher) Stop() {
	ed.cancel()
}

func (ed *EventDispatcher) Updates() *eventbus.Coalescer {
	return ed.updates
}
