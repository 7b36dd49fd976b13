package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxlab/magnetpanel/internal/eventbus"
	"github.com/maxlab/magnetpanel/internal/update"
)

func TestCoreEventsBecomeMessages(t *testing.T) {
	eb := eventbus.NewEventBus()
	ed := NewEventDispatcher(eb, eventbus.NewCoalescer())
	defer ed.Stop()

	require.NoError(t, eb.SendToUI(eventbus.StateUpdateEvent{Busy: true}))
	msg := ed.ListenForCoreEvents()()
	ce, ok := msg.(update.CoreEventMsg)
	require.True(t, ok)
	require.Equal(t, eventbus.StateUpdateEvent{Busy: true}, ce.Event)
}

func TestUpdatesArriveAsOneBatch(t *testing.T) {
	c := eventbus.NewCoalescer()
	ed := NewEventDispatcher(eventbus.NewEventBus(), c)
	defer ed.Stop()

	c.Post(eventbus.Update{Token: "t", Attr: "a/b/c/X"})
	c.Post(eventbus.Update{Token: "t", Attr: "a/b/c/Y"})
	msg := ed.ListenForUpdates()()
	um, ok := msg.(update.UpdatesMsg)
	require.True(t, ok)
	require.Len(t, um.Updates, 2)
}

func TestStoppedListenersReturnNil(t *testing.T) {
	ed := NewEventDispatcher(eventbus.NewEventBus(), eventbus.NewCoalescer())
	ed.Stop()
	require.Nil(t, ed.ListenForCoreEvents()())
	require.Nil(t, ed.ListenForUpdates()())
}
