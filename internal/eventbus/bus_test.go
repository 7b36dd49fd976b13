package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerOpensAndHalfOpens(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	require.False(t, cb.IsOpen())
	cb.RecordFailure()
	require.True(t, cb.IsOpen())

	now = now.Add(2 * time.Minute)
	require.False(t, cb.IsOpen())
	cb.RecordSuccess()
	require.False(t, cb.IsOpen())
}

func TestEventBusReportsFullChannel(t *testing.T) {
	eb := NewEventBus()
	var reported []EventBusError
	eb.SetErrorCallback(func(e EventBusError) { reported = append(reported, e) })

	for i := 0; i < cap(eb.uiToCore); i++ {
		require.NoError(t, eb.SendToCore(RunCommandEvent{Device: "d/ps/1", Command: "On"}))
	}
	err := eb.SendToCore(RunCommandEvent{Device: "d/ps/1", Command: "On"})
	require.ErrorIs(t, err, ErrChannelFull)
	require.Len(t, reported, 1)
	require.ErrorIs(t, reported[0], ErrChannelFull)

	ev := <-eb.UIToCore()
	require.Equal(t, RunCommandEvent{Device: "d/ps/1", Command: "On"}, ev)
}
