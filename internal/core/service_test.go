package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maxlab/magnetpanel/internal/eventbus"
	"github.com/maxlab/magnetpanel/internal/models"
	"github.com/maxlab/magnetpanel/internal/tango"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Command(ctx context.Context, device tango.ModelID, name string) error {
	return m.Called(device, name).Error(0)
}

func (m *mockBackend) Write(ctx context.Context, attr tango.ModelID, value any) error {
	return m.Called(attr, value).Error(0)
}

func startService(t *testing.T, b Backend, opts Options) *eventbus.EventBus {
	t.Helper()
	eb := eventbus.NewEventBus()
	svc := NewControlService(b, eb, opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = svc.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return eb
}

// waitFor drains core events until one of type T arrives.
func waitFor[T eventbus.CoreEvent](t *testing.T, eb *eventbus.EventBus) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-eb.CoreToUI():
			if v, ok := ev.(T); ok {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("no %T within deadline", zero)
			return zero
		}
	}
}

func TestWelcomeStateIsPushedOnStart(t *testing.T) {
	eb := startService(t, &mockBackend{}, Options{Profile: "lab"})
	st := waitFor[eventbus.StateUpdateEvent](t, eb)
	require.False(t, st.Busy)
	require.NotEmpty(t, st.Log)
	require.Equal(t, "Active profile: lab", st.Log[1].Content)
}

func TestCommandIsExecuted(t *testing.T) {
	b := &mockBackend{}
	b.On("Command", tango.ModelID("r3/mag/ps1"), "On").Return(nil).Once()
	eb := startService(t, b, Options{Confirm: true})

	require.NoError(t, eb.SendToCore(eventbus.RunCommandEvent{Device: "r3/mag/ps1", Command: "On"}))
	res := waitFor[eventbus.CommandResultEvent](t, eb)
	require.NoError(t, res.Err)
	require.Equal(t, "r3/mag/ps1", res.Target)
	require.Equal(t, "On", res.Action)
	b.AssertExpectations(t)
}

func TestFailedWriteIsLogged(t *testing.T) {
	b := &mockBackend{}
	b.On("Write", tango.ModelID("r3/mag/ps1/Current"), 12.5).Return(tango.ErrReadOnly)
	eb := startService(t, b, Options{})

	require.NoError(t, eb.SendToCore(eventbus.WriteAttributeEvent{Attr: "r3/mag/ps1/Current", Value: 12.5}))
	st := waitFor[eventbus.StateUpdateEvent](t, eb)
	for st.Error == nil {
		st = waitFor[eventbus.StateUpdateEvent](t, eb)
	}
	require.ErrorIs(t, st.Error, tango.ErrReadOnly)
	require.Equal(t, models.Failure, st.Log[len(st.Log)-1].Kind)

	res := waitFor[eventbus.CommandResultEvent](t, eb)
	require.ErrorIs(t, res.Err, tango.ErrReadOnly)
}

func TestDisruptiveCommandNeedsConfirmation(t *testing.T) {
	b := &mockBackend{}
	eb := startService(t, b, Options{Confirm: true})

	require.NoError(t, eb.SendToCore(eventbus.RunCommandEvent{Device: "r3/mag/ps1", Command: "Off"}))
	req := waitFor[eventbus.ConfirmationRequestEvent](t, eb)
	require.Equal(t, "Off", req.Command)
	require.NotEmpty(t, req.ID)

	require.NoError(t, eb.SendToCore(eventbus.ConfirmationResponseEvent{ID: req.ID, Approved: false}))
	res := waitFor[eventbus.CommandResultEvent](t, eb)
	require.True(t, errors.Is(res.Err, ErrDeclined))
	b.AssertNotCalled(t, "Command", mock.Anything, mock.Anything)
}

func TestApprovedCommandRuns(t *testing.T) {
	b := &mockBackend{}
	b.On("Command", tango.ModelID("r3/mag/crq1"), "StopCycle").Return(nil).Once()
	eb := startService(t, b, Options{Confirm: true})

	require.NoError(t, eb.SendToCore(eventbus.RunCommandEvent{Device: "r3/mag/crq1", Command: "StopCycle"}))
	req := waitFor[eventbus.ConfirmationRequestEvent](t, eb)
	require.NoError(t, eb.SendToCore(eventbus.ConfirmationResponseEvent{ID: req.ID, Approved: true}))
	res := waitFor[eventbus.CommandResultEvent](t, eb)
	require.NoError(t, res.Err)
	b.AssertExpectations(t)
}

func TestStateSince(t *testing.T) {
	st := NewControlState()
	st.AddEntry(models.Info, "", "a")
	st.AddEntry(models.Command, "r3/mag/ps1", "On")
	got, n := st.Since(1)
	require.Equal(t, 2, n)
	require.Len(t, got, 1)
	require.Equal(t, models.Command, got[0].Kind)
	got, n = st.Since(5)
	require.Empty(t, got)
	require.Equal(t, 2, n)
}
