package simulator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/maxlab/magnetpanel/internal/tango"
)

type fakeCatalog struct {
	classes map[tango.ModelID]string
	props   map[tango.ModelID]map[string][]string
}

func (c fakeCatalog) ClassOf(_ context.Context, d tango.ModelID) (string, error) {
	class, ok := c.classes[d]
	if !ok {
		return "", tango.ErrNotFound
	}
	return class, nil
}

func (c fakeCatalog) GetProperty(_ context.Context, d tango.ModelID, name string) ([]string, error) {
	return c.props[d][name], nil
}

func newTestSimulator() *Simulator {
	cat := fakeCatalog{
		classes: map[tango.ModelID]string{
			"t/mag/cr1": "MagnetCircuit",
			"t/ps/1":    "PowerSupply",
			"t/mag/m1":  "Magnet",
		},
		props: map[tango.ModelID]map[string][]string{
			"t/mag/cr1": {"PowerSupplyProxy": {"t/ps/1"}},
			"t/mag/m1":  {"CircuitProxies": {"t/mag/cr1"}},
		},
	}
	return New(cat, time.Second)
}

type recorder struct {
	mu     sync.Mutex
	values []tango.Value
}

func (r *recorder) cb(_ tango.ModelID, v tango.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder) last() tango.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values[len(r.values)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

func TestSubscribeDeliversInitialValueOnFlush(t *testing.T) {
	sim := newTestSimulator()
	rec := &recorder{}

	_, err := sim.Subscribe("t/ps/1/State", rec.cb)
	require.NoError(t, err)
	require.Zero(t, rec.count(), "callback must not run inside Subscribe")

	sim.Flush()
	require.Equal(t, 1, rec.count())
	require.Equal(t, tango.StateOff, rec.last().Data)
}

func TestPowerSupplyRampsTowardsSetpoint(t *testing.T) {
	ctx := context.Background()
	sim := newTestSimulator()
	rec := &recorder{}
	_, err := sim.Subscribe("t/ps/1/Current", rec.cb)
	require.NoError(t, err)
	sim.Flush()

	require.NoError(t, sim.Command(ctx, "t/ps/1", "On"))
	require.NoError(t, sim.Write(ctx, "t/ps/1/Current", 50.0))

	sim.Advance(time.Second)
	v := rec.last()
	require.InDelta(t, 20.0, v.Data.(float64), 1e-9)
	require.Equal(t, tango.Changing, v.Quality)
	require.Equal(t, 50.0, v.WriteValue)

	sim.Advance(5 * time.Second)
	v = rec.last()
	require.InDelta(t, 50.0, v.Data.(float64), 1e-9)
	require.Equal(t, tango.Valid, v.Quality)
}

func TestEventsFollowSnapshotOrder(t *testing.T) {
	ctx := context.Background()
	sim := newTestSimulator()
	rec := &recorder{}

	var (
		gateMu  sync.Mutex
		armed   bool
		entered = make(chan struct{})
		release = make(chan struct{})
	)
	_, err := sim.Subscribe("t/ps/1/Current", func(attr tango.ModelID, v tango.Value) {
		gateMu.Lock()
		block := armed
		armed = false
		gateMu.Unlock()
		if block {
			close(entered)
			<-release
		}
		rec.cb(attr, v)
	})
	require.NoError(t, err)
	sim.Flush()

	require.NoError(t, sim.Command(ctx, "t/ps/1", "On"))
	require.NoError(t, sim.Write(ctx, "t/ps/1/Current", 50.0))
	sim.Advance(time.Second)

	gateMu.Lock()
	armed = true
	gateMu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sim.Advance(time.Second)
	}()
	<-entered

	go func() {
		defer wg.Done()
		require.NoError(t, sim.Write(ctx, "t/ps/1/Current", 5.0))
	}()
	require.Eventually(t, func() bool {
		v, err := sim.Read(ctx, "t/ps/1/Current")
		return err == nil && v.WriteValue == 5.0
	}, time.Second, time.Millisecond)

	close(release)
	wg.Wait()

	require.Equal(t, 5.0, rec.last().WriteValue)

	sim.Advance(time.Second)
	require.Equal(t, 5.0, rec.last().WriteValue)
}

func TestNoEventWithoutChange(t *testing.T) {
	sim := newTestSimulator()
	rec := &recorder{}
	_, err := sim.Subscribe("t/ps/1/Impedance", rec.cb)
	require.NoError(t, err)
	sim.Flush()
	sim.Advance(time.Second)
	sim.Advance(time.Second)
	require.Equal(t, 1, rec.count())
}

func TestUnsubscribeStopsEvents(t *testing.T) {
	ctx := context.Background()
	sim := newTestSimulator()
	rec := &recorder{}
	h, err := sim.Subscribe("t/ps/1/State", rec.cb)
	require.NoError(t, err)
	sim.Flush()
	require.NoError(t, sim.Unsubscribe(h))
	require.Zero(t, sim.Subscriptions())

	require.NoError(t, sim.Command(ctx, "t/ps/1", "On"))
	require.Equal(t, 1, rec.count())

	require.ErrorIs(t, sim.Unsubscribe(h), tango.ErrNotFound)
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	sim := newTestSimulator()

	_, err := sim.Subscribe("no/such/dev/State", func(tango.ModelID, tango.Value) {})
	require.ErrorIs(t, err, tango.ErrNotFound)

	_, err = sim.Subscribe("t/ps/1/Nope", func(tango.ModelID, tango.Value) {})
	require.ErrorIs(t, err, tango.ErrNotFound)

	_, err = sim.Read(ctx, "t//ps")
	require.ErrorIs(t, err, tango.ErrMalformed)

	require.ErrorIs(t, sim.Write(ctx, "t/ps/1/Voltage", 1.0), tango.ErrReadOnly)
	require.ErrorIs(t, sim.Command(ctx, "t/ps/1", "Explode"), tango.ErrNoCommand)
	require.Error(t, sim.Write(ctx, "t/ps/1/Current", 1000.0))

	sim.SetUnreachable("t/ps/1", true)
	_, err = sim.Read(ctx, "t/ps/1/Current")
	require.ErrorIs(t, err, tango.ErrUnreachable)
}

func TestCycleNeedsPowerSupplyOn(t *testing.T) {
	ctx := context.Background()
	sim := newTestSimulator()

	require.ErrorIs(t, sim.Command(ctx, "t/mag/cr1", "StartCycle"), errPowerSupplyOff)

	require.NoError(t, sim.Command(ctx, "t/ps/1", "On"))
	require.NoError(t, sim.Command(ctx, "t/mag/cr1", "StartCycle"))
	v, err := sim.Read(ctx, "t/mag/cr1/cyclingState")
	require.NoError(t, err)
	require.Equal(t, true, v.Data)

	for i := 0; i < 31; i++ {
		sim.Advance(time.Second)
	}
	v, err = sim.Read(ctx, "t/mag/cr1/cyclingState")
	require.NoError(t, err)
	require.Equal(t, false, v.Data)
}

func TestMagnetFollowsCircuitState(t *testing.T) {
	ctx := context.Background()
	sim := newTestSimulator()

	_, err := sim.Read(ctx, "t/mag/m1/State")
	require.NoError(t, err)
	require.NoError(t, sim.Command(ctx, "t/ps/1", "On"))
	sim.Advance(time.Second)
	sim.Advance(time.Second)

	v, err := sim.Read(ctx, "t/mag/m1/State")
	require.NoError(t, err)
	require.Equal(t, tango.StateOn, v.Data)
}
