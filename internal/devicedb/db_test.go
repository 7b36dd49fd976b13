package devicedb

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxlab/magnetpanel/internal/tango"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "devices.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestPropertiesKeepOrder(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.UpsertDevice(ctx, Device{Name: "r1/mag/cr1", Class: "MagnetCircuit"}))
	require.NoError(t, db.SetProperty(ctx, "r1/mag/cr1", "MagnetProxies", []string{"r1/mag/b", "r1/mag/a"}))

	got, err := db.GetProperty(ctx, "r1/mag/cr1", "MagnetProxies")
	require.NoError(t, err)
	require.Equal(t, []string{"r1/mag/b", "r1/mag/a"}, got)

	require.NoError(t, db.SetProperty(ctx, "r1/mag/cr1", "MagnetProxies", []string{"r1/mag/c"}))
	got, err = db.GetProperty(ctx, "r1/mag/cr1", "MagnetProxies")
	require.NoError(t, err)
	require.Equal(t, []string{"r1/mag/c"}, got)

	missing, err := db.GetProperty(ctx, "r1/mag/cr1", "PowerSupplyProxy")
	require.NoError(t, err)
	require.Empty(t, missing)
}

func TestUnknownDeviceIsNotFound(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.ClassOf(ctx, "no/such/device")
	require.ErrorIs(t, err, tango.ErrNotFound)

	_, err = db.GetProperty(ctx, "no/such/device", "CircuitProxies")
	require.ErrorIs(t, err, tango.ErrNotFound)
}

func TestImportSeed(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	seed := strings.Join([]string{
		"devices:",
		"  - name: r1/mag/q1",
		"    class: Magnet",
		"    properties:",
		"      CircuitProxies: [r1/mag/crq1]",
		"  - name: r1/mag/crq1",
		"    class: MagnetCircuit",
		"    properties:",
		"      PowerSupplyProxy: [r1/ps/q1]",
		"  - name: r1/ps/q1",
		"    class: PowerSupply",
	}, "\n")

	n, err := db.Import(ctx, strings.NewReader(seed))
	require.NoError(t, err)
	require.Equal(t, 3, n)

	class, err := db.ClassOf(ctx, "r1/ps/q1")
	require.NoError(t, err)
	require.Equal(t, "PowerSupply", class)

	circuits, err := db.GetProperty(ctx, "r1/mag/q1", "CircuitProxies")
	require.NoError(t, err)
	require.Equal(t, []string{"r1/mag/crq1"}, circuits)

	magnets, err := db.Devices(ctx, "Magnet")
	require.NoError(t, err)
	require.Len(t, magnets, 1)
}

func TestImportRejectsBadNames(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Import(context.Background(), strings.NewReader("devices:\n  - name: /bad/\n    class: Magnet\n"))
	require.ErrorIs(t, err, tango.ErrMalformed)

	n, err := db.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestSeedDemoOnlyOnEmptyDatabase(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	seeded, err := db.SeedDemo(ctx)
	require.NoError(t, err)
	require.True(t, seeded)

	seeded, err = db.SeedDemo(ctx)
	require.NoError(t, err)
	require.False(t, seeded)

	props, err := db.Properties(ctx, "r3/mag/tc1")
	require.NoError(t, err)
	require.Equal(t, []string{"r3/swb/tc"}, props["SwitchBoardProxy"])
}
