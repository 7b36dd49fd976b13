package widgets

import (
	"context"
	"math"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/maxlab/magnetpanel/internal/tango"
)

type infoReader map[tango.ModelID]tango.AttrInfo

func (r infoReader) Info(_ context.Context, attr tango.ModelID) (tango.AttrInfo, error) {
	info, ok := r[attr]
	if !ok {
		return tango.AttrInfo{}, tango.ErrNotFound
	}
	return info, nil
}

func (r infoReader) Read(context.Context, tango.ModelID) (tango.Value, error) {
	return tango.Value{}, nil
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func TestStepDigit(t *testing.T) {
	cases := []struct {
		name       string
		text       string
		cursor     int
		decimals   int
		dir        int
		lo, hi     float64
		want       string
		wantCursor int
	}{
		{"units up", "12.50", 1, 2, 1, 0, 0, "13.50", 1},
		{"tenths up", "12.50", 3, 2, 1, 0, 0, "12.60", 3},
		{"hundredths down", "12.50", 4, 2, -1, 0, 0, "12.49", 4},
		{"tens up", "12.50", 0, 2, 1, 0, 0, "22.50", 0},
		{"carry adds a digit", "9.99", 0, 2, 1, 0, 0, "10.99", 1},
		{"through zero", "0.50", 0, 2, -1, 0, 0, "-0.50", 1},
		{"clamped to max", "195.000", 1, 3, 1, -200, 200, "200.000", 1},
		{"cursor on dot is a no-op", "1.5", 1, 1, 1, 0, 0, "1.5", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, cursor, err := StepDigit(tc.text, tc.cursor, tc.decimals, tc.dir, tc.lo, tc.hi)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
			require.Equal(t, tc.wantCursor, cursor)
		})
	}

	_, _, err := StepDigit("abc", 0, 2, 1, 0, 0)
	require.Error(t, err)
}

func TestDecimals(t *testing.T) {
	require.Equal(t, 3, Decimals("%.3f"))
	require.Equal(t, 4, Decimals("%8.4f"))
	require.Equal(t, 3, Decimals("%g"))
	require.Equal(t, 3, Decimals(""))
}

func newCurrentForm(t *testing.T) (*AttributeForm, tango.ModelID) {
	t.Helper()
	cur := tango.ModelID("r3/ps/q1/Current")
	volt := tango.ModelID("r3/ps/q1/Voltage")
	f := NewAttributeForm(cur, volt)
	require.NoError(t, f.Load(context.Background(), infoReader{
		cur:  {Label: "Current", Unit: "A", Format: "%.3f", Writable: true, Min: -200, Max: 200},
		volt: {Label: "Voltage", Unit: "V", Format: "%.2f"},
	}))
	return f, cur
}

func TestFormKeepsInitialWriteValue(t *testing.T) {
	f, cur := newCurrentForm(t)
	require.Equal(t, cur, f.Selected(), "first writable row is focused")

	f.Apply(cur, tango.Value{Data: 0.0, WriteValue: 12.5})
	require.Equal(t, "12.500", f.EditText(cur))
	require.Equal(t, 1, f.Cursor(), "cursor starts on the units digit")

	f.Update(keyMsg("up"))
	f.Update(keyMsg("up"))
	require.Equal(t, "14.500", f.EditText(cur))

	// a new write value from elsewhere does not clobber a dirty buffer
	f.Apply(cur, tango.Value{Data: 5.0, WriteValue: 30.0})
	require.Equal(t, "14.500", f.EditText(cur))

	f.Update(keyMsg("r"))
	require.Equal(t, "12.500", f.EditText(cur), "reset goes back to the value seen first")
}

func TestFormWriteParsesBuffer(t *testing.T) {
	f, cur := newCurrentForm(t)
	var wrote any
	f.Write = func(attr tango.ModelID, value any) tea.Cmd {
		require.Equal(t, cur, attr)
		wrote = value
		return nil
	}
	f.Apply(cur, tango.Value{Data: 0.0, WriteValue: 1.0})
	f.Update(keyMsg("right"))
	f.Update(keyMsg("right"))
	f.Update(keyMsg("down"))
	require.Equal(t, "0.900", f.EditText(cur))
	f.Update(keyMsg("enter"))
	require.Equal(t, 0.9, wrote)

	f.Apply(cur, tango.Value{Data: 0.9, WriteValue: 0.9})
	require.Equal(t, "0.900", f.EditText(cur), "clean buffer follows the write value")
}

func TestFormRejectsOutOfRangeWrite(t *testing.T) {
	f, cur := newCurrentForm(t)
	called := false
	f.Write = func(tango.ModelID, any) tea.Cmd { called = true; return nil }
	f.Apply(cur, tango.Value{Data: 0.0, WriteValue: 1.0})
	f.Update(keyMsg("left"))
	f.Update(keyMsg("9"))
	require.Equal(t, "9.000", f.EditText(cur))
	f.rows[0].edit = "900.000"
	f.Update(keyMsg("enter"))
	require.False(t, called)
	require.Contains(t, f.Err(), "outside")
}

func TestFormBoolAndOptions(t *testing.T) {
	fix := tango.ModelID("r3/mag/crq1/fixNormFieldOnEnergyChange")
	mode := tango.ModelID("r3/swb/tc/Mode")
	f := NewAttributeForm(fix, mode)
	require.NoError(t, f.Load(context.Background(), infoReader{
		fix:  {Label: "Fix", Writable: true},
		mode: {Label: "Mode", Writable: true},
	}))
	f.SetOptions(mode, "QUADRUPOLE", "SEXTUPOLE")
	f.Apply(fix, tango.Value{Data: true, WriteValue: true})
	f.Apply(mode, tango.Value{Data: "QUADRUPOLE", WriteValue: "QUADRUPOLE"})

	f.Update(keyMsg("up"))
	require.Equal(t, "false", f.EditText(fix))

	f.Update(keyMsg("tab"))
	require.Equal(t, mode, f.Selected())
	f.Update(keyMsg("down"))
	require.Equal(t, "SEXTUPOLE", f.EditText(mode))
}

func TestFormLoadFailure(t *testing.T) {
	f := NewAttributeForm("r3/ps/q1/Current")
	err := f.Load(context.Background(), infoReader{})
	require.ErrorIs(t, err, tango.ErrNotFound)
}

func TestColumnsTableRendersNaNAndMeans(t *testing.T) {
	a := tango.ModelID("r3/mag/crq1/fieldA")
	b := tango.ModelID("r3/mag/crq1/fieldB")
	c := NewColumnsTable(true, a, b)
	require.NoError(t, c.Load(context.Background(), infoReader{
		a: {Label: "Field A", Format: "%.2f"},
		b: {Label: "Field B", Format: "%.2f"},
	}))
	require.True(t, c.Apply(a, tango.Value{Data: []float64{1, 2, math.NaN()}}))
	require.True(t, c.Apply(b, tango.Value{Data: []float64{math.NaN(), math.NaN(), math.NaN()}}))
	require.False(t, c.Apply("r3/mag/crq1/other", tango.Value{}))

	rows := c.Rows()
	require.Len(t, rows, 4)
	require.Equal(t, []string{"0", "1.00", "N/A"}, rows[0])
	require.Equal(t, []string{"2", "N/A", "N/A"}, rows[2])
	require.Equal(t, []string{"μ", "1.50", "N/A"}, rows[3])
	require.NotEmpty(t, c.View(60, 10))
}

func TestStatusAreaTarget(t *testing.T) {
	dev := NewStatusArea("r3/mag/crq1")
	require.Equal(t, []tango.ModelID{"r3/mag/crq1/Status"}, dev.Attrs())

	attr := NewStatusArea("r3/mag/crq1/cyclingStatus")
	require.Equal(t, []tango.ModelID{"r3/mag/crq1/cyclingStatus"}, attr.Attrs())
	require.True(t, attr.Apply("r3/mag/crq1/cyclingStatus", tango.Value{Data: "Cycling started"}))
	require.Equal(t, "Cycling started", attr.Text())
}

func TestDeviceHeaderTracksState(t *testing.T) {
	h := NewDeviceHeader("r3/ps/q1")
	require.False(t, h.Apply("r3/ps/q1/Current", tango.Value{Data: 1.0}))
	require.True(t, h.Apply("r3/ps/q1/State", tango.Value{Data: tango.StateOn}))
	require.Equal(t, tango.StateOn, h.State)
	require.Contains(t, h.View(40), "ON")
}

func TestTrendPaused(t *testing.T) {
	tr := NewTrend("r3/ps/q1/Current", 3)
	tr.Paused = true
	tr.Apply("r3/ps/q1/Current", tango.Value{Data: 1.0})
	require.Empty(t, tr.Samples())

	tr.Paused = false
	for _, f := range []float64{1, 2, 3, 4} {
		tr.Apply("r3/ps/q1/Current", tango.Value{Data: f})
	}
	require.Equal(t, []float64{2, 3, 4}, tr.Samples())
	require.Contains(t, tr.View(10), "max 4")
}

func TestValueBarFraction(t *testing.T) {
	b := NewValueBar("r3/mag/crq1/variableComponent")
	require.NoError(t, b.Load(context.Background(), infoReader{
		"r3/mag/crq1/variableComponent": {Label: "k", Min: -2, Max: 2, Format: "%.2f"},
	}))
	b.Apply("r3/mag/crq1/variableComponent", tango.Value{Data: 1.0})
	frac, ok := b.Fraction()
	require.True(t, ok)
	require.InDelta(t, 0.75, frac, 1e-9)
}

func TestCommandBarRunsBoundCommand(t *testing.T) {
	bar := NewCommandBar("r3/ps/q1", NewCommand("On", "o", "on"), NewCommand("Off", "f", "off"))
	var got string
	bar.Run = func(device tango.ModelID, command string) tea.Cmd {
		got = string(device) + " " + command
		return nil
	}
	bar.Update(keyMsg("f"))
	require.Equal(t, "r3/ps/q1 Off", got)
	require.Contains(t, bar.View(), "[o]")
}
