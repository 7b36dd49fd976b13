package widgets

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/maxlab/magnetpanel/internal/tango"
	"github.com/maxlab/magnetpanel/ui/styles"
)

var sparks = []rune("▁▂▃▄▅▆▇█")

// Trend keeps the recent history of a numeric attribute and draws it as a
// sparkline. A paused trend ignores new values.
type Trend struct {
	attr     tango.ModelID
	capacity int
	samples  []float64
	Paused   bool
}

func NewTrend(attr tango.ModelID, capacity int) *Trend {
	return &Trend{attr: attr, capacity: max(1, capacity)}
}

func (t *Trend) Attrs() []tango.ModelID { return []tango.ModelID{t.attr} }

func (t *Trend) Samples() []float64 { return t.samples }

func (t *Trend) Apply(attr tango.ModelID, v tango.Value) bool {
	if attr != t.attr {
		return false
	}
	if f, ok := v.Float(); ok && !t.Paused && !math.IsNaN(f) {
		t.Push(f)
	}
	return true
}

func (t *Trend) Push(f float64) {
	t.samples = append(t.samples, f)
	if over := len(t.samples) - t.capacity; over > 0 {
		t.samples = append(t.samples[:0], t.samples[over:]...)
	}
}

func (t *Trend) Clear() { t.samples = t.samples[:0] }

func (t *Trend) View(width int) string {
	head := styles.LabelStyle().Render(t.attr.Name())
	if t.Paused {
		head += " " + styles.HelpStyle().Render("(paused)")
	}
	if len(t.samples) == 0 {
		return head + "\n" + styles.HelpStyle().Render("no samples")
	}
	view := t.samples
	if len(view) > width {
		view = view[len(view)-width:]
	}
	lo, hi := floats.Min(view), floats.Max(view)
	var b strings.Builder
	for _, f := range view {
		i := 0
		if hi > lo {
			i = int((f - lo) / (hi - lo) * float64(len(sparks)-1))
		}
		b.WriteRune(sparks[i])
	}
	return fmt.Sprintf("%s  min %.3g  max %.3g\n%s", head, lo, hi, b.String())
}
