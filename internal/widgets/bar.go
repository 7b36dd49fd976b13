package widgets

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/maxlab/magnetpanel/internal/tango"
	"github.com/maxlab/magnetpanel/ui/styles"
)

// ValueBar draws a numeric attribute as a filled bar across its range.
type ValueBar struct {
	attr  tango.ModelID
	info  tango.AttrInfo
	value tango.Value
}

func NewValueBar(attr tango.ModelID) *ValueBar {
	return &ValueBar{attr: attr, info: tango.AttrInfo{Label: attr.Name()}}
}

func (b *ValueBar) Attrs() []tango.ModelID { return []tango.ModelID{b.attr} }

func (b *ValueBar) Load(ctx context.Context, r tango.Reader) error {
	info, err := r.Info(ctx, b.attr)
	if err != nil {
		return fmt.Errorf("attribute info %s: %w", b.attr, err)
	}
	b.info = info
	return nil
}

func (b *ValueBar) Apply(attr tango.ModelID, v tango.Value) bool {
	if attr != b.attr {
		return false
	}
	b.value = v
	return true
}

// Fraction is the position of the value within [Min, Max], clamped to
// [0, 1]. It reports false when there is no range or no numeric value.
func (b *ValueBar) Fraction() (float64, bool) {
	f, ok := b.value.Float()
	if !ok || math.IsNaN(f) || b.info.Max <= b.info.Min {
		return 0, false
	}
	return math.Max(0, math.Min(1, (f-b.info.Min)/(b.info.Max-b.info.Min))), true
}

func (b *ValueBar) View(width int) string {
	text := FormatData(b.value.Data, b.info.Format)
	if b.info.Unit != "" {
		text += " " + b.info.Unit
	}
	barW := max(4, width-len([]rune(text))-len([]rune(b.info.Label))-6)
	frac, ok := b.Fraction()
	if !ok {
		return styles.LabelStyle().Render(b.info.Label) + " " + text
	}
	filled := int(math.Round(frac * float64(barW)))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barW-filled)
	return styles.LabelStyle().Render(b.info.Label) + " " +
		styles.QualityStyle(b.value.Quality).Render(bar) + " " + text
}
