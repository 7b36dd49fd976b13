package widgets

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/maxlab/magnetpanel/internal/tango"
	"github.com/maxlab/magnetpanel/ui/styles"
)

type FormKeyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Left   key.Binding
	Right  key.Binding
	Up     key.Binding
	Down   key.Binding
	Reset  key.Binding
	Write  key.Binding
	Delete key.Binding
}

func DefaultFormKeys() FormKeyMap {
	return FormKeyMap{
		Next:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		Prev:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev field")),
		Left:   key.NewBinding(key.WithKeys("left"), key.WithHelp("←/→", "digit")),
		Right:  key.NewBinding(key.WithKeys("right")),
		Up:     key.NewBinding(key.WithKeys("up"), key.WithHelp("↑/↓", "step")),
		Down:   key.NewBinding(key.WithKeys("down")),
		Reset:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		Write:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "write")),
		Delete: key.NewBinding(key.WithKeys("backspace")),
	}
}

type formRow struct {
	attr    tango.ModelID
	info    tango.AttrInfo
	value   tango.Value
	options []string

	// write value seen first after binding, restored by Reset
	initial  any
	captured bool

	edit   string
	cursor int
	dirty  bool
}

func (r *formRow) render(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', Decimals(r.info.Format), 64)
	}
	return FormatData(v, "")
}

func (r *formRow) setEdit(text string) {
	r.edit = text
	if r.cursor < 0 || r.cursor >= len(text) {
		r.cursor = defaultCursor(text)
	}
}

func (r *formRow) numeric() bool {
	switch r.initial.(type) {
	case float64, int:
		return true
	}
	return false
}

// defaultCursor puts the cursor on the units digit.
func defaultCursor(text string) int {
	if i := strings.IndexByte(text, '.'); i > 0 {
		return i - 1
	}
	return max(0, len(text)-1)
}

// AttributeForm lists attributes as label, value and unit rows. Writable
// rows carry an edit buffer that starts at the current write value.
type AttributeForm struct {
	rows     []*formRow
	selected int
	keys     FormKeyMap
	err      string

	Write func(attr tango.ModelID, value any) tea.Cmd
}

func NewAttributeForm(attrs ...tango.ModelID) *AttributeForm {
	f := &AttributeForm{keys: DefaultFormKeys(), selected: -1}
	for _, a := range attrs {
		f.rows = append(f.rows, &formRow{attr: a, info: tango.AttrInfo{Label: a.Name()}})
	}
	return f
}

func (f *AttributeForm) Attrs() []tango.ModelID {
	out := make([]tango.ModelID, len(f.rows))
	for i, r := range f.rows {
		out[i] = r.attr
	}
	return out
}

func (f *AttributeForm) Keys() FormKeyMap { return f.keys }

// Load fetches labels, units, formats and limits of every row.
func (f *AttributeForm) Load(ctx context.Context, r tango.Reader) error {
	for _, row := range f.rows {
		info, err := r.Info(ctx, row.attr)
		if err != nil {
			return fmt.Errorf("attribute info %s: %w", row.attr, err)
		}
		if info.Label == "" {
			info.Label = row.attr.Name()
		}
		row.info = info
	}
	f.selected = -1
	f.moveSelection(1)
	return nil
}

// SetOptions makes up/down cycle a string attribute through opts.
func (f *AttributeForm) SetOptions(attr tango.ModelID, opts ...string) {
	if row := f.row(attr); row != nil {
		row.options = opts
	}
}

func (f *AttributeForm) row(attr tango.ModelID) *formRow {
	for _, r := range f.rows {
		if r.attr == attr {
			return r
		}
	}
	return nil
}

func (f *AttributeForm) current() *formRow {
	if f.selected < 0 || f.selected >= len(f.rows) {
		return nil
	}
	return f.rows[f.selected]
}

// Selected is the attribute of the focused row.
func (f *AttributeForm) Selected() tango.ModelID {
	if r := f.current(); r != nil {
		return r.attr
	}
	return ""
}

// EditText is the edit buffer of attr.
func (f *AttributeForm) EditText(attr tango.ModelID) string {
	if r := f.row(attr); r != nil {
		return r.edit
	}
	return ""
}

// Cursor is the position of the digit cursor in the focused row.
func (f *AttributeForm) Cursor() int {
	if r := f.current(); r != nil {
		return r.cursor
	}
	return -1
}

func (f *AttributeForm) Value(attr tango.ModelID) tango.Value {
	if r := f.row(attr); r != nil {
		return r.value
	}
	return tango.Value{}
}

func (f *AttributeForm) Err() string { return f.err }

func (f *AttributeForm) Apply(attr tango.ModelID, v tango.Value) bool {
	row := f.row(attr)
	if row == nil {
		return false
	}
	row.value = v
	if !row.info.Writable || v.WriteValue == nil {
		return true
	}
	if !row.captured {
		row.initial = v.WriteValue
		row.captured = true
		row.cursor = -1
	}
	if !row.dirty {
		row.setEdit(row.render(v.WriteValue))
	}
	return true
}

// Reset restores the focused row's edit buffer to the initial write value.
func (f *AttributeForm) Reset() {
	row := f.current()
	if row == nil || !row.captured {
		return
	}
	row.cursor = -1
	row.setEdit(row.render(row.initial))
	row.dirty = true
	f.err = ""
}

func (f *AttributeForm) moveSelection(delta int) {
	n := len(f.rows)
	if n == 0 {
		return
	}
	i := f.selected
	for range n {
		i = ((i+delta)%n + n) % n
		if f.rows[i].info.Writable {
			f.selected = i
			return
		}
	}
}

func (f *AttributeForm) Update(msg tea.Msg) tea.Cmd {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	switch {
	case key.Matches(km, f.keys.Next):
		f.moveSelection(1)
		return nil
	case key.Matches(km, f.keys.Prev):
		f.moveSelection(-1)
		return nil
	}
	row := f.current()
	if row == nil || !row.info.Writable || !row.captured {
		return nil
	}
	switch {
	case key.Matches(km, f.keys.Left):
		row.cursor = max(0, row.cursor-1)
	case key.Matches(km, f.keys.Right):
		row.cursor = min(len(row.edit)-1, row.cursor+1)
	case key.Matches(km, f.keys.Up):
		f.step(row, 1)
	case key.Matches(km, f.keys.Down):
		f.step(row, -1)
	case key.Matches(km, f.keys.Reset):
		f.Reset()
	case key.Matches(km, f.keys.Write):
		return f.write(row)
	case key.Matches(km, f.keys.Delete):
		if row.cursor >= 0 && row.cursor < len(row.edit) {
			row.edit = row.edit[:row.cursor] + row.edit[row.cursor+1:]
			row.cursor = max(0, min(row.cursor, len(row.edit)-1))
			row.dirty = true
		}
	case km.Type == tea.KeyRunes && len(km.Runes) == 1 && row.numeric():
		c := km.Runes[0]
		if strings.ContainsRune("0123456789.-", c) && row.cursor >= 0 && row.cursor < len(row.edit) {
			// overwrite, like a fixed width numeric field
			row.edit = row.edit[:row.cursor] + string(c) + row.edit[row.cursor+1:]
			row.cursor = min(len(row.edit)-1, row.cursor+1)
			row.dirty = true
		}
	}
	return nil
}

func (f *AttributeForm) step(row *formRow, dir int) {
	f.err = ""
	switch cur := row.initial.(type) {
	case float64, int:
		text, cursor, err := StepDigit(row.edit, row.cursor, Decimals(row.info.Format), dir, row.info.Min, row.info.Max)
		if err != nil {
			f.err = err.Error()
			return
		}
		row.edit, row.cursor = text, cursor
	case bool:
		b, err := strconv.ParseBool(row.edit)
		if err != nil {
			b = cur
		}
		row.edit = strconv.FormatBool(!b)
		row.cursor = 0
	case string:
		if len(row.options) == 0 {
			return
		}
		i := 0
		for j, o := range row.options {
			if o == row.edit {
				i = j
				break
			}
		}
		i = ((i+dir)%len(row.options) + len(row.options)) % len(row.options)
		row.edit = row.options[i]
		row.cursor = 0
	default:
		return
	}
	row.dirty = true
}

func (f *AttributeForm) write(row *formRow) tea.Cmd {
	f.err = ""
	var value any
	switch row.initial.(type) {
	case float64, int:
		v, err := strconv.ParseFloat(strings.TrimSpace(row.edit), 64)
		if err != nil {
			f.err = fmt.Sprintf("%s: not a number", row.info.Label)
			return nil
		}
		if row.info.Max > row.info.Min && (v < row.info.Min || v > row.info.Max) {
			f.err = fmt.Sprintf("%s: %g outside [%g, %g]", row.info.Label, v, row.info.Min, row.info.Max)
			return nil
		}
		value = v
	case bool:
		v, err := strconv.ParseBool(strings.TrimSpace(row.edit))
		if err != nil {
			f.err = fmt.Sprintf("%s: not a boolean", row.info.Label)
			return nil
		}
		value = v
	default:
		value = row.edit
	}
	row.dirty = false
	if f.Write == nil {
		return nil
	}
	return f.Write(row.attr, value)
}

// StepDigit adds dir times the place value of the digit under cursor to
// the number in text and reformats it with decimals fraction digits. The
// returned cursor stays on the same place value. Results are clamped to
// [lo, hi] when hi > lo.
func StepDigit(text string, cursor, decimals, dir int, lo, hi float64) (string, int, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return text, cursor, fmt.Errorf("step %q: %w", text, err)
	}
	if cursor < 0 || cursor >= len(text) || text[cursor] < '0' || text[cursor] > '9' {
		return text, cursor, nil
	}
	dot := strings.IndexByte(text, '.')
	if dot < 0 {
		dot = len(text)
	}
	exp := dot - cursor - 1
	if cursor > dot {
		exp = dot - cursor
	}
	v += float64(dir) * math.Pow10(exp)
	if hi > lo {
		v = math.Max(lo, math.Min(hi, v))
	}
	out := strconv.FormatFloat(v, 'f', decimals, 64)
	newDot := strings.IndexByte(out, '.')
	if newDot < 0 {
		newDot = len(out)
	}
	pos := newDot - 1 - exp
	if exp < 0 {
		pos = newDot - exp
	}
	first := 0
	if strings.HasPrefix(out, "-") {
		first = 1
	}
	return out, max(first, min(pos, len(out)-1)), nil
}

func (f *AttributeForm) View(width int) string {
	labelW := 8
	for _, r := range f.rows {
		labelW = max(labelW, len([]rune(r.info.Label)))
	}
	labelW = min(labelW, max(8, width/3))
	var b strings.Builder
	for i, r := range f.rows {
		label := fmt.Sprintf("%-*s", labelW, truncate(r.info.Label, labelW))
		if i == f.selected {
			b.WriteString(styles.SelectedStyle().Render("> " + label))
		} else {
			b.WriteString(styles.LabelStyle().Render("  " + label))
		}
		b.WriteString("  ")
		b.WriteString(styles.QualityStyle(r.value.Quality).Render(FormatData(r.value.Data, r.info.Format)))
		if r.info.Unit != "" {
			b.WriteString(" " + styles.LabelStyle().Render(r.info.Unit))
		}
		if r.info.Writable && r.captured {
			b.WriteString("   [")
			b.WriteString(r.editView(i == f.selected))
			b.WriteString("]")
			if r.dirty {
				b.WriteString("*")
			}
		}
		if i < len(f.rows)-1 {
			b.WriteString("\n")
		}
	}
	if f.err != "" {
		b.WriteString("\n" + styles.ErrorStyle().Render(f.err))
	}
	return b.String()
}

func (r *formRow) editView(focused bool) string {
	if !focused || r.cursor < 0 || r.cursor >= len(r.edit) {
		return r.edit
	}
	return r.edit[:r.cursor] + styles.CursorStyle().Render(r.edit[r.cursor:r.cursor+1]) + r.edit[r.cursor+1:]
}
