package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/maxlab/magnetpanel/internal/tango"
	"github.com/maxlab/magnetpanel/ui/styles"
)

// StatusArea shows a free text status attribute. Given a device it follows
// the device Status; given a full attribute path it follows that attribute.
type StatusArea struct {
	attr tango.ModelID
	text string
}

func NewStatusArea(model tango.ModelID) *StatusArea {
	attr := model
	if len(model.Segments()) != 4 {
		attr = tango.Attr(model, "Status")
	}
	return &StatusArea{attr: attr}
}

func (s *StatusArea) Attrs() []tango.ModelID { return []tango.ModelID{s.attr} }

func (s *StatusArea) Text() string { return s.text }

func (s *StatusArea) Apply(attr tango.ModelID, v tango.Value) bool {
	if attr != s.attr {
		return false
	}
	s.text = FormatData(v.Data, "")
	return true
}

func (s *StatusArea) View(width, height int) string {
	text := strings.TrimSpace(s.text)
	if text == "" {
		text = "-"
	}
	return lipgloss.NewStyle().
		Width(max(1, width)).
		MaxHeight(max(1, height)).
		Render(styles.LabelStyle().Render(s.attr.Name()+": ") + text)
}
