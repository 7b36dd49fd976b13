package widgets

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/maxlab/magnetpanel/internal/tango"
	"github.com/maxlab/magnetpanel/ui/styles"
)

// DeviceHeader shows a device name next to its State.
type DeviceHeader struct {
	Device tango.ModelID
	State  tango.State
	seen   bool
}

func NewDeviceHeader(device tango.ModelID) *DeviceHeader {
	return &DeviceHeader{Device: device}
}

func (h *DeviceHeader) Attrs() []tango.ModelID {
	return []tango.ModelID{tango.Attr(h.Device, "State")}
}

func (h *DeviceHeader) Apply(attr tango.ModelID, v tango.Value) bool {
	if attr != tango.Attr(h.Device, "State") {
		return false
	}
	if s, ok := v.Data.(tango.State); ok {
		h.State = s
		h.seen = true
	}
	return true
}

func (h *DeviceHeader) View(width int) string {
	state := "…"
	if h.seen {
		state = h.State.String()
	}
	name := styles.HeaderStyle().Render(truncate(string(h.Device), max(1, width-12)))
	return lipgloss.JoinHorizontal(lipgloss.Center, name, " ", styles.StateStyle(h.State).Render(state))
}
