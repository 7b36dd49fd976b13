package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/maxlab/magnetpanel/internal/eventbus"
	"github.com/maxlab/magnetpanel/ui/styles"
)

func RenderStatus(status string, busy bool, busyDots int, stats eventbus.Stats, discarded int, width int) string {
	statusStyle := styles.StatusStyle(width)

	statusContent := status
	if busy {
		statusContent += strings.Repeat(".", busyDots)
	}
	statusContent += fmt.Sprintf("  |  updates %d  coalesced %d  stale %d",
		stats.Delivered, stats.Coalesced, stats.Dropped+uint64(discarded))

	return statusStyle.Render(statusContent)
}

// RenderHelp lists bindings as "key desc" pairs.
func RenderHelp(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return styles.HelpStyle().Render(strings.Join(parts, "  •  "))
}

// RenderConfirmation draws the box asking the operator to approve a
// disruptive command.
func RenderConfirmation(operation string, width int) string {
	body := operation + "\n" + styles.HelpStyle().Render("y confirm  •  n cancel")
	return styles.ConfirmStyle(width).Render(body)
}
