package components

import (
	"strings"

	"github.com/maxlab/magnetpanel/internal/models"
	"github.com/maxlab/magnetpanel/ui/styles"
)

// RenderLog draws the last n entries of the operator log.
func RenderLog(entries []models.LogEntry, n int) string {
	if n <= 0 || len(entries) == 0 {
		return ""
	}
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}

	infoStyle := styles.InfoLogStyle()
	commandStyle := styles.CommandLogStyle()
	failureStyle := styles.FailureLogStyle()

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		stamp := ""
		if !e.Time.IsZero() {
			stamp = e.Time.Format("15:04:05") + " "
		}
		switch e.Kind {
		case models.Command:
			b.WriteString(commandStyle.Render(stamp + e.Device + " > " + e.Content))
		case models.Write:
			b.WriteString(commandStyle.Render(stamp + e.Device + " <- " + e.Content))
		case models.Failure:
			b.WriteString(failureStyle.Render(stamp + e.Content))
		default:
			b.WriteString(infoStyle.Render(e.Content))
		}
	}
	return b.String()
}
