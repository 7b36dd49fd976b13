package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/maxlab/magnetpanel/internal/panel"
	"github.com/maxlab/magnetpanel/ui/styles"
)

// RenderTabs draws the tab bar. Tabs are numbered for their function key.
func RenderTabs(tabs *panel.LazyTabs) string {
	parts := make([]string, 0, tabs.Len())
	for i := 0; i < tabs.Len(); i++ {
		label := fmt.Sprintf("F%d %s", i+1, tabs.Label(i))
		parts = append(parts, styles.TabStyle(i == tabs.Active()).Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}
