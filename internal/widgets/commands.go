package widgets

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/maxlab/magnetpanel/internal/tango"
	"github.com/maxlab/magnetpanel/ui/styles"
)

// Command is one button of a CommandBar.
type Command struct {
	Name string
	Key  key.Binding
}

func NewCommand(name, keys, help string) Command {
	return Command{
		Name: name,
		Key:  key.NewBinding(key.WithKeys(keys), key.WithHelp(keys, help)),
	}
}

// CommandBar runs device commands from key presses.
type CommandBar struct {
	Device   tango.ModelID
	Commands []Command
	Run      func(device tango.ModelID, command string) tea.Cmd
}

func NewCommandBar(device tango.ModelID, cmds ...Command) *CommandBar {
	return &CommandBar{Device: device, Commands: cmds}
}

func (c *CommandBar) Update(msg tea.Msg) tea.Cmd {
	km, ok := msg.(tea.KeyMsg)
	if !ok || c.Device == "" || c.Run == nil {
		return nil
	}
	for _, cmd := range c.Commands {
		if key.Matches(km, cmd.Key) {
			return c.Run(c.Device, cmd.Name)
		}
	}
	return nil
}

func (c *CommandBar) Bindings() []key.Binding {
	out := make([]key.Binding, len(c.Commands))
	for i, cmd := range c.Commands {
		out[i] = cmd.Key
	}
	return out
}

func (c *CommandBar) View() string {
	parts := make([]string, 0, len(c.Commands))
	for _, cmd := range c.Commands {
		h := cmd.Key.Help()
		parts = append(parts, styles.SelectedStyle().Render("["+h.Key+"]")+" "+cmd.Name)
	}
	return strings.Join(parts, "   ")
}
