package update

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the application-level bindings. Everything else goes to the
// active panel.
type KeyMap struct {
	NextTab key.Binding
	PrevTab key.Binding
	Tabs    []key.Binding
	Rebind  key.Binding
	Help    key.Binding
	Quit    key.Binding
	Approve key.Binding
	Deny    key.Binding
}

func DefaultKeyMap() KeyMap {
	tabs := make([]key.Binding, 0, 6)
	for _, k := range []string{"f1", "f2", "f3", "f4", "f5", "f6"} {
		tabs = append(tabs, key.NewBinding(key.WithKeys(k), key.WithHelp(k, "tab")))
	}
	return KeyMap{
		NextTab: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next tab")),
		PrevTab: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev tab")),
		Tabs:    tabs,
		Rebind:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "rebind")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Approve: key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "confirm")),
		Deny:    key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n", "cancel")),
	}
}

// ShortHelp lists the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PrevTab, k.NextTab, k.Rebind, k.Help, k.Quit}
}
