package update

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/maxlab/magnetpanel/internal/models"
)

func HandleUpdateWithEventBus(appModel *models.AppModel, msg tea.Msg, d Deps) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return HandleKeyMsgWithEventBus(appModel, msg, d)
	case tea.WindowSizeMsg:
		HandleWindowSizeMsg(appModel, msg)
		return nil
	case TickMsg:
		return HandleTickMsg(appModel)
	case CoreEventMsg:
		return HandleCoreEvent(appModel, msg)
	case UpdatesMsg:
		HandleUpdates(appModel, msg, d.Tabs)
		return nil
	case SendFailedMsg:
		appModel.Status = "Error: " + msg.Err.Error()
		return nil
	}
	if p := d.Tabs.ActivePanel(); p != nil {
		return p.Update(msg)
	}
	return nil
}
