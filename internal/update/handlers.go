package update

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/maxlab/magnetpanel/internal/eventbus"
	"github.com/maxlab/magnetpanel/internal/models"
	"github.com/maxlab/magnetpanel/internal/panel"
)

// Deps are the collaborators the handlers act on.
type Deps struct {
	Ctx  context.Context
	Bus  *eventbus.EventBus
	Tabs *panel.LazyTabs
	Keys KeyMap
}

func (d Deps) ctx() context.Context {
	if d.Ctx == nil {
		return context.Background()
	}
	return d.Ctx
}

// CoreEventMsg wraps core events for Bubble Tea
type CoreEventMsg struct {
	Event eventbus.CoreEvent
}

// UpdatesMsg carries a batch of attribute updates taken off the coalescer.
type UpdatesMsg struct {
	Updates []eventbus.Update
}

// SendFailedMsg reports a request the bus refused.
type SendFailedMsg struct {
	Err error
}

// SendCmd delivers event to the core off the UI loop.
func SendCmd(eb *eventbus.EventBus, event eventbus.UIEvent) tea.Cmd {
	return func() tea.Msg {
		if err := eb.SendToCore(event); err != nil {
			return SendFailedMsg{Err: err}
		}
		return nil
	}
}

// HandleKeyMsgWithEventBus handles keyboard input using event bus
func HandleKeyMsgWithEventBus(appModel *models.AppModel, keyMsg tea.KeyMsg, d Deps) tea.Cmd {
	if pending := appModel.PendingConfirmation; pending != nil {
		switch {
		case key.Matches(keyMsg, d.Keys.Approve):
			return answer(appModel, d, true)
		case key.Matches(keyMsg, d.Keys.Deny):
			return answer(appModel, d, false)
		case keyMsg.String() == "ctrl+c":
			return tea.Quit
		}
		return nil
	}

	switch {
	case key.Matches(keyMsg, d.Keys.Quit):
		return tea.Quit
	case key.Matches(keyMsg, d.Keys.Help):
		appModel.ShowHelp = !appModel.ShowHelp
		return nil
	case key.Matches(keyMsg, d.Keys.NextTab):
		reportTabErr(appModel, d.Tabs.Step(d.ctx(), 1))
		return nil
	case key.Matches(keyMsg, d.Keys.PrevTab):
		reportTabErr(appModel, d.Tabs.Step(d.ctx(), -1))
		return nil
	case key.Matches(keyMsg, d.Keys.Rebind):
		if err := d.Tabs.Rebind(d.ctx()); err != nil {
			reportTabErr(appModel, err)
		} else {
			appModel.Status = "Ready"
		}
		return nil
	}
	for i, b := range d.Keys.Tabs {
		if key.Matches(keyMsg, b) {
			if i < d.Tabs.Len() {
				reportTabErr(appModel, d.Tabs.Select(d.ctx(), i))
			}
			return nil
		}
	}

	if p := d.Tabs.ActivePanel(); p != nil {
		return p.Update(keyMsg)
	}
	return nil
}

func answer(appModel *models.AppModel, d Deps, approved bool) tea.Cmd {
	id := appModel.PendingConfirmation.ID
	appModel.PendingConfirmation = nil
	return SendCmd(d.Bus, eventbus.ConfirmationResponseEvent{ID: id, Approved: approved})
}

func reportTabErr(appModel *models.AppModel, err error) {
	if err == nil {
		appModel.Status = "Ready"
		return
	}
	var be *panel.BindError
	if errors.As(err, &be) {
		appModel.Status = "Bind failed: " + be.Error() + " (R to retry)"
		return
	}
	appModel.Status = "Error: " + err.Error()
}

// HandleCoreEvent processes events from the core
func HandleCoreEvent(appModel *models.AppModel, coreEventMsg CoreEventMsg) tea.Cmd {
	switch event := coreEventMsg.Event.(type) {
	case eventbus.StateUpdateEvent:
		appModel.Log = append(appModel.Log, event.Log...)
		appModel.Busy = event.Busy
		if event.Error != nil {
			appModel.Status = "Error: " + event.Error.Error()
		} else if event.Busy {
			appModel.Status = "Working"
		} else {
			appModel.Status = "Ready"
		}
	case eventbus.CommandResultEvent:
		if event.Err == nil {
			appModel.Status = event.Action + " " + event.Target + ": done"
		}
	case eventbus.ConfirmationRequestEvent:
		appModel.PendingConfirmation = &models.ConfirmationRequest{
			ID:        event.ID,
			Operation: event.Operation,
			Device:    event.Device,
			Command:   event.Command,
		}
	}
	return nil
}

// HandleUpdates hands each update to the tab container, which drops the
// ones whose binding is gone.
func HandleUpdates(appModel *models.AppModel, msg UpdatesMsg, tabs *panel.LazyTabs) {
	for _, u := range msg.Updates {
		if tabs.Dispatch(u) {
			appModel.Delivered++
		} else {
			appModel.Discarded++
		}
	}
}

type TickMsg time.Time

func TickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func HandleWindowSizeMsg(appModel *models.AppModel, sizeMsg tea.WindowSizeMsg) {
	appModel.Width = sizeMsg.Width
	appModel.Height = sizeMsg.Height
}

func HandleTickMsg(appModel *models.AppModel) tea.Cmd {
	if appModel.Busy {
		appModel.BusyDots = (appModel.BusyDots + 1) % 4
	}
	return TickCmd()
}
