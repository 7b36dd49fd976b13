package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maxlab/magnetpanel/internal/eventbus"
	"github.com/maxlab/magnetpanel/internal/models"
	"github.com/maxlab/magnetpanel/internal/tango"
)

// ErrDeclined is reported when the operator refuses a confirmation.
var ErrDeclined = errors.New("declined by operator")

// Backend is what the core needs from the control system.
type Backend interface {
	tango.Commander
	tango.Writer
}

type Options struct {
	Profile string
	Timeout time.Duration
	// Confirm asks the operator before disruptive commands.
	Confirm bool
}

// disruptive commands interrupt beam-relevant current.
var disruptive = map[string]bool{
	"Off":       true,
	"StopCycle": true,
}

type ControlService struct {
	backend  Backend
	opts     Options
	state    *ControlState
	eventBus *eventbus.EventBus

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	sendMu          sync.Mutex
	lastSentCount   int
	pendingConfirms map[string]chan bool
	confirmMutex    sync.Mutex
}

func NewControlService(backend Backend, eb *eventbus.EventBus, opts Options) *ControlService {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	cs := &ControlService{
		backend:         backend,
		opts:            opts,
		state:           NewControlState(),
		eventBus:        eb,
		pendingConfirms: make(map[string]chan bool),
	}
	cs.addWelcomeEntries()
	return cs
}

func (cs *ControlService) State() *ControlState { return cs.state }

// Run consumes UI events until ctx is done or the bus closes. Requests run
// on their own goroutines so a pending confirmation never blocks the loop.
func (cs *ControlService) Run(ctx context.Context) error {
	cs.ctx, cs.cancel = context.WithCancel(ctx)
	defer cs.cancel()
	cs.pushStateToUI()
	defer cs.wg.Wait()
	for {
		select {
		case <-cs.ctx.Done():
			return nil
		case event, ok := <-cs.eventBus.UIToCore():
			if !ok {
				return nil
			}
			cs.handleUIEvent(event)
		}
	}
}

func (cs *ControlService) handleUIEvent(event eventbus.UIEvent) {
	switch e := event.(type) {
	case eventbus.RunCommandEvent:
		cs.spawn(func() { cs.runCommand(e) })
	case eventbus.WriteAttributeEvent:
		cs.spawn(func() { cs.writeAttribute(e) })
	case eventbus.ConfirmationResponseEvent:
		cs.handleConfirmationResponse(e)
	}
}

func (cs *ControlService) spawn(fn func()) {
	cs.wg.Add(1)
	go func() {
		defer cs.wg.Done()
		fn()
	}()
}

func (cs *ControlService) runCommand(e eventbus.RunCommandEvent) {
	device := tango.ModelID(e.Device)
	if cs.opts.Confirm && disruptive[e.Command] {
		op := fmt.Sprintf("Run %s on %s?", e.Command, e.Device)
		if !cs.requestUserConfirmation(op, e.Device, e.Command) {
			cs.state.AddEntry(models.Info, e.Device, e.Command+" cancelled")
			cs.report(e.Device, e.Command, ErrDeclined)
			return
		}
	}

	cs.state.Begin()
	cs.state.AddEntry(models.Command, e.Device, e.Command)
	cs.pushStateToUI()

	ctx, cancel := context.WithTimeout(cs.ctx, cs.opts.Timeout)
	err := cs.backend.Command(ctx, device, e.Command)
	cancel()
	if err != nil {
		err = fmt.Errorf("%s %s: %w", e.Device, e.Command, err)
		cs.state.AddEntry(models.Failure, e.Device, err.Error())
		slog.Warn("command failed", slog.String("device", e.Device), slog.String("command", e.Command), slog.Any("err", err))
	}
	cs.state.Finish(err)
	cs.report(e.Device, e.Command, err)
}

func (cs *ControlService) writeAttribute(e eventbus.WriteAttributeEvent) {
	cs.state.Begin()
	cs.state.AddEntry(models.Write, e.Attr, fmt.Sprintf("%s = %v", tango.ModelID(e.Attr).Name(), e.Value))
	cs.pushStateToUI()

	ctx, cancel := context.WithTimeout(cs.ctx, cs.opts.Timeout)
	err := cs.backend.Write(ctx, tango.ModelID(e.Attr), e.Value)
	cancel()
	if err != nil {
		err = fmt.Errorf("write %s: %w", e.Attr, err)
		cs.state.AddEntry(models.Failure, e.Attr, err.Error())
		slog.Warn("write failed", slog.String("attr", e.Attr), slog.Any("err", err))
	}
	cs.state.Finish(err)
	cs.report(e.Attr, "write", err)
}

func (cs *ControlService) report(target, action string, err error) {
	cs.pushStateToUI()
	if sendErr := cs.eventBus.SendToUI(eventbus.CommandResultEvent{Target: target, Action: action, Err: err}); sendErr != nil {
		slog.Error("send command result", slog.Any("err", sendErr))
	}
}

func (cs *ControlService) pushStateToUI() {
	cs.sendMu.Lock()
	defer cs.sendMu.Unlock()

	var entries []models.LogEntry
	entries, cs.lastSentCount = cs.state.Since(cs.lastSentCount)
	if err := cs.eventBus.SendToUI(eventbus.StateUpdateEvent{
		Log:   entries,
		Busy:  cs.state.Busy(),
		Error: cs.state.LastError(),
	}); err != nil {
		slog.Error("send state to UI", slog.Any("err", err))
	}
}

func (cs *ControlService) addWelcomeEntries() {
	cs.state.AddEntry(models.Info, "", "-- MAGNETPANEL --")
	if cs.opts.Profile != "" {
		cs.state.AddEntry(models.Info, "", "Active profile: "+cs.opts.Profile)
	}
	cs.state.AddEntry(models.Info, "", "Controls: [ ] or F1-F6 switch tabs, ? help, q quit")
}

// requestUserConfirmation blocks until the UI answers or the service stops.
func (cs *ControlService) requestUserConfirmation(operation, device, command string) bool {
	id := uuid.NewString()
	responseChan := make(chan bool, 1)

	cs.confirmMutex.Lock()
	cs.pendingConfirms[id] = responseChan
	cs.confirmMutex.Unlock()
	defer func() {
		cs.confirmMutex.Lock()
		delete(cs.pendingConfirms, id)
		cs.confirmMutex.Unlock()
	}()

	request := eventbus.ConfirmationRequestEvent{
		ID:        id,
		Operation: operation,
		Device:    device,
		Command:   command,
	}
	if err := cs.eventBus.SendToUI(request); err != nil {
		return false
	}

	select {
	case approved := <-responseChan:
		return approved
	case <-cs.ctx.Done():
		return false
	}
}

func (cs *ControlService) handleConfirmationResponse(response eventbus.ConfirmationResponseEvent) {
	cs.confirmMutex.Lock()
	responseChan, exists := cs.pendingConfirms[response.ID]
	cs.confirmMutex.Unlock()

	if exists {
		select {
		case responseChan <- response.Approved:
		default:
		}
	}
}
