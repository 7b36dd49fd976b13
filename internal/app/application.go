package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/maxlab/magnetpanel/internal/config"
	"github.com/maxlab/magnetpanel/internal/core"
	"github.com/maxlab/magnetpanel/internal/devicedb"
	"github.com/maxlab/magnetpanel/internal/dispatcher"
	"github.com/maxlab/magnetpanel/internal/eventbus"
	"github.com/maxlab/magnetpanel/internal/logging"
	"github.com/maxlab/magnetpanel/internal/models"
	"github.com/maxlab/magnetpanel/internal/panel"
	"github.com/maxlab/magnetpanel/internal/panels"
	"github.com/maxlab/magnetpanel/internal/simulator"
	"github.com/maxlab/magnetpanel/internal/subscription"
	"github.com/maxlab/magnetpanel/internal/tango"
	"github.com/maxlab/magnetpanel/internal/topology"
	"github.com/maxlab/magnetpanel/internal/update"
)

// Options selects what the panel shows.
type Options struct {
	Device tango.ModelID
	// Trim opens the trim coil layout instead of the magnet one.
	Trim bool
}

// Application manages the complete application lifecycle
type Application struct {
	config     *config.Config
	db         *devicedb.DB
	sim        *simulator.Simulator
	eventBus   *eventbus.EventBus
	updates    *eventbus.Coalescer
	dispatcher *dispatcher.EventDispatcher
	service    *core.ControlService
	layout     *panels.Layout
	model      *AppModel
	closeLog   func() error
}

// OpenDatabase opens the profile's device database, seeding the demo
// facility into an empty one when the profile asks for it.
func OpenDatabase(ctx context.Context, p config.Profile) (*devicedb.DB, error) {
	if err := os.MkdirAll(filepath.Dir(p.Database), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	db, err := devicedb.Open(p.Database)
	if err != nil {
		return nil, err
	}
	if p.Seed {
		seeded, err := db.SeedDemo(ctx)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if seeded {
			slog.Info("seeded demo facility", "database", p.Database)
		}
	}
	return db, nil
}

// NewApplication wires the backend, resolves opts.Device and binds the
// power supply tab. A topology failure is returned before anything is shown.
func NewApplication(ctx context.Context, cfg *config.Config, opts Options) (*Application, error) {
	closeLog, err := logging.Init(cfg.Log, logging.ModeTUI)
	if err != nil {
		return nil, err
	}
	profile := cfg.Current()

	db, err := OpenDatabase(ctx, profile)
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	sim := simulator.New(db, profile.PollingPeriod)
	eb := eventbus.NewEventBus()
	eb.SetErrorCallback(func(e eventbus.EventBusError) {
		slog.Warn("event bus", "op", e.Operation, "err", e.Err)
	})
	updates := eventbus.NewCoalescer()
	disp := dispatcher.NewEventDispatcher(eb, updates)

	service := core.NewControlService(sim, eb, core.Options{
		Profile: cfg.ActiveProfile,
		Timeout: profile.CommandTimeout,
		Confirm: profile.Confirm,
	})

	env := panel.Env{
		Subs:    subscription.NewRegistry(sim),
		Reader:  sim,
		Updates: updates,
		Commands: func(device tango.ModelID, command string) tea.Cmd {
			return update.SendCmd(eb, eventbus.RunCommandEvent{Device: string(device), Command: command})
		},
		Writes: func(attr tango.ModelID, value any) tea.Cmd {
			return update.SendCmd(eb, eventbus.WriteAttributeEvent{Attr: string(attr), Value: value})
		},
	}
	resolver := topology.NewResolver(db, db)
	layout := panels.NewMagnetLayout(env, resolver)
	if opts.Trim {
		layout = panels.NewTrimLayout(env, resolver)
	}

	status := "Ready"
	if err := layout.SetModel(ctx, opts.Device); err != nil {
		var be *panel.BindError
		if !errors.As(err, &be) {
			_ = db.Close()
			_ = closeLog()
			return nil, err
		}
		// the walk succeeded, only the first panel could not bind
		status = "Bind failed: " + be.Error() + " (R to retry)"
	}

	model := &AppModel{
		appModel: models.AppModel{
			Title:  layout.Title(),
			Status: status,
		},
		dispatcher: disp,
		layout:     layout,
		deps: update.Deps{
			Bus:  eb,
			Tabs: layout.Tabs,
			Keys: update.DefaultKeyMap(),
		},
	}

	return &Application{
		config:     cfg,
		db:         db,
		sim:        sim,
		eventBus:   eb,
		updates:    updates,
		dispatcher: disp,
		service:    service,
		layout:     layout,
		model:      model,
		closeLog:   closeLog,
	}, nil
}

// Start runs the simulator, the core service and the UI until the operator
// quits or one of them fails.
func (app *Application) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	app.model.deps.Ctx = gctx

	p := tea.NewProgram(app.model, tea.WithAltScreen())

	g.Go(func() error { return app.sim.Run(gctx) })
	g.Go(func() error { return app.service.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		p.Quit()
		return nil
	})
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		return err
	})
	return g.Wait()
}

// Stop releases every binding and closes the backend. Call it after Start
// has returned.
func (app *Application) Stop() {
	app.layout.Tabs.Clear()
	app.dispatcher.Stop()
	app.updates.Close()
	app.eventBus.Close()
	if err := app.db.Close(); err != nil {
		slog.Warn("close device database", "err", err)
	}
	if app.closeLog != nil {
		_ = app.closeLog()
	}
}
