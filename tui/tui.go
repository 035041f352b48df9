// Package tui is a terminal dashboard for the com0com port pairs.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/fornellas/slogxt/log"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/fornellas/vpm/internal/workers"
	"github.com/fornellas/vpm/manager"
)

type TuiOptions struct {
	// AutoRefreshInterval lists ports periodically when greater than zero.
	AutoRefreshInterval time.Duration
	// LogLevel of the logs pane.
	LogLevel slog.Leveler
	// AppLogger also receives all logs, eg: a debug file.
	AppLogger *slog.Logger
}

type Tui struct {
	manager *manager.Manager
	options *TuiOptions
}

func NewTui(manager *manager.Manager, options *TuiOptions) *Tui {
	if options == nil {
		options = &TuiOptions{}
	}
	return &Tui{
		manager: manager,
		options: options,
	}
}

type RootPrimitive struct {
	*tview.Flex
	app             *tview.Application
	portsPrimitive  *PortsPrimitive
	statusPrimitive *StatusPrimitive
	logsPrimitive   *LogsPrimitive
}

func NewRootPrimitive(
	app *tview.Application,
	portsPrimitive *PortsPrimitive,
	statusPrimitive *StatusPrimitive,
	logsPrimitive *LogsPrimitive,
) *RootPrimitive {
	flex := tview.NewFlex().SetDirection(tview.FlexRow)
	flex.AddItem(statusPrimitive, statusPrimitive.FixedSize(), 0, false)
	flex.AddItem(portsPrimitive, 0, 2, true)
	flex.AddItem(logsPrimitive, 0, 1, false)
	return &RootPrimitive{
		Flex:            flex,
		app:             app,
		portsPrimitive:  portsPrimitive,
		statusPrimitive: statusPrimitive,
		logsPrimitive:   logsPrimitive,
	}
}

// HandleEvent updates the views from a manager event.
func (rp *RootPrimitive) HandleEvent(event manager.Event, busy bool) {
	rp.app.QueueUpdateDraw(func() {
		switch e := event.(type) {
		case *manager.PortListUpdatedEvent:
			rp.portsPrimitive.SetPortPairs(e.PortPairs)
		case *manager.DriverStatusChangedEvent:
			rp.statusPrimitive.SetDriverInfo(e.DriverInfo)
		case *manager.ErrorOccurredEvent:
			rp.statusPrimitive.SetError(e.Message)
		case *manager.CommandCompletedEvent:
			if e.Result.Success {
				rp.statusPrimitive.SetMessage("Finished " + e.Result.Command)
			}
		}
		rp.statusPrimitive.SetBusy(busy)
	})
}

func (rp *RootPrimitive) SetBusy(busy bool) {
	rp.app.QueueUpdateDraw(func() {
		rp.statusPrimitive.SetBusy(busy)
	})
}

func (t *Tui) autoRefreshWorker(ctx context.Context) error {
	ticker := time.NewTicker(t.options.AutoRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !t.manager.IsBusy() {
				t.manager.ListPorts(ctx)
			}
		}
	}
}

// eventWorker passes events to handle. The port list is loaded once the initial driver status is
// known.
func (t *Tui) eventWorker(
	ctx context.Context,
	eventCh <-chan manager.Event,
	handle func(event manager.Event),
	setBusy func(busy bool),
) error {
	listed := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-eventCh:
			handle(event)
			if !listed && event.Type() == manager.EventTypeDriverStatusChanged {
				listed = true
				// A rejected ListPorts publishes to eventCh before returning.
				go func() {
					t.manager.ListPorts(ctx)
					setBusy(t.manager.IsBusy())
				}()
			}
		}
	}
}

//gocyclo:ignore
func (t *Tui) Run(ctx context.Context) (err error) {
	// Application
	app := tview.NewApplication()
	app.EnableMouse(true)

	// Context & Logging
	consoleCtx, consoleLogger := log.MustWithGroup(ctx, "Tui")
	logsPrimitive := NewLogsPrimitive(app)
	appHandler := NewLevelHandler(
		log.NewTerminalTreeHandler(
			tview.ANSIWriter(logsPrimitive),
			&log.TerminalHandlerOptions{
				// tview.TextView does not handle emojis correctly: drawing is corrupted.
				DisableGroupEmoji: true,
				ForceColor:        true,
				HandlerOptions: slog.HandlerOptions{
					Level: slog.LevelDebug,
				},
			},
		),
		t.options.LogLevel,
	)
	appHandlers := []slog.Handler{
		appHandler,
	}
	if t.options.AppLogger != nil {
		appHandlers = append(appHandlers, t.options.AppLogger.Handler())
	}
	appLogger := slog.New(log.NewMultiHandler(appHandlers...))
	appCtx, cancel := context.WithCancel(log.WithLogger(consoleCtx, appLogger))
	defer cancel()

	// Primitives
	portsPrimitive := NewPortsPrimitive()
	statusPrimitive := NewStatusPrimitive()
	rootPrimitive := NewRootPrimitive(app, portsPrimitive, statusPrimitive, logsPrimitive)
	app.SetRoot(rootPrimitive, true)

	// Events
	eventCh := make(chan manager.Event, 50)
	unsubscribe := t.manager.Subscribe("Tui", func(event manager.Event) {
		select {
		case eventCh <- event:
		case <-appCtx.Done():
		}
	})
	defer unsubscribe()

	// Workers
	workerGroup := workers.NewGroup()
	workerGroup.Add("Events", func(ctx context.Context) error {
		return t.eventWorker(
			ctx,
			eventCh,
			func(event manager.Event) { rootPrimitive.HandleEvent(event, t.manager.IsBusy()) },
			rootPrimitive.SetBusy,
		)
	})
	if t.options.AutoRefreshInterval > 0 {
		workerGroup.Add("AutoRefresh", t.autoRefreshWorker)
	}
	workerGroup.Start(appCtx)

	t.manager.GetDriverStatus(appCtx)
	rootPrimitive.SetBusy(t.manager.IsBusy())

	// App Input
	quit := func() {
		appLogger.Info("Exiting")
		go func() {
			t.manager.CancelCurrentCommand(appCtx)
			workerGroup.Cancel()
		}()
	}
	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			quit()
			return nil
		}
		if event.Key() != tcell.KeyRune {
			return event
		}
		switch event.Rune() {
		case 'q':
			quit()
		case 'r':
			t.manager.ListPorts(appCtx)
		case 'd':
			t.manager.GetDriverStatus(appCtx)
		case 'c':
			go t.manager.CancelCurrentCommand(appCtx)
		default:
			return event
		}
		statusPrimitive.SetBusy(t.manager.IsBusy())
		return nil
	})

	// Exit
	var exitMu sync.Mutex
	exitMu.Lock()
	go func() {
		logger := log.MustLogger(appCtx)
		err = errors.Join(err, workerGroup.Wait(appCtx))
		logger.Info("Stopping App")
		appHandler.Disable()
		app.Stop()
		exitMu.Unlock()
	}()
	defer func() { exitMu.Lock() }()
	defer func() {
		logger := log.MustLogger(consoleCtx)

		if r := recover(); r != nil {
			logger.Debug("Panic", "recovered", r, "stack", string(debug.Stack()))
		}

		// After Application.Run returns, pending Application.QueueUpdate calls block forever.
		// Spinning the app again on a simulated screen drains them, so workers can shut down.
		app.SetScreen(tcell.NewSimulationScreen("UTF-8"))
		go func() {
			logger.Debug("Restarting app with simulated screen to support workers shutdown")
			logger.Debug("Simulated screen app returned", "err", app.Run())
		}()

		logger.Info("Stopping all workers")
		t.manager.CancelCurrentCommand(consoleCtx)
		workerGroup.Cancel()
	}()

	if runErr := app.Run(); runErr != nil {
		consoleLogger.Error("Application failed", "err", runErr)
		err = errors.Join(err, runErr)
	}
	return
}
