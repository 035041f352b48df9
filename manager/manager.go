// Package manager serializes setupc invocations, keeps the cached port pair list and publishes
// the outcome of every operation as events.
package manager

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fornellas/slogxt/log"

	"github.com/fornellas/vpm/broker"
	"github.com/fornellas/vpm/setupc"
	"github.com/fornellas/vpm/worker"
)

// BusyMessage is the ErrorOccurredEvent message for requests rejected while a command runs.
const BusyMessage = "Another command is already running. Please wait."

// Settings the manager reads before every invocation.
type Settings interface {
	SetupcPath() string
	CommandTimeout() time.Duration
}

// StaticSettings is a Settings with fixed values.
type StaticSettings struct {
	Path    string
	Timeout time.Duration
}

func (s StaticSettings) SetupcPath() string {
	return s.Path
}

func (s StaticSettings) CommandTimeout() time.Duration {
	return s.Timeout
}

type Options struct {
	// CancelGracePeriod is how long a cancelled setupc has to exit before being killed.
	CancelGracePeriod time.Duration
	// DriverStatusDelay is waited after a driver operation before probing its status.
	DriverStatusDelay time.Duration
}

func DefaultOptions() *Options {
	return &Options{
		CancelGracePeriod: worker.DefaultGracePeriod,
		DriverStatusDelay: 50 * time.Millisecond,
	}
}

// outcome of a command: events to publish after its CommandCompletedEvent and an optional
// follow-on command run within the same chain.
type outcome struct {
	events []Event
	next   *command
}

type command struct {
	// delay before running
	delay  time.Duration
	args   []string
	handle func(ctx context.Context, result *setupc.CommandResult) outcome
}

// Manager runs at most one chain of setupc commands at a time. Requests received while a chain
// runs are rejected.
type Manager struct {
	settings Settings
	options  Options
	broker   *broker.Broker[Event]

	mu          sync.Mutex
	busy        bool
	chainCancel context.CancelFunc
	doneCh      chan struct{}
	current     *worker.CommandWorker
	portPairs   []setupc.PortPair
}

func New(settings Settings, options *Options) *Manager {
	if options == nil {
		options = DefaultOptions()
	}
	return &Manager{
		settings:  settings,
		options:   *options,
		broker:    broker.NewBroker[Event](),
		portPairs: []setupc.PortPair{},
	}
}

// Subscribe registers handler for all events. Handlers are called on the goroutine publishing
// the event and may call any Manager method.
func (m *Manager) Subscribe(name string, handler func(Event)) func() {
	return m.broker.Subscribe(name, handler)
}

func (m *Manager) publish(event Event) {
	m.broker.Publish(event)
}

// IsBusy reports whether a command chain is running.
func (m *Manager) IsBusy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}

// PortPairs returns a copy of the cached port pairs, as of the last successful list.
func (m *Manager) PortPairs() []setupc.PortPair {
	m.mu.Lock()
	defer m.mu.Unlock()
	return setupc.ClonePortPairs(m.portPairs)
}

func (m *Manager) setPortPairs(portPairs []setupc.PortPair) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.portPairs = setupc.ClonePortPairs(portPairs)
}

// workingDir returns the directory setupc runs from: the one holding it, or the current
// directory when path has none.
func workingDir(path string) string {
	if filepath.Base(path) == path {
		return ""
	}
	return filepath.Dir(path)
}

// dispatch starts a new chain with cmd, or rejects it if one is running.
func (m *Manager) dispatch(ctx context.Context, cmd *command) {
	m.mu.Lock()
	if m.busy {
		m.mu.Unlock()
		log.MustLogger(ctx).Warn("Command rejected", "args", cmd.args)
		m.publish(&ErrorOccurredEvent{Message: BusyMessage})
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.busy = true
	m.chainCancel = cancel
	m.doneCh = done
	m.mu.Unlock()

	go m.runChain(ctx, cancel, done, cmd)
}

func (m *Manager) setIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = false
	m.chainCancel = nil
	m.current = nil
}

func (m *Manager) runChain(ctx context.Context, cancel context.CancelFunc, done chan struct{}, cmd *command) {
	defer close(done)
	defer cancel()
	logger := log.MustLogger(ctx)

	for cmd != nil {
		if cmd.delay > 0 {
			timer := time.NewTimer(cmd.delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				logger.Info("Command chain cancelled", "args", cmd.args)
				m.setIdle()
				return
			}
		}

		path := m.settings.SetupcPath()
		w := worker.New(path, cmd.args, &worker.Options{
			Timeout:     m.settings.CommandTimeout(),
			Dir:         workingDir(path),
			GracePeriod: m.options.CancelGracePeriod,
		})
		m.mu.Lock()
		m.current = w
		m.mu.Unlock()

		result := w.Run(ctx)

		if ctx.Err() != nil {
			logger.Info("Command cancelled, result discarded", "command", result.Command)
			m.setIdle()
			return
		}

		o := cmd.handle(ctx, result)
		if o.next == nil {
			m.setIdle()
		}
		m.publish(&CommandCompletedEvent{Result: result})
		for _, event := range o.events {
			m.publish(event)
		}
		cmd = o.next
	}
}

// CancelCurrentCommand stops the running chain, if any, and waits for it to end. The running
// process is asked to exit, then killed after the grace period. Its result is discarded.
// It must not be called from an event handler.
func (m *Manager) CancelCurrentCommand(ctx context.Context) {
	m.mu.Lock()
	cancel, done, current := m.chainCancel, m.doneCh, m.current
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	log.MustLogger(ctx).Info("Cancelling current command")
	cancel()
	if current != nil {
		current.Terminate()
	}
	<-done
}

// Wait blocks until the most recent chain published its last event.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	done := m.doneCh
	m.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels the running chain and drops all subscribers.
func (m *Manager) Close(ctx context.Context) {
	m.CancelCurrentCommand(ctx)
	m.broker.Close()
}
