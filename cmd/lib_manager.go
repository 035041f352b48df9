package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	"github.com/fornellas/vpm/config"
	"github.com/fornellas/vpm/manager"
	"github.com/fornellas/vpm/params"
)

var configPath string
var defaultConfigPath = ""

var setupcPath string
var defaultSetupcPath = ""

var timeout int
var defaultTimeout = 0

func AddManagerFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&configPath, "config", defaultConfigPath,
		"Path to the JSON config file (default is com0com_manager/config.json under the user config directory)",
	)
	cmd.PersistentFlags().StringVar(
		&setupcPath, "setupc-path", defaultSetupcPath,
		"Path to setupc.exe, overrides the config file",
	)
	cmd.PersistentFlags().IntVar(
		&timeout, "timeout", defaultTimeout,
		"setupc command timeout in seconds, overrides the config file",
	)
}

func init() {
	resetFlagsFns = append(resetFlagsFns, func() {
		configPath = defaultConfigPath
		setupcPath = defaultSetupcPath
		timeout = defaultTimeout
	})
}

// GetConfig loads the config file selected by the flags.
func GetConfig(ctx context.Context) (*config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return config.Load(ctx, path), nil
}

// overrideSettings applies the flag overrides on top of the config file.
type overrideSettings struct {
	manager.Settings
	setupcPath string
	timeout    time.Duration
}

func (s overrideSettings) SetupcPath() string {
	if s.setupcPath != "" {
		return s.setupcPath
	}
	return s.Settings.SetupcPath()
}

func (s overrideSettings) CommandTimeout() time.Duration {
	if s.timeout > 0 {
		return s.timeout
	}
	return s.Settings.CommandTimeout()
}

// GetSettings returns the manager settings from the config file and flags.
func GetSettings(ctx context.Context) (manager.Settings, *config.Config, error) {
	if timeout != defaultTimeout {
		if err := params.ValidateCommandTimeout(timeout); err != nil {
			return nil, nil, fmt.Errorf("invalid --timeout: %w", err)
		}
	}
	cfg, err := GetConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	return overrideSettings{
		Settings:   cfg,
		setupcPath: setupcPath,
		timeout:    time.Duration(timeout) * time.Second,
	}, cfg, nil
}

// OperationError holds the messages of the ErrorOccurredEvent published by an operation.
type OperationError struct {
	Messages []string
}

func (e *OperationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// RunOperation calls op on a new manager and waits for it to finish. Every event is passed to
// onEvent, when not nil. Published errors are returned as an *OperationError.
func RunOperation(
	ctx context.Context,
	op func(m *manager.Manager, ctx context.Context),
	onEvent func(event manager.Event),
) error {
	logger := log.MustLogger(ctx)

	settings, _, err := GetSettings(ctx)
	if err != nil {
		return err
	}
	logger.Debug("Settings", "setupc-path", settings.SetupcPath(), "timeout", settings.CommandTimeout())

	m := manager.New(settings, manager.DefaultOptions())
	defer m.Close(context.WithoutCancel(ctx))

	var mu sync.Mutex
	var messages []string
	m.Subscribe("Cli", func(event manager.Event) {
		logger.Debug("Event", "event", event.String())
		if e, ok := event.(*manager.ErrorOccurredEvent); ok {
			mu.Lock()
			messages = append(messages, e.Message)
			mu.Unlock()
		}
		if onEvent != nil {
			onEvent(event)
		}
	})

	op(m, ctx)
	if err := m.Wait(ctx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if len(messages) > 0 {
		return &OperationError{Messages: messages}
	}
	return nil
}
