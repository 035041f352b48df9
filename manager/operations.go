package manager

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fornellas/slogxt/log"

	"github.com/fornellas/vpm/params"
	"github.com/fornellas/vpm/setupc"
)

func (m *Manager) reject(ctx context.Context, message string) {
	log.MustLogger(ctx).Warn("Invalid request", "reason", message)
	m.publish(&ErrorOccurredEvent{Message: message})
}

func failure(ctx context.Context, prefix string, result *setupc.CommandResult) outcome {
	message := result.ErrorMessage()
	if prefix != "" {
		message = prefix + ": " + message
	}
	log.MustLogger(ctx).Error("Command failed", "command", result.Command, "error", message)
	return outcome{events: []Event{&ErrorOccurredEvent{Message: message}}}
}

func (m *Manager) listCommand() *command {
	return &command{
		args: setupc.ListArgs(),
		handle: func(ctx context.Context, result *setupc.CommandResult) outcome {
			if !result.Success {
				return failure(ctx, "Failed to list ports", result)
			}
			portPairs, err := setupc.ParsePortListReader(strings.NewReader(result.Output))
			if err != nil {
				message := fmt.Sprintf("Failed to parse port list: %s", err)
				log.MustLogger(ctx).Error(message)
				return outcome{events: []Event{&ErrorOccurredEvent{Message: message}}}
			}
			m.setPortPairs(portPairs)
			log.MustLogger(ctx).Info("Port list updated", "pairs", len(portPairs))
			return outcome{events: []Event{&PortListUpdatedEvent{PortPairs: setupc.ClonePortPairs(portPairs)}}}
		},
	}
}

// refreshing runs args, refreshing the port list on success.
func (m *Manager) refreshing(args []string, failurePrefix string) *command {
	return &command{
		args: args,
		handle: func(ctx context.Context, result *setupc.CommandResult) outcome {
			if !result.Success {
				return failure(ctx, failurePrefix, result)
			}
			return outcome{next: m.listCommand()}
		},
	}
}

// passthrough runs args, whose output is only delivered through CommandCompletedEvent.
func passthrough(args []string, failurePrefix string) *command {
	return &command{
		args: args,
		handle: func(ctx context.Context, result *setupc.CommandResult) outcome {
			if !result.Success {
				return failure(ctx, failurePrefix, result)
			}
			return outcome{}
		},
	}
}

func (m *Manager) driverStatusCommand(delay time.Duration) *command {
	return &command{
		delay: delay,
		args:  setupc.ListArgs(),
		handle: func(ctx context.Context, result *setupc.CommandResult) outcome {
			info := setupc.DriverInfo{}
			switch {
			case result.Success:
				info.Status = setupc.DriverStatusInstalled
				info.InstallPath = m.settings.SetupcPath()
			case strings.Contains(strings.ToLower(result.Error), "not found"):
				info.Status = setupc.DriverStatusNotInstalled
				info.ErrorMessage = fmt.Sprintf("%s not found", filepath.Base(m.settings.SetupcPath()))
			default:
				info.Status = setupc.DriverStatusError
				info.ErrorMessage = result.ErrorMessage()
			}
			log.MustLogger(ctx).Info("Driver status", "status", info.Status.String())
			return outcome{events: []Event{&DriverStatusChangedEvent{DriverInfo: info}}}
		},
	}
}

// driverOperation runs args, probing the driver status after a delay on success.
func (m *Manager) driverOperation(args []string) *command {
	return &command{
		args: args,
		handle: func(ctx context.Context, result *setupc.CommandResult) outcome {
			if !result.Success {
				return failure(ctx, "", result)
			}
			return outcome{next: m.driverStatusCommand(m.options.DriverStatusDelay)}
		},
	}
}

// ListPorts refreshes the cached port pairs.
func (m *Manager) ListPorts(ctx context.Context) {
	ctx, logger := log.MustWithGroup(ctx, "ListPorts")
	logger.Info("Listing ports")
	m.dispatch(ctx, m.listCommand())
}

// InstallPortPair creates a pair, with the given number or the next free one when pairNumber is
// nil. Parameter strings of "-" leave the default settings.
func (m *Manager) InstallPortPair(ctx context.Context, pairNumber *int, paramsA, paramsB string) {
	ctx, logger := log.MustWithGroup(ctx, "InstallPortPair")

	if pairNumber != nil {
		if err := params.ValidatePortNumber(*pairNumber); err != nil {
			m.reject(ctx, fmt.Sprintf("Invalid port number: %s", err))
			return
		}
	}
	if paramsA != params.DefaultValue {
		if err := params.ValidateParameterString(paramsA); err != nil {
			m.reject(ctx, fmt.Sprintf("Invalid parameters for port A: %s", err))
			return
		}
	}
	if paramsB != params.DefaultValue {
		if err := params.ValidateParameterString(paramsB); err != nil {
			m.reject(ctx, fmt.Sprintf("Invalid parameters for port B: %s", err))
			return
		}
	}

	logger.Info("Installing port pair", "params-a", paramsA, "params-b", paramsB)
	m.dispatch(ctx, m.refreshing(
		setupc.InstallArgs(pairNumber, paramsA, paramsB), "Failed to install port pair",
	))
}

func (m *Manager) RemovePortPair(ctx context.Context, pairNumber int) {
	ctx, logger := log.MustWithGroup(ctx, "RemovePortPair")
	if err := params.ValidatePortNumber(pairNumber); err != nil {
		m.reject(ctx, fmt.Sprintf("Invalid port number: %s", err))
		return
	}
	logger.Info("Removing port pair", "number", pairNumber)
	m.dispatch(ctx, m.refreshing(setupc.RemoveArgs(pairNumber), "Failed to remove port pair"))
}

// ChangePortConfig applies parameters to the port with the given identifier, eg: CNCA0.
func (m *Manager) ChangePortConfig(ctx context.Context, portID, parameters string) {
	ctx, logger := log.MustWithGroup(ctx, "ChangePortConfig")
	if err := params.ValidatePortIdentifier(portID); err != nil {
		m.reject(ctx, fmt.Sprintf("Invalid port identifier: %s", err))
		return
	}
	if err := params.ValidateParameterString(parameters); err != nil {
		m.reject(ctx, fmt.Sprintf("Invalid parameters: %s", err))
		return
	}
	logger.Info("Changing port configuration", "port", portID, "parameters", parameters)
	m.dispatch(ctx, m.refreshing(
		setupc.ChangeArgs(portID, parameters), "Failed to change port configuration",
	))
}

// GetDriverStatus probes setupc; the result is always delivered as a DriverStatusChangedEvent.
// Probe failures are reported only through DriverInfo.Status and DriverInfo.ErrorMessage, never
// as an ErrorOccurredEvent.
func (m *Manager) GetDriverStatus(ctx context.Context) {
	ctx, logger := log.MustWithGroup(ctx, "GetDriverStatus")
	logger.Info("Checking driver status")
	m.dispatch(ctx, m.driverStatusCommand(0))
}

func (m *Manager) PreinstallDriver(ctx context.Context) {
	ctx, logger := log.MustWithGroup(ctx, "PreinstallDriver")
	logger.Info("Preinstalling driver")
	m.dispatch(ctx, m.driverOperation([]string{setupc.CommandPreinstall}))
}

func (m *Manager) UpdateDriver(ctx context.Context) {
	ctx, logger := log.MustWithGroup(ctx, "UpdateDriver")
	logger.Info("Updating driver")
	m.dispatch(ctx, m.driverOperation([]string{setupc.CommandUpdate}))
}

func (m *Manager) ReloadDriver(ctx context.Context) {
	ctx, logger := log.MustWithGroup(ctx, "ReloadDriver")
	logger.Info("Reloading driver")
	m.dispatch(ctx, m.refreshing([]string{setupc.CommandReload}, ""))
}

// UninstallDriver removes the driver and all pairs, clearing the cache on success.
func (m *Manager) UninstallDriver(ctx context.Context) {
	ctx, logger := log.MustWithGroup(ctx, "UninstallDriver")
	logger.Info("Uninstalling driver")
	m.dispatch(ctx, &command{
		args: []string{setupc.CommandUninstall},
		handle: func(ctx context.Context, result *setupc.CommandResult) outcome {
			if !result.Success {
				return failure(ctx, "", result)
			}
			m.setPortPairs(nil)
			return outcome{
				events: []Event{&PortListUpdatedEvent{PortPairs: []setupc.PortPair{}}},
				next:   m.driverStatusCommand(m.options.DriverStatusDelay),
			}
		},
	})
}

func (m *Manager) EnableAllPorts(ctx context.Context) {
	ctx, logger := log.MustWithGroup(ctx, "EnableAllPorts")
	logger.Info("Enabling all ports")
	m.dispatch(ctx, m.refreshing(setupc.EnableAllArgs(), ""))
}

func (m *Manager) DisableAllPorts(ctx context.Context) {
	ctx, logger := log.MustWithGroup(ctx, "DisableAllPorts")
	logger.Info("Disabling all ports")
	m.dispatch(ctx, m.refreshing(setupc.DisableAllArgs(), ""))
}

func (m *Manager) CleanInfFiles(ctx context.Context) {
	ctx, logger := log.MustWithGroup(ctx, "CleanInfFiles")
	logger.Info("Cleaning INF files")
	m.dispatch(ctx, passthrough([]string{setupc.CommandInfClean}, "Failed to clean INF files"))
}

func (m *Manager) ListFriendlyNames(ctx context.Context) {
	ctx, logger := log.MustWithGroup(ctx, "ListFriendlyNames")
	logger.Info("Listing friendly names")
	m.dispatch(ctx, passthrough([]string{setupc.CommandListFNames}, "Failed to list friendly names"))
}

// CheckBusyNames lists the port names matching pattern, eg: COM?*, that are in use.
func (m *Manager) CheckBusyNames(ctx context.Context, pattern string) {
	ctx, logger := log.MustWithGroup(ctx, "CheckBusyNames")
	if strings.TrimSpace(pattern) == "" {
		m.reject(ctx, "Pattern cannot be empty for busy names check")
		return
	}
	logger.Info("Checking busy names", "pattern", pattern)
	m.dispatch(ctx, passthrough(setupc.BusyNamesArgs(pattern), "Failed to check busy names"))
}

func (m *Manager) UpdateFriendlyNames(ctx context.Context) {
	ctx, logger := log.MustWithGroup(ctx, "UpdateFriendlyNames")
	logger.Info("Updating friendly names")
	m.dispatch(ctx, m.refreshing(
		[]string{setupc.CommandUpdateFNames}, "Failed to update friendly names",
	))
}
