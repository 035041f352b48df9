package manager

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fornellas/slogxt/log"
	"github.com/stretchr/testify/require"

	"github.com/fornellas/vpm/internal/fakesetupc"
	"github.com/fornellas/vpm/setupc"
)

func TestMain(m *testing.M) {
	fakesetupc.MaybeRun()
	os.Exit(m.Run())
}

var listOutput = strings.Join([]string{
	"       CNCA0 PortName=COM8",
	"       CNCB0 PortName=COM9,EmuBR=yes",
}, "\n")

type recordedEvent struct {
	Event
	time time.Time
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) handle(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Event: event, time: time.Now()})
}

func (r *recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]Event, len(r.events))
	for i, e := range r.events {
		events[i] = e.Event
	}
	return events
}

func (r *recorder) Types() []EventType {
	var types []EventType
	for _, event := range r.Events() {
		types = append(types, event.Type())
	}
	return types
}

func (r *recorder) Errors() []string {
	var messages []string
	for _, event := range r.Events() {
		if e, ok := event.(*ErrorOccurredEvent); ok {
			messages = append(messages, e.Message)
		}
	}
	return messages
}

func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type testManager struct {
	*Manager
	ctx        context.Context
	recorder   *recorder
	executable string
	logPath    string
}

func newTestManager(t *testing.T, env map[string]string, timeout time.Duration) *testManager {
	executable, logPath := fakesetupc.Setup(t, env)
	ctx := log.WithLogger(t.Context(), slog.New(slog.DiscardHandler))
	m := New(
		StaticSettings{Path: executable, Timeout: timeout},
		&Options{CancelGracePeriod: 500 * time.Millisecond, DriverStatusDelay: 50 * time.Millisecond},
	)
	r := &recorder{}
	m.Subscribe("recorder", r.handle)
	t.Cleanup(func() { m.Close(context.WithoutCancel(ctx)) })
	return &testManager{
		Manager:    m,
		ctx:        ctx,
		recorder:   r,
		executable: executable,
		logPath:    logPath,
	}
}

func (tm *testManager) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(tm.ctx, 20*time.Second)
	defer cancel()
	require.NoError(t, tm.Wait(ctx))
	require.False(t, tm.IsBusy())
}

func (tm *testManager) invocations(t *testing.T) []string {
	return fakesetupc.Invocations(t, tm.logPath)
}

func (tm *testManager) waitInvocations(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(tm.invocations(t)) == n
	}, 10*time.Second, 10*time.Millisecond)
}

func TestListPorts(t *testing.T) {
	tm := newTestManager(t, map[string]string{fakesetupc.EnvListOutput: listOutput}, 30*time.Second)

	require.Empty(t, tm.PortPairs())
	tm.ListPorts(tm.ctx)
	tm.wait(t)

	require.Equal(t, []EventType{EventTypeCommandCompleted, EventTypePortListUpdated}, tm.recorder.Types())
	events := tm.recorder.Events()
	result := events[0].(*CommandCompletedEvent).Result
	require.True(t, result.Success)
	require.Equal(t, tm.executable+" list", result.Command)

	portPairs := events[1].(*PortListUpdatedEvent).PortPairs
	require.Len(t, portPairs, 1)
	require.Equal(t, 0, portPairs[0].Number)
	require.Equal(t, "COM8", portPairs[0].PortA.PortName)
	require.Equal(t, "COM9", portPairs[0].PortB.PortName)
	require.Equal(t, "yes", portPairs[0].PortB.Parameter("EmuBR"))

	require.Equal(t, portPairs, tm.PortPairs())

	// snapshot copies
	snapshot := tm.PortPairs()
	snapshot[0].PortA.PortName = "COM1"
	require.Equal(t, "COM8", tm.PortPairs()[0].PortA.PortName)
}

func TestListPortsFailure(t *testing.T) {
	tm := newTestManager(t, map[string]string{
		fakesetupc.EnvFail:   "list",
		fakesetupc.EnvStderr: "access denied",
	}, 30*time.Second)

	tm.ListPorts(tm.ctx)
	tm.wait(t)

	require.Equal(t, []EventType{EventTypeCommandCompleted, EventTypeErrorOccurred}, tm.recorder.Types())
	require.Equal(t, []string{"Failed to list ports: access denied"}, tm.recorder.Errors())
	require.Empty(t, tm.PortPairs())
}

func TestListPortsParseFailureKeepsCache(t *testing.T) {
	tm := newTestManager(t, map[string]string{fakesetupc.EnvListOutput: listOutput}, 30*time.Second)
	tm.ListPorts(tm.ctx)
	tm.wait(t)
	before := tm.PortPairs()
	require.Len(t, before, 1)
	tm.recorder.Reset()

	// longer than a bufio.Scanner token
	t.Setenv(fakesetupc.EnvListOutput, "CNCA1 PortName="+strings.Repeat("x", 70*1024))
	tm.ListPorts(tm.ctx)
	tm.wait(t)

	require.Equal(t, []EventType{EventTypeCommandCompleted, EventTypeErrorOccurred}, tm.recorder.Types())
	require.True(t, strings.HasPrefix(tm.recorder.Errors()[0], "Failed to parse port list: "))
	require.Equal(t, before, tm.PortPairs())
}

func TestListPortsTimeout(t *testing.T) {
	tm := newTestManager(t, map[string]string{fakesetupc.EnvHang: "list"}, 200*time.Millisecond)

	tm.ListPorts(tm.ctx)
	tm.wait(t)

	require.Equal(t, []EventType{EventTypeCommandCompleted, EventTypeErrorOccurred}, tm.recorder.Types())
	result := tm.recorder.Events()[0].(*CommandCompletedEvent).Result
	require.Equal(t, setupc.ReturnCodeTimeout, result.ReturnCode)
	require.Equal(t, []string{"Failed to list ports: Command timed out after 0.2 seconds"}, tm.recorder.Errors())
}

func TestInstallPortPair(t *testing.T) {
	tm := newTestManager(t, map[string]string{fakesetupc.EnvListOutput: listOutput}, 30*time.Second)

	tm.InstallPortPair(tm.ctx, nil, "PortName=COM8", "PortName=COM9")
	tm.wait(t)

	require.Equal(t, []string{"install PortName=COM8 PortName=COM9", "list"}, tm.invocations(t))
	require.Equal(t, []EventType{
		EventTypeCommandCompleted,
		EventTypeCommandCompleted,
		EventTypePortListUpdated,
	}, tm.recorder.Types())
	require.Len(t, tm.PortPairs(), 1)
}

func TestInstallPortPairNumbered(t *testing.T) {
	tm := newTestManager(t, nil, 30*time.Second)

	number := 3
	tm.InstallPortPair(tm.ctx, &number, "-", "-")
	tm.wait(t)

	require.Equal(t, []string{"install 3 - -", "list"}, tm.invocations(t))
	require.Empty(t, tm.recorder.Errors())
}

func TestInstallPortPairFailure(t *testing.T) {
	tm := newTestManager(t, map[string]string{fakesetupc.EnvFail: "install"}, 30*time.Second)

	tm.InstallPortPair(tm.ctx, nil, "-", "-")
	tm.wait(t)

	require.Equal(t, []string{"install - -"}, tm.invocations(t))
	require.Equal(t, []EventType{EventTypeCommandCompleted, EventTypeErrorOccurred}, tm.recorder.Types())
	require.Equal(t, []string{"Failed to install port pair: failed"}, tm.recorder.Errors())
}

func TestValidationRejections(t *testing.T) {
	number := 1000
	for _, tc := range []struct {
		name    string
		call    func(m *Manager, ctx context.Context)
		message string
	}{
		{
			name:    "install port number",
			call:    func(m *Manager, ctx context.Context) { m.InstallPortPair(ctx, &number, "-", "-") },
			message: "Invalid port number: Port number must be between 0 and 999",
		},
		{
			name:    "install params A",
			call:    func(m *Manager, ctx context.Context) { m.InstallPortPair(ctx, nil, "bogus", "-") },
			message: "Invalid parameters for port A: Invalid parameter format: 'bogus'. Expected format: key=value",
		},
		{
			name:    "install params B",
			call:    func(m *Manager, ctx context.Context) { m.InstallPortPair(ctx, nil, "-", "=x") },
			message: "Invalid parameters for port B: Parameter key cannot be empty",
		},
		{
			name:    "remove",
			call:    func(m *Manager, ctx context.Context) { m.RemovePortPair(ctx, -1) },
			message: "Invalid port number: Port number must be between 0 and 999",
		},
		{
			name:    "change port identifier",
			call:    func(m *Manager, ctx context.Context) { m.ChangePortConfig(ctx, "COM8", "EmuBR=yes") },
			message: "Invalid port identifier: Port identifier must match pattern CNC[AB]<number> (e.g., CNCA0, CNCB1)",
		},
		{
			name:    "change parameters",
			call:    func(m *Manager, ctx context.Context) { m.ChangePortConfig(ctx, "CNCA0", "EmuBR=") },
			message: "Invalid parameters: Parameter value for 'EmuBR' cannot be empty",
		},
		{
			name:    "busy names",
			call:    func(m *Manager, ctx context.Context) { m.CheckBusyNames(ctx, "") },
			message: "Pattern cannot be empty for busy names check",
		},
		{
			name:    "busy names whitespace",
			call:    func(m *Manager, ctx context.Context) { m.CheckBusyNames(ctx, " \t  ") },
			message: "Pattern cannot be empty for busy names check",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tm := newTestManager(t, nil, 30*time.Second)
			tc.call(tm.Manager, tm.ctx)
			require.False(t, tm.IsBusy())
			require.Equal(t, []string{tc.message}, tm.recorder.Errors())
			require.Len(t, tm.recorder.Events(), 1)
			tm.wait(t)
			require.Empty(t, tm.invocations(t))
		})
	}
}

func TestBusyRejection(t *testing.T) {
	tm := newTestManager(t, map[string]string{
		fakesetupc.EnvListOutput: listOutput,
		fakesetupc.EnvHang:       "remove",
	}, 30*time.Second)
	tm.ListPorts(tm.ctx)
	tm.wait(t)
	before := tm.PortPairs()
	tm.recorder.Reset()

	tm.RemovePortPair(tm.ctx, 0)
	require.True(t, tm.IsBusy())
	tm.waitInvocations(t, 2)

	tm.ListPorts(tm.ctx)
	tm.InstallPortPair(tm.ctx, nil, "-", "-")

	require.Equal(t, []string{BusyMessage, BusyMessage}, tm.recorder.Errors())
	require.Len(t, tm.recorder.Events(), 2)
	require.True(t, tm.IsBusy())
	require.Equal(t, before, tm.PortPairs())

	tm.CancelCurrentCommand(tm.ctx)
	require.False(t, tm.IsBusy())
	require.Equal(t, []string{"list", "remove 0"}, tm.invocations(t))
	require.Len(t, tm.recorder.Events(), 2)
}

func TestCancelCurrentCommand(t *testing.T) {
	tm := newTestManager(t, map[string]string{fakesetupc.EnvHang: "list"}, 30*time.Second)

	tm.ListPorts(tm.ctx)
	tm.waitInvocations(t, 1)

	start := time.Now()
	tm.CancelCurrentCommand(tm.ctx)
	require.Less(t, time.Since(start), 10*time.Second)
	require.False(t, tm.IsBusy())
	require.NoError(t, tm.Wait(tm.ctx))
	require.Empty(t, tm.recorder.Events())

	// idle again
	t.Setenv(fakesetupc.EnvHang, "")
	tm.ListPorts(tm.ctx)
	tm.wait(t)
	require.Equal(t, []EventType{EventTypeCommandCompleted, EventTypePortListUpdated}, tm.recorder.Types())
}

func TestCancelForcesKill(t *testing.T) {
	tm := newTestManager(t, map[string]string{
		fakesetupc.EnvHang:       "list",
		fakesetupc.EnvIgnoreTerm: "1",
	}, 30*time.Second)

	tm.ListPorts(tm.ctx)
	tm.waitInvocations(t, 1)

	start := time.Now()
	tm.CancelCurrentCommand(tm.ctx)
	require.Less(t, time.Since(start), 10*time.Second)
	require.False(t, tm.IsBusy())
	require.Empty(t, tm.recorder.Events())
}

func TestCancelWhenIdle(t *testing.T) {
	tm := newTestManager(t, nil, 30*time.Second)
	tm.CancelCurrentCommand(tm.ctx)
	require.False(t, tm.IsBusy())
	require.Empty(t, tm.recorder.Events())
}

func TestGetDriverStatus(t *testing.T) {
	t.Run("Installed", func(t *testing.T) {
		tm := newTestManager(t, nil, 30*time.Second)
		tm.GetDriverStatus(tm.ctx)
		tm.wait(t)
		require.Equal(t, []EventType{EventTypeCommandCompleted, EventTypeDriverStatusChanged}, tm.recorder.Types())
		info := tm.recorder.Events()[1].(*DriverStatusChangedEvent).DriverInfo
		require.Equal(t, setupc.DriverStatusInstalled, info.Status)
		require.Equal(t, tm.executable, info.InstallPath)
		require.True(t, info.IsAvailable())
	})
	t.Run("Not Installed", func(t *testing.T) {
		tm := newTestManager(t, map[string]string{
			fakesetupc.EnvFail:   "list",
			fakesetupc.EnvStderr: "Driver NOT FOUND",
		}, 30*time.Second)
		tm.GetDriverStatus(tm.ctx)
		tm.wait(t)
		require.Equal(t, []EventType{EventTypeCommandCompleted, EventTypeDriverStatusChanged}, tm.recorder.Types())
		info := tm.recorder.Events()[1].(*DriverStatusChangedEvent).DriverInfo
		require.Equal(t, setupc.DriverStatusNotInstalled, info.Status)
		require.False(t, info.IsAvailable())
	})
	t.Run("Missing executable", func(t *testing.T) {
		ctx := log.WithLogger(t.Context(), slog.New(slog.DiscardHandler))
		m := New(StaticSettings{Path: filepath.Join(t.TempDir(), "setupc.exe"), Timeout: time.Second}, nil)
		r := &recorder{}
		m.Subscribe("recorder", r.handle)
		m.GetDriverStatus(ctx)
		require.NoError(t, m.Wait(ctx))
		require.Equal(t, []EventType{EventTypeCommandCompleted, EventTypeDriverStatusChanged}, r.Types())
		info := r.Events()[1].(*DriverStatusChangedEvent).DriverInfo
		require.Equal(t, setupc.DriverStatusNotInstalled, info.Status)
		require.Equal(t, "setupc.exe not found", info.ErrorMessage)
	})
	t.Run("Error", func(t *testing.T) {
		tm := newTestManager(t, map[string]string{
			fakesetupc.EnvFail:   "list",
			fakesetupc.EnvStderr: "access denied",
		}, 30*time.Second)
		tm.GetDriverStatus(tm.ctx)
		tm.wait(t)
		require.Equal(t, []EventType{EventTypeCommandCompleted, EventTypeDriverStatusChanged}, tm.recorder.Types())
		info := tm.recorder.Events()[1].(*DriverStatusChangedEvent).DriverInfo
		require.Equal(t, setupc.DriverStatusError, info.Status)
		require.Equal(t, "access denied", info.ErrorMessage)
		require.Empty(t, tm.recorder.Errors())
	})
}

func TestDriverOperations(t *testing.T) {
	for _, tc := range []struct {
		name string
		call func(m *Manager, ctx context.Context)
		word string
	}{
		{"Preinstall", (*Manager).PreinstallDriver, "preinstall"},
		{"Update", (*Manager).UpdateDriver, "update"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tm := newTestManager(t, nil, 30*time.Second)
			tc.call(tm.Manager, tm.ctx)
			tm.wait(t)
			require.Equal(t, []string{tc.word, "list"}, tm.invocations(t))
			require.Equal(t, []EventType{
				EventTypeCommandCompleted,
				EventTypeCommandCompleted,
				EventTypeDriverStatusChanged,
			}, tm.recorder.Types())
		})
		t.Run(tc.name+" failure", func(t *testing.T) {
			tm := newTestManager(t, map[string]string{
				fakesetupc.EnvFail:   tc.word,
				fakesetupc.EnvStderr: "access denied",
			}, 30*time.Second)
			tc.call(tm.Manager, tm.ctx)
			tm.wait(t)
			require.Equal(t, []string{tc.word}, tm.invocations(t))
			require.Equal(t, []string{"access denied"}, tm.recorder.Errors())
		})
	}
}

func TestUninstallDriver(t *testing.T) {
	tm := newTestManager(t, map[string]string{fakesetupc.EnvListOutput: listOutput}, 30*time.Second)
	tm.ListPorts(tm.ctx)
	tm.wait(t)
	require.Len(t, tm.PortPairs(), 1)
	tm.recorder.Reset()

	tm.UninstallDriver(tm.ctx)
	tm.wait(t)

	require.Equal(t, []string{"list", "uninstall", "list"}, tm.invocations(t))
	require.Equal(t, []EventType{
		EventTypeCommandCompleted,
		EventTypePortListUpdated,
		EventTypeCommandCompleted,
		EventTypeDriverStatusChanged,
	}, tm.recorder.Types())
	require.Empty(t, tm.recorder.Events()[1].(*PortListUpdatedEvent).PortPairs)
	require.Empty(t, tm.PortPairs())

	tm.recorder.mu.Lock()
	cleared, status := tm.recorder.events[1].time, tm.recorder.events[3].time
	tm.recorder.mu.Unlock()
	require.GreaterOrEqual(t, status.Sub(cleared), 50*time.Millisecond)
}

func TestRefreshingOperations(t *testing.T) {
	for _, tc := range []struct {
		name    string
		call    func(m *Manager, ctx context.Context)
		command string
		failure string
	}{
		{"Remove", func(m *Manager, ctx context.Context) { m.RemovePortPair(ctx, 2) }, "remove 2", "Failed to remove port pair: failed"},
		{"Change", func(m *Manager, ctx context.Context) { m.ChangePortConfig(ctx, "CNCB2", "EmuBR=yes") }, "change CNCB2 EmuBR=yes", "Failed to change port configuration: failed"},
		{"Reload", (*Manager).ReloadDriver, "reload", "failed"},
		{"EnableAll", (*Manager).EnableAllPorts, "enable all", "failed"},
		{"DisableAll", (*Manager).DisableAllPorts, "disable all", "failed"},
		{"UpdateFriendlyNames", (*Manager).UpdateFriendlyNames, "updatefnames", "Failed to update friendly names: failed"},
	} {
		word := strings.Fields(tc.command)[0]
		t.Run(tc.name, func(t *testing.T) {
			tm := newTestManager(t, nil, 30*time.Second)
			tc.call(tm.Manager, tm.ctx)
			tm.wait(t)
			require.Equal(t, []string{tc.command, "list"}, tm.invocations(t))
			require.Equal(t, []EventType{
				EventTypeCommandCompleted,
				EventTypeCommandCompleted,
				EventTypePortListUpdated,
			}, tm.recorder.Types())
		})
		t.Run(tc.name+" failure", func(t *testing.T) {
			tm := newTestManager(t, map[string]string{fakesetupc.EnvFail: word}, 30*time.Second)
			tc.call(tm.Manager, tm.ctx)
			tm.wait(t)
			require.Equal(t, []string{tc.command}, tm.invocations(t))
			require.Equal(t, []EventType{EventTypeCommandCompleted, EventTypeErrorOccurred}, tm.recorder.Types())
			require.Equal(t, []string{tc.failure}, tm.recorder.Errors())
		})
	}
}

func TestPassthroughOperations(t *testing.T) {
	for _, tc := range []struct {
		name    string
		call    func(m *Manager, ctx context.Context)
		command string
		failure string
	}{
		{"CleanInfFiles", (*Manager).CleanInfFiles, "infclean", "Failed to clean INF files: failed"},
		{"ListFriendlyNames", (*Manager).ListFriendlyNames, "listfnames", "Failed to list friendly names: failed"},
		{"CheckBusyNames", func(m *Manager, ctx context.Context) { m.CheckBusyNames(ctx, "COM?*") }, "busynames COM?*", "Failed to check busy names: failed"},
	} {
		word := strings.Fields(tc.command)[0]
		t.Run(tc.name, func(t *testing.T) {
			tm := newTestManager(t, nil, 30*time.Second)
			tc.call(tm.Manager, tm.ctx)
			tm.wait(t)
			require.Equal(t, []string{tc.command}, tm.invocations(t))
			require.Equal(t, []EventType{EventTypeCommandCompleted}, tm.recorder.Types())
			result := tm.recorder.Events()[0].(*CommandCompletedEvent).Result
			require.Equal(t, word+": ok\n", result.Output)
		})
		t.Run(tc.name+" failure", func(t *testing.T) {
			tm := newTestManager(t, map[string]string{fakesetupc.EnvFail: word}, 30*time.Second)
			tc.call(tm.Manager, tm.ctx)
			tm.wait(t)
			require.Equal(t, []string{tc.failure}, tm.recorder.Errors())
		})
	}
}

func TestWorkingDirectory(t *testing.T) {
	require.Equal(t, "", workingDir("setupc.exe"))
	require.Equal(t, filepath.Join("opt", "com0com"), workingDir(filepath.Join("opt", "com0com", "setupc.exe")))
}

func TestNewOperationFromEventHandler(t *testing.T) {
	tm := newTestManager(t, map[string]string{fakesetupc.EnvListOutput: listOutput}, 30*time.Second)

	chained := make(chan struct{})
	var once sync.Once
	tm.Subscribe("chain", func(event Event) {
		if event.Type() != EventTypePortListUpdated {
			return
		}
		once.Do(func() {
			require.False(t, tm.IsBusy())
			tm.GetDriverStatus(tm.ctx)
			close(chained)
		})
	})

	tm.ListPorts(tm.ctx)
	<-chained
	tm.wait(t)

	require.Equal(t, []string{"list", "list"}, tm.invocations(t))
	require.NotContains(t, tm.recorder.Errors(), BusyMessage)
	require.Equal(t, EventTypeDriverStatusChanged, tm.recorder.Types()[len(tm.recorder.Types())-1])
}
