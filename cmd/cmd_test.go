package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fornellas/vpm/internal/fakesetupc"
	"github.com/fornellas/vpm/manager"
)

func TestMain(m *testing.M) {
	fakesetupc.MaybeRun()
	os.Exit(m.Run())
}

const listOutput = "       CNCA0 PortName=COM8\n       CNCB0 PortName=COM9,EmuBR=yes\n"

type result struct {
	stdout   string
	stderr   string
	exitCode int
}

// run executes the root command with args against a fake setupc configured by env.
func run(t *testing.T, env map[string]string, args ...string) (result, string) {
	t.Helper()
	setupcPath, logPath := fakesetupc.Setup(t, env)
	configPath := filepath.Join(t.TempDir(), "config.json")

	exitCode := 0
	savedExit := Exit
	Exit = func(code int) { exitCode = code }
	t.Cleanup(func() {
		Exit = savedExit
		ResetFlags()
	})
	ResetFlags()

	var stdout, stderr bytes.Buffer
	RootCmd.SetOut(&stdout)
	RootCmd.SetErr(&stderr)
	RootCmd.SetArgs(append([]string{"--config", configPath, "--setupc-path", setupcPath}, args...))
	require.NoError(t, RootCmd.ExecuteContext(t.Context()))

	return result{
		stdout:   stdout.String(),
		stderr:   stderr.String(),
		exitCode: exitCode,
	}, logPath
}

func TestList(t *testing.T) {
	r, logPath := run(t, map[string]string{fakesetupc.EnvListOutput: listOutput}, "list")
	require.Equal(t, 0, r.exitCode, r.stderr)
	require.Contains(t, r.stdout, "PAIR")
	require.Contains(t, r.stdout, "CNCA0")
	require.Contains(t, r.stdout, "COM9")
	require.Equal(t, []string{"list"}, fakesetupc.Invocations(t, logPath))
}

func TestListJSON(t *testing.T) {
	r, _ := run(t, map[string]string{fakesetupc.EnvListOutput: listOutput}, "list", "-o", "json")
	require.Equal(t, 0, r.exitCode, r.stderr)
	var portPairs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &portPairs))
	require.Len(t, portPairs, 1)
	require.Equal(t, float64(0), portPairs[0]["number"])
	require.Equal(t, "Active", portPairs[0]["status"])
}

func TestListEmpty(t *testing.T) {
	r, _ := run(t, map[string]string{}, "list")
	require.Equal(t, 0, r.exitCode, r.stderr)
	require.Equal(t, "No port pairs.\n", r.stdout)
}

func TestInstall(t *testing.T) {
	r, logPath := run(
		t, map[string]string{fakesetupc.EnvListOutput: listOutput},
		"install", "--params-a", "PortName=COM8",
	)
	require.Equal(t, 0, r.exitCode, r.stderr)
	require.Contains(t, r.stdout, "COM8")
	require.Equal(t, []string{"install PortName=COM8 -", "list"}, fakesetupc.Invocations(t, logPath))
}

func TestInstallFailureDiagnosis(t *testing.T) {
	r, logPath := run(t, map[string]string{
		fakesetupc.EnvFail:   "install",
		fakesetupc.EnvStderr: "Access is denied",
	}, "install")
	require.Equal(t, 1, r.exitCode)
	require.Contains(t, r.stderr, "Permission Denied")
	require.Contains(t, r.stderr, "Run as Administrator")
	require.Equal(t, []string{"install - -"}, fakesetupc.Invocations(t, logPath))
}

func TestInvalidPairNumber(t *testing.T) {
	r, logPath := run(t, map[string]string{}, "remove", "1000")
	require.Equal(t, 1, r.exitCode)
	require.Nil(t, fakesetupc.Invocations(t, logPath))
}

func TestChangeRejected(t *testing.T) {
	r, logPath := run(t, map[string]string{}, "change", "CNCA0", "EmuBR")
	require.Equal(t, 1, r.exitCode)
	require.Contains(t, r.stderr, "Invalid Parameter")
	require.Nil(t, fakesetupc.Invocations(t, logPath))
}

func TestDriverStatus(t *testing.T) {
	r, _ := run(t, map[string]string{}, "driver", "status", "-o", "yaml")
	require.Equal(t, 0, r.exitCode, r.stderr)
	var info map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(r.stdout), &info))
	require.Equal(t, "Installed", info["status"])
}

func TestBusyNames(t *testing.T) {
	r, logPath := run(t, map[string]string{}, "busynames", "COM?*")
	require.Equal(t, 0, r.exitCode, r.stderr)
	require.Equal(t, "busynames: ok\n", r.stdout)
	require.Equal(t, []string{"busynames COM?*"}, fakesetupc.Invocations(t, logPath))
}

func TestConfigSetShow(t *testing.T) {
	r, _ := run(t, map[string]string{}, "config", "set", "theme", "dark")
	require.Equal(t, 0, r.exitCode, r.stderr)

	r, _ = run(t, map[string]string{}, "config", "set", "theme", "blue")
	require.Equal(t, 1, r.exitCode)
}

func TestInvalidTimeout(t *testing.T) {
	r, logPath := run(t, map[string]string{}, "--timeout", "601", "list")
	require.Equal(t, 1, r.exitCode)
	require.Nil(t, fakesetupc.Invocations(t, logPath))
}

func TestOutputValue(t *testing.T) {
	o := NewOutputValue()
	require.Equal(t, "text", o.String())
	require.NoError(t, o.Set("yaml"))
	require.Equal(t, "yaml", o.String())
	require.Error(t, o.Set("xml"))
	require.Equal(t, "yaml", o.String())
	o.Reset()
	require.Equal(t, "text", o.String())
	require.Equal(t, "text|json|yaml", o.Type())
}

func TestOverrideSettings(t *testing.T) {
	base := manager.StaticSettings{Path: "setupc.exe", Timeout: 30 * time.Second}

	s := overrideSettings{Settings: base}
	require.Equal(t, "setupc.exe", s.SetupcPath())
	require.Equal(t, 30*time.Second, s.CommandTimeout())

	s = overrideSettings{Settings: base, setupcPath: "other.exe", timeout: 5 * time.Second}
	require.Equal(t, "other.exe", s.SetupcPath())
	require.Equal(t, 5*time.Second, s.CommandTimeout())
}
