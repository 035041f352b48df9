// Package fakesetupc turns a test binary into a stand-in for setupc.exe.
//
// A package's TestMain calls MaybeRun first; tests then call Setup, which points the environment
// at the test binary itself, so every spawned "setupc" re-enters TestMain and is handled here.
package fakesetupc

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"
)

const (
	EnvEnable = "VPM_FAKE_SETUPC"
	// EnvLog is a file each invocation appends its arguments to.
	EnvLog = "VPM_FAKE_SETUPC_LOG"
	// EnvListOutput is printed by the list command.
	EnvListOutput = "VPM_FAKE_SETUPC_LIST_OUTPUT"
	// EnvFail is a comma separated list of command words that fail.
	EnvFail = "VPM_FAKE_SETUPC_FAIL"
	// EnvStderr is printed to stderr by failing commands.
	EnvStderr = "VPM_FAKE_SETUPC_STDERR"
	// EnvExitCode is the exit code of failing commands.
	EnvExitCode = "VPM_FAKE_SETUPC_EXIT_CODE"
	// EnvHang is a comma separated list of command words that never finish.
	EnvHang = "VPM_FAKE_SETUPC_HANG"
	// EnvIgnoreTerm makes the process ignore SIGTERM.
	EnvIgnoreTerm = "VPM_FAKE_SETUPC_IGNORE_TERM"
)

func inList(env, word string) bool {
	for _, item := range strings.Split(os.Getenv(env), ",") {
		if item != "" && item == word {
			return true
		}
	}
	return false
}

func run(args []string) int {
	if os.Getenv(EnvIgnoreTerm) != "" {
		signal.Ignore(syscall.SIGTERM)
	}

	if path := os.Getenv(EnvLog); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 100
		}
		fmt.Fprintln(f, strings.Join(args, " "))
		if err := f.Close(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 100
		}
	}

	var word string
	if len(args) > 0 {
		word = args[0]
	}

	if inList(EnvHang, word) {
		time.Sleep(time.Minute)
		return 0
	}

	if inList(EnvFail, word) {
		stderr := os.Getenv(EnvStderr)
		if stderr == "" {
			stderr = "failed"
		}
		fmt.Fprint(os.Stderr, stderr)
		exitCode := 1
		if s := os.Getenv(EnvExitCode); s != "" {
			var err error
			if exitCode, err = strconv.Atoi(s); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 100
			}
		}
		return exitCode
	}

	switch word {
	case "list":
		fmt.Print(os.Getenv(EnvListOutput))
	case "pwd":
		wd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 100
		}
		fmt.Print(wd)
	case "echo":
		fmt.Print(strings.Join(args[1:], "|"))
	default:
		fmt.Printf("%s: ok\n", word)
	}
	return 0
}

// MaybeRun handles the invocation and exits when the process was started as a fake setupc.
func MaybeRun() {
	if os.Getenv(EnvEnable) == "" {
		return
	}
	os.Exit(run(os.Args[1:]))
}

// Setup sets the environment for spawned test binaries to act as setupc, and returns the path to
// use as the setupc executable along with the invocation log path.
func Setup(t *testing.T, env map[string]string) (string, string) {
	t.Helper()
	executable, err := os.Executable()
	if err != nil {
		t.Fatalf("failed to get test executable: %v", err)
	}
	logPath := t.TempDir() + string(os.PathSeparator) + "invocations.log"
	t.Setenv(EnvEnable, "1")
	t.Setenv(EnvLog, logPath)
	for _, key := range []string{EnvListOutput, EnvFail, EnvStderr, EnvExitCode, EnvHang, EnvIgnoreTerm} {
		t.Setenv(key, env[key])
	}
	return executable, logPath
}

// Invocations returns the argument lines logged by every fake setupc run so far.
func Invocations(t *testing.T, logPath string) []string {
	t.Helper()
	f, err := os.Open(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("failed to open invocation log: %v", err)
	}
	defer f.Close()
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("failed to read invocation log: %v", err)
	}
	return lines
}
