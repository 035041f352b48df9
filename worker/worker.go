// Package worker runs a single setupc invocation off the caller's goroutine.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fornellas/slogxt/log"
	"github.com/google/uuid"

	fmtx "github.com/fornellas/vpm/internal/fmt"
	"github.com/fornellas/vpm/setupc"
)

// DefaultGracePeriod is how long a terminated process has to exit before it is killed.
var DefaultGracePeriod = 3 * time.Second

type Options struct {
	// Timeout bounds the execution; zero means no timeout.
	Timeout time.Duration
	// Dir is the working directory; empty means the current one.
	Dir string
	// GracePeriod between the termination request and the forced kill.
	GracePeriod time.Duration
}

// CommandWorker executes a single process. Arguments are passed to the process as is, never
// through a shell.
type CommandWorker struct {
	executable string
	args       []string
	options    Options

	mu         sync.Mutex
	started    bool
	terminated bool
	cancelFunc context.CancelFunc
	doneCh     chan struct{}
}

func New(executable string, args []string, options *Options) *CommandWorker {
	w := &CommandWorker{
		executable: executable,
		args:       append([]string{}, args...),
		doneCh:     make(chan struct{}),
	}
	if options != nil {
		w.options = *options
	}
	if w.options.GracePeriod <= 0 {
		w.options.GracePeriod = DefaultGracePeriod
	}
	return w
}

// Command returns the invocation as a single line.
func (w *CommandWorker) Command() string {
	return strings.Join(append([]string{w.executable}, w.args...), " ")
}

// Start runs the command on a new goroutine. The returned channel receives the result once,
// then is closed.
func (w *CommandWorker) Start(ctx context.Context) <-chan *setupc.CommandResult {
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	resultCh := make(chan *setupc.CommandResult, 1)
	go func() {
		resultCh <- w.Run(ctx)
		close(resultCh)
	}()
	return resultCh
}

// Running reports whether the command was started and did not finish yet.
func (w *CommandWorker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return false
	}
	select {
	case <-w.doneCh:
		return false
	default:
		return true
	}
}

// Terminate requests the process to stop, kills it if it does not exit within the grace period,
// and waits for Run to return.
func (w *CommandWorker) Terminate() {
	w.mu.Lock()
	w.terminated = true
	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	started := w.started
	w.mu.Unlock()
	if started {
		<-w.doneCh
	}
}

// Run executes the command and blocks until it finishes. Failures are reported through the
// result, never as a panic or error.
//
//gocyclo:ignore
func (w *CommandWorker) Run(ctx context.Context) *setupc.CommandResult {
	result := &setupc.CommandResult{
		ID:      uuid.NewString(),
		Command: w.Command(),
	}

	ctx, logger := log.MustWithGroupAttrs(ctx, "Worker", "id", result.ID, "command", result.Command)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.mu.Lock()
	w.started = true
	w.cancelFunc = cancel
	if w.terminated {
		cancel()
	}
	w.mu.Unlock()
	defer close(w.doneCh)

	timeoutCtx := ctx
	if w.options.Timeout > 0 {
		var timeoutCancel context.CancelFunc
		timeoutCtx, timeoutCancel = context.WithTimeout(ctx, w.options.Timeout)
		defer timeoutCancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(timeoutCtx, w.executable, w.args...)
	cmd.Dir = w.options.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Cancel = func() error {
		logger.Debug("Requesting termination")
		return gracefulTerminate(cmd)
	}
	cmd.WaitDelay = w.options.GracePeriod

	logger.Debug("Starting", "dir", w.options.Dir, "timeout", w.options.Timeout)
	start := time.Now()
	err := cmd.Run()
	result.ExecutionTime = time.Since(start)
	result.Output = stdout.String()

	if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Exited() {
		// exited, but something inherited and kept its output open
		err = nil
		if code := cmd.ProcessState.ExitCode(); code != 0 {
			err = &exec.ExitError{ProcessState: cmd.ProcessState}
		}
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.Success = true
		result.Error = stderr.String()
	case ctx.Err() != nil:
		result.ReturnCode = setupc.ReturnCodeUnexpected
		result.Error = "Unexpected error: command cancelled"
	case errors.Is(timeoutCtx.Err(), context.DeadlineExceeded):
		result.ReturnCode = setupc.ReturnCodeTimeout
		result.Error = fmt.Sprintf(
			"Command timed out after %s seconds", fmtx.SprintFloat(w.options.Timeout.Seconds(), 3),
		)
	case errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist):
		name := filepath.Base(w.executable)
		result.ReturnCode = setupc.ReturnCodeNotFound
		result.Error = fmt.Sprintf(
			"%s not found. Please ensure com0com is installed and %s is in your PATH.", name, name,
		)
	case errors.As(err, &exitErr) && exitErr.ExitCode() >= 0:
		result.ReturnCode = exitErr.ExitCode()
		result.Error = stderr.String()
	default:
		result.ReturnCode = setupc.ReturnCodeUnexpected
		result.Error = fmt.Sprintf("Unexpected error: %s", err)
	}

	logger.Debug(
		"Finished",
		"success", result.Success,
		"return-code", result.ReturnCode,
		"execution-time", fmtx.SprintSeconds(result.ExecutionTime),
	)
	return result
}
