package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	"github.com/fornellas/vpm/setupc"
)

// Exit terminates the process. Replaced by tests.
var Exit = func(code int) {
	os.Exit(code)
}

var diagnosisTitleColor = color.New(color.FgRed, color.Bold)
var diagnosisSolutionColor = color.New(color.FgCyan)

// printDiagnosis writes troubleshooting hints for a failed setupc operation.
func printDiagnosis(w io.Writer, message string) {
	diagnosis := setupc.Diagnose(message)
	diagnosisTitleColor.Fprintf(w, "%s: %s\n", diagnosis.Severity, diagnosis.Title)
	fmt.Fprintf(w, "%s\n", diagnosis.Message)
	if len(diagnosis.Solutions) > 0 {
		fmt.Fprintln(w, "Possible solutions:")
	}
	for i, solution := range diagnosis.Solutions {
		diagnosisSolutionColor.Fprintf(w, "  %d. %s\n", i+1, solution.Title)
		if solution.Description != "" {
			fmt.Fprintf(w, "     %s\n", solution.Description)
		}
		if solution.URL != "" {
			fmt.Fprintf(w, "     %s\n", solution.URL)
		}
	}
}

// GetRunFn wraps fn so that any returned error is logged, followed by diagnosis hints for
// failed setupc operations, and exits with status 1.
func GetRunFn(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		err := fn(cmd, args)
		if err == nil {
			return
		}
		logger := log.MustLogger(cmd.Context())
		logger.Error("Failed", "err", err)
		var operationErr *OperationError
		if errors.As(err, &operationErr) {
			for _, message := range operationErr.Messages {
				printDiagnosis(cmd.ErrOrStderr(), message)
			}
		}
		Exit(1)
	}
}
