package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fornellas/vpm/manager"
	"github.com/fornellas/vpm/setupc"
)

// RunListingOperation runs op and writes the port pairs it lists.
func RunListingOperation(cmd *cobra.Command, op func(m *manager.Manager, ctx context.Context)) error {
	var portPairs []setupc.PortPair
	listed := false
	if err := RunOperation(cmd.Context(), op, func(event manager.Event) {
		if e, ok := event.(*manager.PortListUpdatedEvent); ok {
			portPairs = e.PortPairs
			listed = true
		}
	}); err != nil {
		return err
	}
	if !listed {
		return nil
	}
	return writePortPairs(cmd.OutOrStdout(), portPairs)
}

// RunOutputOperation runs op and writes the output of its command.
func RunOutputOperation(cmd *cobra.Command, op func(m *manager.Manager, ctx context.Context)) error {
	var result *setupc.CommandResult
	if err := RunOperation(cmd.Context(), op, func(event manager.Event) {
		if e, ok := event.(*manager.CommandCompletedEvent); ok {
			result = e.Result
		}
	}); err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	return writeCommandOutput(cmd.OutOrStdout(), result)
}

// RunDriverOperation runs op and writes the driver status it reports.
func RunDriverOperation(cmd *cobra.Command, op func(m *manager.Manager, ctx context.Context)) error {
	var driverInfo *setupc.DriverInfo
	var portPairs []setupc.PortPair
	listed := false
	if err := RunOperation(cmd.Context(), op, func(event manager.Event) {
		switch e := event.(type) {
		case *manager.DriverStatusChangedEvent:
			driverInfo = &e.DriverInfo
		case *manager.PortListUpdatedEvent:
			portPairs = e.PortPairs
			listed = true
		}
	}); err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if driverInfo != nil {
		return writeDriverInfo(w, *driverInfo)
	}
	if listed {
		return writePortPairs(w, portPairs)
	}
	return nil
}

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the virtual port pairs.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		return RunListingOperation(cmd, (*manager.Manager).ListPorts)
	}),
}

func init() {
	RootCmd.AddCommand(ListCmd)
}
