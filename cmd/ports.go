package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fornellas/vpm/manager"
)

var PortsCmd = &cobra.Command{
	Use:   "ports",
	Short: "Enable or disable all ports.",
	Args:  cobra.NoArgs,
}

var PortsEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable all ports.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		return RunListingOperation(cmd, (*manager.Manager).EnableAllPorts)
	}),
}

var PortsDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable all ports.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		return RunListingOperation(cmd, (*manager.Manager).DisableAllPorts)
	}),
}

var FNamesCmd = &cobra.Command{
	Use:   "fnames",
	Short: "Manage the ports friendly names.",
	Args:  cobra.NoArgs,
}

var FNamesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the friendly names.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		return RunOutputOperation(cmd, (*manager.Manager).ListFriendlyNames)
	}),
}

var FNamesUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update the friendly names.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		return RunListingOperation(cmd, (*manager.Manager).UpdateFriendlyNames)
	}),
}

var InfCleanCmd = &cobra.Command{
	Use:   "infclean",
	Short: "Clean old com0com INF files.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		return RunOutputOperation(cmd, (*manager.Manager).CleanInfFiles)
	}),
}

var BusyNamesCmd = &cobra.Command{
	Use:   "busynames pattern",
	Short: "List the port names in use matching a pattern, eg: COM?*",
	Args:  cobra.ExactArgs(1),
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		pattern := args[0]
		return RunOutputOperation(cmd, func(m *manager.Manager, ctx context.Context) {
			m.CheckBusyNames(ctx, pattern)
		})
	}),
}

func init() {
	PortsCmd.AddCommand(PortsEnableCmd)
	PortsCmd.AddCommand(PortsDisableCmd)
	RootCmd.AddCommand(PortsCmd)

	FNamesCmd.AddCommand(FNamesListCmd)
	FNamesCmd.AddCommand(FNamesUpdateCmd)
	RootCmd.AddCommand(FNamesCmd)

	RootCmd.AddCommand(InfCleanCmd)
	RootCmd.AddCommand(BusyNamesCmd)
}
