package main

import (
	"github.com/spf13/cobra"

	"github.com/fornellas/vpm/manager"
)

var DriverCmd = &cobra.Command{
	Use:   "driver",
	Short: "Manage the com0com driver.",
	Args:  cobra.NoArgs,
}

var DriverStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the driver is installed.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		return RunDriverOperation(cmd, (*manager.Manager).GetDriverStatus)
	}),
}

var DriverPreinstallCmd = &cobra.Command{
	Use:   "preinstall",
	Short: "Preinstall the driver.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		return RunDriverOperation(cmd, (*manager.Manager).PreinstallDriver)
	}),
}

var DriverUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update the driver.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		return RunDriverOperation(cmd, (*manager.Manager).UpdateDriver)
	}),
}

var DriverReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload the driver.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		return RunDriverOperation(cmd, (*manager.Manager).ReloadDriver)
	}),
}

var DriverUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the driver, removing all port pairs.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		return RunDriverOperation(cmd, (*manager.Manager).UninstallDriver)
	}),
}

func init() {
	DriverCmd.AddCommand(DriverStatusCmd)
	DriverCmd.AddCommand(DriverPreinstallCmd)
	DriverCmd.AddCommand(DriverUpdateCmd)
	DriverCmd.AddCommand(DriverReloadCmd)
	DriverCmd.AddCommand(DriverUninstallCmd)
	RootCmd.AddCommand(DriverCmd)
}
