package main

import (
	"context"
	"fmt"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	"github.com/fornellas/vpm/manager"
	"github.com/fornellas/vpm/params"
)

var paramsA string
var defaultParamsA = params.DefaultValue

var paramsB string
var defaultParamsB = params.DefaultValue

var InstallCmd = &cobra.Command{
	Use:   "install [pair-number]",
	Short: "Install a new port pair, with the given number or the next free one.",
	Long: "Install a new port pair, with the given number or the next free one.\n\n" +
		"Port parameters are comma separated key=value settings, eg: PortName=COM8,EmuBR=yes. " +
		"Use - to keep the defaults.",
	Args: cobra.MaximumNArgs(1),
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		var pairNumber *int
		if len(args) > 0 {
			n, err := params.ParsePortNumber(args[0])
			if err != nil {
				return fmt.Errorf("invalid pair number %#v: %w", args[0], err)
			}
			pairNumber = &n
		}
		ctx, _ := log.MustWithAttrs(cmd.Context(), "params-a", paramsA, "params-b", paramsB)
		cmd.SetContext(ctx)
		return RunListingOperation(cmd, func(m *manager.Manager, ctx context.Context) {
			m.InstallPortPair(ctx, pairNumber, paramsA, paramsB)
		})
	}),
}

var RemoveCmd = &cobra.Command{
	Use:   "remove pair-number",
	Short: "Remove a port pair.",
	Args:  cobra.ExactArgs(1),
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		n, err := params.ParsePortNumber(args[0])
		if err != nil {
			return fmt.Errorf("invalid pair number %#v: %w", args[0], err)
		}
		return RunListingOperation(cmd, func(m *manager.Manager, ctx context.Context) {
			m.RemovePortPair(ctx, n)
		})
	}),
}

var ChangeCmd = &cobra.Command{
	Use:   "change port-id parameters",
	Short: "Change the parameters of a port, eg: change CNCA0 EmuBR=yes,EmuOverrun=yes",
	Args:  cobra.ExactArgs(2),
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		portID, parameters := args[0], args[1]
		return RunListingOperation(cmd, func(m *manager.Manager, ctx context.Context) {
			m.ChangePortConfig(ctx, portID, parameters)
		})
	}),
}

func init() {
	InstallCmd.Flags().StringVarP(
		&paramsA, "params-a", "a", defaultParamsA,
		"Parameters for port A",
	)
	InstallCmd.Flags().StringVarP(
		&paramsB, "params-b", "b", defaultParamsB,
		"Parameters for port B",
	)

	RootCmd.AddCommand(InstallCmd)
	RootCmd.AddCommand(RemoveCmd)
	RootCmd.AddCommand(ChangeCmd)

	resetFlagsFns = append(resetFlagsFns, func() {
		paramsA = defaultParamsA
		paramsB = defaultParamsB
	})
}
