package main

import (
	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	"github.com/fornellas/vpm/config"
	"github.com/fornellas/vpm/manager"
	tuiMod "github.com/fornellas/vpm/tui"
)

var TuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Terminal user interface to manage the port pairs.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		settings, cfg, err := GetSettings(cmd.Context())
		if err != nil {
			return err
		}
		c := cfg.Get()

		ctx, _ := log.MustWithAttrs(
			cmd.Context(),
			"config", cfg.Path(),
			"setupc-path", settings.SetupcPath(),
			"timeout", settings.CommandTimeout(),
		)
		cmd.SetContext(ctx)

		m := manager.New(settings, manager.DefaultOptions())
		defer m.Close(ctx)

		tui := tuiMod.NewTui(m, &tuiMod.TuiOptions{
			AutoRefreshInterval: cfg.AutoRefreshInterval(),
			LogLevel:            config.SlogLevel(c.LogLevel),
			AppLogger:           logDebugFileLogger,
		})

		return tui.Run(ctx)
	}),
}

func init() {
	RootCmd.AddCommand(TuiCmd)
}
