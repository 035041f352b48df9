package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fornellas/vpm/config"
)

var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the config file.",
	Args:  cobra.NoArgs,
}

func writeConfigText(w io.Writer, c config.ApplicationConfig) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, row := range [][2]string{
		{config.KeySetupcPath, c.SetupcPath},
		{config.KeyCommandTimeout, strconv.Itoa(c.CommandTimeout)},
		{config.KeyAutoRefreshInterval, strconv.Itoa(c.AutoRefreshInterval)},
		{config.KeyWindowGeometry, fmt.Sprintf(
			"%dx%d+%d+%d",
			c.WindowGeometry.Width, c.WindowGeometry.Height, c.WindowGeometry.X, c.WindowGeometry.Y,
		)},
		{config.KeyLogLevel, c.LogLevel},
		{config.KeyTheme, c.Theme},
	} {
		fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
	}
	return tw.Flush()
}

var ConfigShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current settings.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig(cmd.Context())
		if err != nil {
			return err
		}
		c := cfg.Get()
		return outputValue.Write(cmd.OutOrStdout(), c, func(w io.Writer) error {
			return writeConfigText(w, c)
		})
	}),
}

var ConfigSetCmd = &cobra.Command{
	Use:   "set key value",
	Short: "Change and save a setting.",
	Long:  "Change and save a setting. Valid keys: " + fmt.Sprint(config.Keys),
	Args:  cobra.ExactArgs(2),
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig(cmd.Context())
		if err != nil {
			return err
		}
		return cfg.Set(args[0], args[1])
	}),
}

var ConfigPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			path, err = config.DefaultPath()
			if err != nil {
				return err
			}
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), path)
		return err
	}),
}

var detectSave bool
var defaultDetectSave = false

var ConfigDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Look for setupc.exe at the standard com0com install locations.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		path, ok := config.DetectSetupcPath()
		if !ok {
			return errors.New("setupc.exe not found at any of the standard locations")
		}
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), path); err != nil {
			return err
		}
		if !detectSave {
			return nil
		}
		cfg, err := GetConfig(cmd.Context())
		if err != nil {
			return err
		}
		return cfg.Set(config.KeySetupcPath, path)
	}),
}

var ConfigResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore and save the default settings.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig(cmd.Context())
		if err != nil {
			return err
		}
		return cfg.Reset()
	}),
}

func init() {
	ConfigDetectCmd.Flags().BoolVar(
		&detectSave, "save", defaultDetectSave,
		"Save the detected path to the config file",
	)

	ConfigCmd.AddCommand(ConfigShowCmd)
	ConfigCmd.AddCommand(ConfigSetCmd)
	ConfigCmd.AddCommand(ConfigPathCmd)
	ConfigCmd.AddCommand(ConfigDetectCmd)
	ConfigCmd.AddCommand(ConfigResetCmd)
	RootCmd.AddCommand(ConfigCmd)

	resetFlagsFns = append(resetFlagsFns, func() {
		detectSave = defaultDetectSave
	})
}
