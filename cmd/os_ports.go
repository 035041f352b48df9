package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fornellas/vpm/manager"
	"github.com/fornellas/vpm/osports"
	"github.com/fornellas/vpm/setupc"
)

var visibilityColors = map[bool]func(a ...any) string{
	true:  portStatusColors[setupc.PortStatusActive].SprintFunc(),
	false: portStatusColors[setupc.PortStatusError].SprintFunc(),
}

func writeReportText(w io.Writer, report osports.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PAIR\tPORT\tNAME\tVISIBLE")
	for _, port := range report.Ports {
		visible := "no"
		if port.Visible {
			visible = "yes"
		}
		fmt.Fprintln(tw, strings.Join([]string{
			strconv.Itoa(port.PairNumber),
			port.Identifier,
			nameOrDash(port.PortName),
			visibilityColors[port.Visible](visible),
		}, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(report.Other) > 0 {
		_, err := fmt.Fprintf(w, "Other serial ports: %s\n", strings.Join(report.Other, ", "))
		return err
	}
	return nil
}

var OsPortsCmd = &cobra.Command{
	Use:   "os-ports",
	Short: "Check which port pair names are visible as OS serial ports.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		var portPairs []setupc.PortPair
		if err := RunOperation(cmd.Context(), (*manager.Manager).ListPorts, func(event manager.Event) {
			if e, ok := event.(*manager.PortListUpdatedEvent); ok {
				portPairs = e.PortPairs
			}
		}); err != nil {
			return err
		}

		osPorts, err := osports.List(nil)
		if err != nil {
			return err
		}

		report := osports.Annotate(portPairs, osPorts)
		return outputValue.Write(cmd.OutOrStdout(), report, func(w io.Writer) error {
			return writeReportText(w, report)
		})
	}),
}

func init() {
	RootCmd.AddCommand(OsPortsCmd)
}
