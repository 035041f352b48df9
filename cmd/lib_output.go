package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fornellas/vpm/setupc"
)

type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

var outputFormats = []OutputFormat{OutputFormatText, OutputFormatJSON, OutputFormatYAML}

type OutputValue struct {
	format OutputFormat
}

func NewOutputValue() *OutputValue {
	return &OutputValue{format: OutputFormatText}
}

func (o *OutputValue) String() string {
	return string(o.format)
}

func (o *OutputValue) Set(value string) error {
	for _, format := range outputFormats {
		if string(format) == strings.ToLower(value) {
			o.format = format
			return nil
		}
	}
	return fmt.Errorf("invalid output format %#v, must be one of: %s", value, o.Type())
}

func (o *OutputValue) Reset() {
	o.format = OutputFormatText
}

func (o *OutputValue) Type() string {
	formats := make([]string, len(outputFormats))
	for i, format := range outputFormats {
		formats[i] = string(format)
	}
	return strings.Join(formats, "|")
}

// Write encodes value to w as JSON or YAML, or calls text for the text format.
func (o *OutputValue) Write(w io.Writer, value any, text func(w io.Writer) error) (err error) {
	switch o.format {
	case OutputFormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(value)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		defer func() { err = errors.Join(err, encoder.Close()) }()
		return encoder.Encode(value)
	default:
		return text(w)
	}
}

var outputValue = NewOutputValue()

func AddOutputFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().VarP(outputValue, "output", "o", "Output format")
}

func init() {
	resetFlagsFns = append(resetFlagsFns, func() {
		outputValue.Reset()
	})
}

var portStatusColors = map[setupc.PortStatus]*color.Color{
	setupc.PortStatusActive:   color.New(color.FgGreen),
	setupc.PortStatusDisabled: color.New(color.FgYellow),
	setupc.PortStatusError:    color.New(color.FgRed),
	setupc.PortStatusUnknown:  color.New(color.FgWhite),
}

var driverStatusColors = map[setupc.DriverStatus]*color.Color{
	setupc.DriverStatusInstalled:    color.New(color.FgGreen),
	setupc.DriverStatusNotInstalled: color.New(color.FgRed),
	setupc.DriverStatusNeedsUpdate:  color.New(color.FgYellow),
	setupc.DriverStatusError:        color.New(color.FgRed),
}

func nameOrDash(name string) string {
	if name == "" {
		return "-"
	}
	return name
}

func writePortPairsText(w io.Writer, portPairs []setupc.PortPair) error {
	if len(portPairs) == 0 {
		_, err := fmt.Fprintln(w, "No port pairs.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PAIR\tSTATUS\tPORT A\tNAME A\tPORT B\tNAME B")
	for _, portPair := range portPairs {
		fmt.Fprintln(tw, strings.Join([]string{
			strconv.Itoa(portPair.Number),
			portStatusColors[portPair.Status].Sprint(portPair.Status),
			portPair.PortA.Identifier,
			nameOrDash(portPair.PortA.PortName),
			portPair.PortB.Identifier,
			nameOrDash(portPair.PortB.PortName),
		}, "\t"))
	}
	return tw.Flush()
}

func writePortPairs(w io.Writer, portPairs []setupc.PortPair) error {
	if portPairs == nil {
		portPairs = []setupc.PortPair{}
	}
	return outputValue.Write(w, portPairs, func(w io.Writer) error {
		return writePortPairsText(w, portPairs)
	})
}

func writeDriverInfo(w io.Writer, driverInfo setupc.DriverInfo) error {
	return outputValue.Write(w, driverInfo, func(w io.Writer) error {
		fmt.Fprintf(w, "Driver: %s\n", driverStatusColors[driverInfo.Status].Sprint(driverInfo.Status))
		if driverInfo.InstallPath != "" {
			fmt.Fprintf(w, "Path: %s\n", driverInfo.InstallPath)
		}
		if driverInfo.ErrorMessage != "" {
			fmt.Fprintf(w, "Error: %s\n", driverInfo.ErrorMessage)
		}
		return nil
	})
}

// writeCommandOutput writes the raw setupc output, or the whole result as JSON / YAML.
func writeCommandOutput(w io.Writer, result *setupc.CommandResult) error {
	return outputValue.Write(w, result, func(w io.Writer) error {
		_, err := io.WriteString(w, result.Output)
		return err
	})
}
