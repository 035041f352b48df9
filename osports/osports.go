// Package osports cross-checks com0com port names against the serial ports the OS exposes.
package osports

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"go.bug.st/serial"

	"github.com/fornellas/vpm/setupc"
)

// Lister enumerates OS serial port names. It must not open them.
type Lister func() ([]string, error)

// DefaultLister enumerates the ports with go.bug.st/serial.
var DefaultLister Lister = serial.GetPortsList

// List returns the OS port names, sorted, without duplicates.
func List(lister Lister) ([]string, error) {
	if lister == nil {
		lister = DefaultLister
	}
	names, err := lister()
	if err != nil {
		return nil, fmt.Errorf("osports: failed to list serial ports: %w", err)
	}
	names = slices.Clone(names)
	slices.Sort(names)
	return slices.Compact(names), nil
}

// baseName strips any device namespace, eg: \\.\COM8 or /dev/ttyS0.
func baseName(name string) string {
	return path.Base(strings.ReplaceAll(name, `\`, "/"))
}

type PortVisibility struct {
	PairNumber int    `json:"pair_number" yaml:"pair_number"`
	Identifier string `json:"identifier" yaml:"identifier"`
	PortName   string `json:"port_name" yaml:"port_name"`
	// Visible is whether PortName is exposed by the OS.
	Visible bool `json:"visible" yaml:"visible"`
}

type Report struct {
	Ports []PortVisibility `json:"ports" yaml:"ports"`
	// Other holds the OS ports that do not belong to any pair.
	Other []string `json:"other" yaml:"other"`
}

// Annotate reports for each port of portPairs whether its name is among osPorts. Names compare
// case-insensitively.
func Annotate(portPairs []setupc.PortPair, osPorts []string) Report {
	osNames := map[string]string{}
	for _, osPort := range osPorts {
		osNames[strings.ToUpper(baseName(osPort))] = osPort
	}

	report := Report{
		Ports: []PortVisibility{},
		Other: []string{},
	}
	claimed := map[string]bool{}
	for _, portPair := range portPairs {
		for _, port := range []setupc.Port{portPair.PortA, portPair.PortB} {
			visibility := PortVisibility{
				PairNumber: portPair.Number,
				Identifier: port.Identifier,
				PortName:   port.PortName,
			}
			if port.PortName != "" {
				key := strings.ToUpper(port.PortName)
				if _, ok := osNames[key]; ok {
					visibility.Visible = true
					claimed[key] = true
				}
			}
			report.Ports = append(report.Ports, visibility)
		}
	}

	for key, osPort := range osNames {
		if !claimed[key] {
			report.Other = append(report.Other, osPort)
		}
	}
	slices.Sort(report.Other)

	return report
}
