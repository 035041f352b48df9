package osports

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fornellas/vpm/setupc"
)

func TestList(t *testing.T) {
	names, err := List(func() ([]string, error) {
		return []string{"COM9", "COM1", "COM9", "COM8"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"COM1", "COM8", "COM9"}, names)
}

func TestListError(t *testing.T) {
	listErr := errors.New("boom")
	_, err := List(func() ([]string, error) { return nil, listErr })
	require.ErrorIs(t, err, listErr)
	require.ErrorContains(t, err, "osports: failed to list serial ports")
}

func TestAnnotate(t *testing.T) {
	portPairs := setupc.ParsePortList(
		"CNCA0 PortName=COM8\nCNCB0 PortName=com9\nCNCA1 PortName=COM20\nCNCB1 PortName=-\n",
	)

	report := Annotate(portPairs, []string{`\\.\COM9`, "COM8", "COM1", "/dev/ttyS0"})

	require.Equal(t, Report{
		Ports: []PortVisibility{
			{PairNumber: 0, Identifier: "CNCA0", PortName: "COM8", Visible: true},
			{PairNumber: 0, Identifier: "CNCB0", PortName: "com9", Visible: true},
			{PairNumber: 1, Identifier: "CNCA1", PortName: "COM20", Visible: false},
			{PairNumber: 1, Identifier: "CNCB1", PortName: "-", Visible: false},
		},
		Other: []string{"/dev/ttyS0", "COM1"},
	}, report)
}

func TestAnnotateEmpty(t *testing.T) {
	report := Annotate(nil, nil)
	require.Empty(t, report.Ports)
	require.NotNil(t, report.Ports)
	require.Empty(t, report.Other)
	require.NotNil(t, report.Other)
}
