package tui

import (
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/fornellas/vpm/params"
	"github.com/fornellas/vpm/setupc"
)

var portsHeader = []string{"Pair", "Status", "Port A", "Name A", "Port B", "Name B", "Parameters A", "Parameters B"}

// settings returns the port parameters other than its name, in setupc format.
func settings(port setupc.Port) string {
	var parameters params.Parameters
	for _, parameter := range port.Parameters {
		if parameter.Key == "PortName" {
			continue
		}
		parameters = append(parameters, parameter)
	}
	if len(parameters) == 0 {
		return ""
	}
	return params.Build(parameters)
}

func portRows(portPairs []setupc.PortPair) [][]string {
	rows := make([][]string, 0, len(portPairs))
	for _, portPair := range portPairs {
		rows = append(rows, []string{
			strconv.Itoa(portPair.Number),
			portPair.Status.String(),
			portPair.PortA.Identifier,
			portPair.PortA.PortName,
			portPair.PortB.Identifier,
			portPair.PortB.PortName,
			settings(portPair.PortA),
			settings(portPair.PortB),
		})
	}
	return rows
}

func statusColor(status setupc.PortStatus) tcell.Color {
	switch status {
	case setupc.PortStatusActive:
		return tcell.ColorGreen
	case setupc.PortStatusDisabled:
		return tcell.ColorYellow
	case setupc.PortStatusError:
		return tcell.ColorRed
	default:
		return tview.Styles.SecondaryTextColor
	}
}

type PortsPrimitive struct {
	*tview.Table
}

func NewPortsPrimitive() *PortsPrimitive {
	table := tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	table.SetBorder(true).SetTitle("Port Pairs")
	pp := &PortsPrimitive{Table: table}
	pp.SetPortPairs(nil)
	return pp
}

// SetPortPairs replaces the table contents. It must be called from the application goroutine.
func (pp *PortsPrimitive) SetPortPairs(portPairs []setupc.PortPair) {
	pp.Clear()
	for column, title := range portsHeader {
		pp.SetCell(0, column, tview.NewTableCell(title).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false))
	}
	for i, row := range portRows(portPairs) {
		for column, text := range row {
			cell := tview.NewTableCell(text).SetExpansion(1)
			if column == 1 {
				cell.SetTextColor(statusColor(portPairs[i].Status))
			}
			pp.SetCell(i+1, column, cell)
		}
	}
	pp.SetTitle("Port Pairs (" + strconv.Itoa(len(portPairs)) + ")")
}
