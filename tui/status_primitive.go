package tui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/fornellas/vpm/setupc"
)

var keysHelp = "[::b]r[::-] refresh  [::b]d[::-] driver status  [::b]c[::-] cancel  [::b]q[::-] quit"

func driverColor(status setupc.DriverStatus) string {
	switch status {
	case setupc.DriverStatusInstalled:
		return "green"
	case setupc.DriverStatusNeedsUpdate:
		return "yellow"
	default:
		return "red"
	}
}

func statusText(driverInfo *setupc.DriverInfo, busy bool, message string, isError bool) string {
	var b strings.Builder
	b.WriteString("Driver: ")
	if driverInfo == nil {
		b.WriteString("[gray]Unknown[-]")
	} else {
		fmt.Fprintf(&b, "[%s]%s[-]", driverColor(driverInfo.Status), tview.Escape(driverInfo.Status.String()))
		if driverInfo.ErrorMessage != "" {
			fmt.Fprintf(&b, " (%s)", tview.Escape(driverInfo.ErrorMessage))
		}
	}
	if busy {
		b.WriteString("  [yellow]Running...[-]")
	}
	if message != "" {
		if isError {
			fmt.Fprintf(&b, "  [red]%s[-]", tview.Escape(message))
		} else {
			fmt.Fprintf(&b, "  %s", tview.Escape(message))
		}
	}
	b.WriteString("\n")
	b.WriteString(keysHelp)
	return b.String()
}

type StatusPrimitive struct {
	*tview.TextView
	driverInfo *setupc.DriverInfo
	busy       bool
	message    string
	isError    bool
}

func NewStatusPrimitive() *StatusPrimitive {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	textView.SetBorder(true).SetTitle("Status")
	sp := &StatusPrimitive{TextView: textView}
	sp.update()
	return sp
}

func (sp *StatusPrimitive) FixedSize() int {
	return 4
}

func (sp *StatusPrimitive) update() {
	sp.SetText(statusText(sp.driverInfo, sp.busy, sp.message, sp.isError))
}

// The setters below must be called from the application goroutine.

func (sp *StatusPrimitive) SetDriverInfo(driverInfo setupc.DriverInfo) {
	sp.driverInfo = &driverInfo
	sp.update()
}

func (sp *StatusPrimitive) SetBusy(busy bool) {
	sp.busy = busy
	sp.update()
}

func (sp *StatusPrimitive) SetMessage(message string) {
	sp.message = message
	sp.isError = false
	sp.update()
}

func (sp *StatusPrimitive) SetError(message string) {
	sp.message = message
	sp.isError = true
	sp.update()
}
