package tui

import (
	"github.com/rivo/tview"
)

type LogsPrimitive struct {
	*tview.TextView
}

func NewLogsPrimitive(app *tview.Application) *LogsPrimitive {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true).
		SetMaxLines(1000)
	textView.SetBorder(true).SetTitle("Logs")
	textView.SetChangedFunc(func() {
		textView.ScrollToEnd()
		app.Draw()
	})
	return &LogsPrimitive{TextView: textView}
}
