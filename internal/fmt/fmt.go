package fmt

import (
	"fmt"
	"strings"
	"time"
)

// SprintFloat formats value with at most decimal digits, with trailing zeros stripped.
func SprintFloat(value float64, decimal uint) string {
	if decimal == 0 {
		return fmt.Sprintf("%.0f", value)
	}
	floatStr := fmt.Sprintf(fmt.Sprintf("%%.%df", decimal), value)
	floatStr = strings.TrimRight(strings.TrimRight(floatStr, "0"), ".")
	if floatStr == "" || floatStr == "-" {
		return "0"
	}
	return floatStr
}

// SprintSeconds formats a duration as seconds with millisecond precision, eg: "1.25s".
func SprintSeconds(d time.Duration) string {
	return SprintFloat(d.Seconds(), 3) + "s"
}
