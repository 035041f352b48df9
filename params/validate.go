// Package params validates, builds and parses setupc port parameter strings.
package params

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalid is matched by every rejection returned from this package.
var ErrInvalid = errors.New("invalid parameter")

// ValidationError holds the human-readable reason a value was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

func invalidf(format string, a ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, a...)}
}

// Special parameter values understood by setupc.
const (
	DefaultValue = "-"
	CurrentValue = "*"
	AutoComName  = "COM#"
)

const (
	MinPortNumber = 0
	MaxPortNumber = 999

	MinEmuNoise = 0.0
	MaxEmuNoise = 0.99999999

	MinCommandTimeout = 1
	MaxCommandTimeout = 600
)

// PinAssignmentValues are the signal sources a pin can be wired to.
var PinAssignmentValues = []string{
	"rrts", "lrts", "rdtr", "ldtr",
	"rout1", "lout1", "rout2", "lout2",
	"ropen", "lopen", "on",
}

var portIdentifierRegexp = regexp.MustCompile(`^CNC[AB]\d+$`)
var comPortNameRegexp = regexp.MustCompile(`^COM\d+$`)

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		i, ok := toInt(v)
		return float64(i), ok
	}
}

// ValidatePortNumber accepts a pair number in [0, 999], given as an integer or a decimal string.
func ValidatePortNumber(value any) error {
	n, ok := toInt(value)
	if !ok {
		return invalidf("Port number must be a valid integer")
	}
	if n < MinPortNumber || n > MaxPortNumber {
		return invalidf("Port number must be between %d and %d", MinPortNumber, MaxPortNumber)
	}
	return nil
}

// ParsePortNumber parses and validates a pair number.
func ParsePortNumber(s string) (int, error) {
	if err := ValidatePortNumber(s); err != nil {
		return 0, err
	}
	n, _ := toInt(s)
	return n, nil
}

// ValidateEmuNoise accepts an EmuNoise probability in [0.0, 0.99999999].
func ValidateEmuNoise(value any) error {
	noise, ok := toFloat(value)
	if !ok || math.IsNaN(noise) {
		return invalidf("EmuNoise must be a valid floating point number")
	}
	if noise < MinEmuNoise || noise > MaxEmuNoise {
		return invalidf("EmuNoise must be between 0.0 and 0.99999999")
	}
	return nil
}

// ValidatePortIdentifier accepts CNCA<n> and CNCB<n>.
func ValidatePortIdentifier(value string) error {
	if !portIdentifierRegexp.MatchString(value) {
		return invalidf("Port identifier must match pattern CNC[AB]<number> (e.g., CNCA0, CNCB1)")
	}
	return nil
}

// ValidatePinAssignment accepts a known signal source, optionally prefixed with ! for inversion,
// or the bare special values - and *.
func ValidatePinAssignment(value string) error {
	if value == DefaultValue || value == CurrentValue {
		return nil
	}
	pin := strings.TrimPrefix(value, "!")
	for _, valid := range PinAssignmentValues {
		if pin == valid {
			return nil
		}
	}
	return invalidf(
		"Invalid pin assignment. Must be one of: %s (optionally prefixed with !)",
		strings.Join(PinAssignmentValues, ", "),
	)
}

// ValidateBoolean accepts yes or no, in any case.
func ValidateBoolean(value string) error {
	switch strings.ToLower(value) {
	case "yes", "no":
		return nil
	default:
		return invalidf("Boolean value must be 'yes' or 'no'")
	}
}

// ValidatePositiveInteger accepts integers >= 0.
func ValidatePositiveInteger(value any) error {
	n, ok := toInt(value)
	if !ok {
		return invalidf("Value must be a valid integer")
	}
	if n < 0 {
		return invalidf("Value must be a positive integer (0 or greater)")
	}
	return nil
}

// ValidateComPortName accepts COM<n>, COM#, - and *.
func ValidateComPortName(value string) error {
	switch value {
	case AutoComName, DefaultValue, CurrentValue:
		return nil
	}
	if !comPortNameRegexp.MatchString(value) {
		return invalidf("COM port name must be in format COM<number> or special value COM#")
	}
	return nil
}

// ValidateParameterString strictly validates a user supplied parameter string: either - or *,
// or comma separated key=value tokens where neither side is empty.
func ValidateParameterString(paramString string) error {
	if paramString == DefaultValue || paramString == CurrentValue {
		return nil
	}
	for _, token := range strings.Split(paramString, ",") {
		token = strings.TrimSpace(token)
		key, value, found := strings.Cut(token, "=")
		if !found {
			return invalidf("Invalid parameter format: '%s'. Expected format: key=value", token)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			return invalidf("Parameter key cannot be empty")
		}
		if value == "" {
			return invalidf("Parameter value for '%s' cannot be empty", key)
		}
	}
	return nil
}

// ValidateCommandTimeout accepts a timeout in seconds within [1, 600].
func ValidateCommandTimeout(value any) error {
	timeout, ok := toInt(value)
	if !ok {
		return invalidf("Timeout must be a valid integer")
	}
	if timeout < MinCommandTimeout || timeout > MaxCommandTimeout {
		return invalidf("Timeout must be between %d and %d seconds", MinCommandTimeout, MaxCommandTimeout)
	}
	return nil
}
