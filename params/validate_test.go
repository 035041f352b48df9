package params

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidatePortNumber(t *testing.T) {
	for _, value := range []any{0, 999, 500, "0", "999", " 12 "} {
		require.NoError(t, ValidatePortNumber(value), "%#v", value)
	}
	for _, value := range []any{-1, 1000, "-1", "1000"} {
		err := ValidatePortNumber(value)
		require.ErrorIs(t, err, ErrInvalid, "%#v", value)
		require.EqualError(t, err, "Port number must be between 0 and 999")
	}
	for _, value := range []any{"abc", "1.5", 1.5, nil, ""} {
		require.EqualError(t, ValidatePortNumber(value), "Port number must be a valid integer", "%#v", value)
	}
}

func TestParsePortNumber(t *testing.T) {
	n, err := ParsePortNumber("42")
	require.NoError(t, err)
	require.Equal(t, 42, n)

	_, err = ParsePortNumber("1000")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestValidateEmuNoise(t *testing.T) {
	for _, value := range []any{0.0, 0.99999999, 0.5, "0.0", "0.99999999", 0} {
		require.NoError(t, ValidateEmuNoise(value), "%#v", value)
	}
	for _, value := range []any{1.0, -0.1, "1.0", 1} {
		require.EqualError(t, ValidateEmuNoise(value), "EmuNoise must be between 0.0 and 0.99999999", "%#v", value)
	}
	require.EqualError(t, ValidateEmuNoise("noisy"), "EmuNoise must be a valid floating point number")
	require.EqualError(t, ValidateEmuNoise("NaN"), "EmuNoise must be a valid floating point number")
}

func TestValidatePortIdentifier(t *testing.T) {
	for _, value := range []string{"CNCA0", "CNCB1", "CNCA999"} {
		require.NoError(t, ValidatePortIdentifier(value), value)
	}
	for _, value := range []string{"", "CNCC0", "CNCA", "cnca0", "CNCA0 ", "COM8", "CNCA-1"} {
		require.ErrorIs(t, ValidatePortIdentifier(value), ErrInvalid, value)
	}
}

func TestValidatePinAssignment(t *testing.T) {
	for _, pin := range PinAssignmentValues {
		require.NoError(t, ValidatePinAssignment(pin), pin)
		require.NoError(t, ValidatePinAssignment("!"+pin), pin)
	}
	require.NoError(t, ValidatePinAssignment("-"))
	require.NoError(t, ValidatePinAssignment("*"))

	for _, value := range []string{"!bogus", "bogus", "", "!", "!-", "RRTS"} {
		err := ValidatePinAssignment(value)
		require.ErrorIs(t, err, ErrInvalid, value)
		require.Contains(t, err.Error(), "optionally prefixed with !")
	}
}

func TestValidateBoolean(t *testing.T) {
	for _, value := range []string{"yes", "no", "YES", "No"} {
		require.NoError(t, ValidateBoolean(value), value)
	}
	for _, value := range []string{"", "true", "y", "1"} {
		require.EqualError(t, ValidateBoolean(value), "Boolean value must be 'yes' or 'no'", value)
	}
}

func TestValidatePositiveInteger(t *testing.T) {
	for _, value := range []any{0, 1, "100", 7.0} {
		require.NoError(t, ValidatePositiveInteger(value), "%#v", value)
	}
	require.EqualError(t, ValidatePositiveInteger(-1), "Value must be a positive integer (0 or greater)")
	require.EqualError(t, ValidatePositiveInteger("x"), "Value must be a valid integer")
}

func TestValidateComPortName(t *testing.T) {
	for _, value := range []string{"-", "*", "COM#", "COM1", "COM256"} {
		require.NoError(t, ValidateComPortName(value), value)
	}
	for _, value := range []string{"", "COM", "com1", "COMX", "/dev/ttyS0"} {
		require.ErrorIs(t, ValidateComPortName(value), ErrInvalid, value)
	}
}

func TestValidateParameterString(t *testing.T) {
	for _, value := range []string{"-", "*", "PortName=COM8", "PortName=COM8,EmuBR=yes", " PortName = COM8 , EmuBR=yes"} {
		require.NoError(t, ValidateParameterString(value), value)
	}
	for value, reason := range map[string]string{
		"PortName":              "Invalid parameter format: 'PortName'. Expected format: key=value",
		"PortName=COM8,":        "Invalid parameter format: ''. Expected format: key=value",
		"=COM8":                 "Parameter key cannot be empty",
		"PortName=":             "Parameter value for 'PortName' cannot be empty",
		"PortName=COM8,EmuBR= ": "Parameter value for 'EmuBR' cannot be empty",
	} {
		require.EqualError(t, ValidateParameterString(value), reason, value)
	}
}

func TestValidateCommandTimeout(t *testing.T) {
	for _, value := range []any{1, 600, "30"} {
		require.NoError(t, ValidateCommandTimeout(value), "%#v", value)
	}
	for _, value := range []any{0, 601, -5} {
		require.EqualError(t, ValidateCommandTimeout(value), "Timeout must be between 1 and 600 seconds", "%#v", value)
	}
	require.EqualError(t, ValidateCommandTimeout("soon"), "Timeout must be a valid integer")
}
