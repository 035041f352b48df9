package setupc

import (
	"fmt"
	"time"

	"github.com/fornellas/vpm/params"
)

type PortStatus int

const (
	PortStatusUnknown PortStatus = iota
	PortStatusActive
	PortStatusDisabled
	PortStatusError
)

func (s PortStatus) String() string {
	switch s {
	case PortStatusActive:
		return "Active"
	case PortStatusDisabled:
		return "Disabled"
	case PortStatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

func (s PortStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Port is one side of a virtual port pair.
type Port struct {
	// Identifier is the name assigned by setupc, eg: CNCA0.
	Identifier string `json:"identifier" yaml:"identifier"`
	// PortName is the OS visible name, eg: COM8. Empty when unassigned.
	PortName   string            `json:"port_name,omitempty" yaml:"port_name,omitempty"`
	Parameters params.Parameters `json:"parameters" yaml:"parameters"`
}

// Parameter returns the string value of the named setting, or "" if unset.
func (p Port) Parameter(name string) string {
	value, _ := p.Parameters.GetString(name)
	return value
}

// DisplayName is the port name, falling back to the identifier.
func (p Port) DisplayName() string {
	if p.PortName != "" {
		return p.PortName
	}
	return p.Identifier
}

func (p Port) clone() Port {
	p.Parameters = p.Parameters.Clone()
	return p
}

// PortPair is two virtual ports linked as if through a null-modem cable.
type PortPair struct {
	Number int        `json:"number" yaml:"number"`
	PortA  Port       `json:"port_a" yaml:"port_a"`
	PortB  Port       `json:"port_b" yaml:"port_b"`
	Status PortStatus `json:"status" yaml:"status"`
}

// NewPortPair returns a pair with identifiers derived from number.
func NewPortPair(number int, status PortStatus) PortPair {
	return PortPair{
		Number: number,
		PortA:  Port{Identifier: PortIdentifier(SideA, number)},
		PortB:  Port{Identifier: PortIdentifier(SideB, number)},
		Status: status,
	}
}

func (p PortPair) DisplayName() string {
	return fmt.Sprintf("Pair %d: %s <-> %s", p.Number, p.PortA.DisplayName(), p.PortB.DisplayName())
}

func (p PortPair) IsActive() bool {
	return p.Status == PortStatusActive
}

// Clone returns a deep copy of the pair.
func (p PortPair) Clone() PortPair {
	p.PortA = p.PortA.clone()
	p.PortB = p.PortB.clone()
	return p
}

// ClonePortPairs deep copies a slice of pairs. A nil slice yields an empty one.
func ClonePortPairs(portPairs []PortPair) []PortPair {
	clone := make([]PortPair, len(portPairs))
	for i, portPair := range portPairs {
		clone[i] = portPair.Clone()
	}
	return clone
}

// Reserved CommandResult.ReturnCode values for failures where the process did not report an exit
// code.
const (
	ReturnCodeTimeout    = -1
	ReturnCodeNotFound   = -2
	ReturnCodeUnexpected = -3
)

// CommandResult is the outcome of a single setupc invocation.
type CommandResult struct {
	// ID uniquely identifies the invocation in logs.
	ID         string `json:"id" yaml:"id"`
	Success    bool   `json:"success" yaml:"success"`
	Output     string `json:"output" yaml:"output"`
	Error      string `json:"error" yaml:"error"`
	ReturnCode int    `json:"return_code" yaml:"return_code"`
	// ExecutionTime is the measured wall clock time.
	ExecutionTime time.Duration `json:"execution_time" yaml:"execution_time"`
	// Command is the exact invocation, for logging and auditing.
	Command string `json:"command" yaml:"command"`
}

// ErrorMessage returns a user facing message describing the failure, or "" on success.
func (r *CommandResult) ErrorMessage() string {
	if r.Success {
		return ""
	}
	if r.Error != "" {
		return r.Error
	}
	if r.ReturnCode != 0 {
		return fmt.Sprintf("Command failed with exit code %d", r.ReturnCode)
	}
	return "Unknown error occurred"
}

type DriverStatus int

const (
	DriverStatusInstalled DriverStatus = iota
	DriverStatusNotInstalled
	DriverStatusNeedsUpdate
	DriverStatusError
)

func (s DriverStatus) String() string {
	switch s {
	case DriverStatusInstalled:
		return "Installed"
	case DriverStatusNotInstalled:
		return "Not Installed"
	case DriverStatusNeedsUpdate:
		return "Needs Update"
	case DriverStatusError:
		return "Error"
	default:
		panic(fmt.Sprintf("bug: unexpected driver status: %d", int(s)))
	}
}

func (s DriverStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DriverInfo is a snapshot of the com0com driver state.
type DriverInfo struct {
	Status       DriverStatus `json:"status" yaml:"status"`
	InstallPath  string       `json:"install_path,omitempty" yaml:"install_path,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}

func (d DriverInfo) IsAvailable() bool {
	return d.Status == DriverStatusInstalled
}
