package manager

import (
	"fmt"

	fmtx "github.com/fornellas/vpm/internal/fmt"
	"github.com/fornellas/vpm/setupc"
)

type EventType int

const (
	EventTypePortListUpdated EventType = iota
	EventTypeCommandCompleted
	EventTypeDriverStatusChanged
	EventTypeErrorOccurred
)

func (t EventType) String() string {
	switch t {
	case EventTypePortListUpdated:
		return "port-list-updated"
	case EventTypeCommandCompleted:
		return "command-completed"
	case EventTypeDriverStatusChanged:
		return "driver-status-changed"
	case EventTypeErrorOccurred:
		return "error-occurred"
	default:
		panic(fmt.Sprintf("bug: unexpected event type: %d", int(t)))
	}
}

// Event is published by Manager to its subscribers. Handlers must not modify it.
type Event interface {
	Type() EventType
	String() string
}

// PortListUpdatedEvent carries the freshly listed (or cleared) port pairs.
type PortListUpdatedEvent struct {
	PortPairs []setupc.PortPair
}

func (e *PortListUpdatedEvent) Type() EventType {
	return EventTypePortListUpdated
}

func (e *PortListUpdatedEvent) String() string {
	return fmt.Sprintf("%s: %d pairs", e.Type(), len(e.PortPairs))
}

// CommandCompletedEvent is published for every finished setupc invocation, successful or not.
type CommandCompletedEvent struct {
	Result *setupc.CommandResult
}

func (e *CommandCompletedEvent) Type() EventType {
	return EventTypeCommandCompleted
}

func (e *CommandCompletedEvent) String() string {
	return fmt.Sprintf(
		"%s: %s: return code %d (%s)",
		e.Type(), e.Result.Command, e.Result.ReturnCode, fmtx.SprintSeconds(e.Result.ExecutionTime),
	)
}

type DriverStatusChangedEvent struct {
	DriverInfo setupc.DriverInfo
}

func (e *DriverStatusChangedEvent) Type() EventType {
	return EventTypeDriverStatusChanged
}

func (e *DriverStatusChangedEvent) String() string {
	if e.DriverInfo.ErrorMessage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Type(), e.DriverInfo.Status, e.DriverInfo.ErrorMessage)
	}
	return fmt.Sprintf("%s: %s", e.Type(), e.DriverInfo.Status)
}

// ErrorOccurredEvent carries a human readable failure message.
type ErrorOccurredEvent struct {
	Message string
}

func (e *ErrorOccurredEvent) Type() EventType {
	return EventTypeErrorOccurred
}

func (e *ErrorOccurredEvent) String() string {
	return fmt.Sprintf("%s: %s", e.Type(), e.Message)
}
