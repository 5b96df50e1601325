package flight

import "errors"

var (
	// ErrInvalidTicket is returned when a ticket cannot be decoded or
	// carries conflicting fields.
	ErrInvalidTicket = errors.New("invalid ticket")
	// ErrUnknownAction is returned by DoAction for unsupported action types.
	ErrUnknownAction = errors.New("unknown action")
)
