package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidIdentifier is returned when a message is constructed with an empty id.
var ErrInvalidIdentifier = errors.New("message identifier must not be empty")

// InvalidStateTransitionError is returned when a command is issued from a status
// that does not permit it. The aggregate is left unmodified.
type InvalidStateTransitionError struct {
	Current MessageStatus
	Command string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: cannot %s while message status is %s", e.Command, e.Current)
}
