package conversation

import (
	"errors"
	"fmt"
)

// ErrFinalized is returned when a final message is asked to change
var ErrFinalized = errors.New("message is already final")

// DuplicateIDError is returned when a message would reuse an existing identity
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate message id %q", e.ID)
}
