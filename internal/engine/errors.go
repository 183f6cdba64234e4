package engine

import (
	"errors"
	"fmt"

	"github.com/matiasroldan/adambot/internal/session"
)

// ErrNoSession indicates an operation that requires an existing session for
// a user who has none.
var ErrNoSession = errors.New("no active session")

// InvalidTransitionError is a state-corruption fault: an operation was
// requested from a stage that does not admit it. The engine forces the
// session to abandoned so it cannot get stuck.
type InvalidTransitionError struct {
	UserID int64
	From   session.Stage
	Op     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: op %q from stage %q for user %d", e.Op, e.From, e.UserID)
}

// StorageError wraps a persistence failure after retries were exhausted. The
// in-memory state is unchanged when it is returned.
type StorageError struct {
	UserID int64
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to persist session for user %d: %v", e.UserID, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
