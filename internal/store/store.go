// Package store owns the durable per-user conversation state: the session
// record and the ordered, append-only exchange log.
package store

import (
	"context"
	"fmt"

	"github.com/avelesov/neyra/internal/model/chat"
)

// ErrUnavailable reports that the store could not complete an operation.
// The router must not acknowledge a reply whose append failed with this.
var ErrUnavailable = fmt.Errorf("context store unavailable")

// Store is the single shared mutable resource for a user's conversation.
// Append and Clear are the only mutation paths for exchanges.
type Store interface {
	// Append durably records an exchange, assigning the next turn index.
	// The returned exchange carries the assigned ID and index.
	Append(ctx context.Context, ex chat.Exchange) (chat.Exchange, error)
	// Window returns the most recent limit exchanges in turn order.
	Window(ctx context.Context, userID string, limit int) ([]chat.Exchange, error)
	// All returns the full exchange sequence in turn order.
	All(ctx context.Context, userID string) ([]chat.Exchange, error)
	// Clear removes all exchanges for a user. The session record stays.
	Clear(ctx context.Context, userID string) error

	// Session loads the session record for a user, reporting presence.
	Session(ctx context.Context, userID string) (chat.Session, bool, error)
	// SaveSession inserts or replaces a session record.
	SaveSession(ctx context.Context, s chat.Session) error

	Close() error
}

type storeError struct {
	op  string
	err error
}

func (e *storeError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.op, e.err)
}

func (e *storeError) Unwrap() error { return e.err }

// Is makes every storeError match ErrUnavailable.
func (e *storeError) Is(target error) bool { return target == ErrUnavailable }

func unavailable(op string, err error) error {
	return &storeError{op: op, err: err}
}
