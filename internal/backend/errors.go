package backend

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies adapter failures for the router's retry policy.
type Kind int

const (
	// KindUpstream is an opaque provider fault. Retryable once.
	KindUpstream Kind = iota
	// KindRateLimited means the provider rejected the call for quota
	// reasons. Retryable once.
	KindRateLimited
	// KindTimeout means the call exceeded its deadline or was cancelled.
	// Retryable once.
	KindTimeout
	// KindAuth means credentials were rejected. Never retried.
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindAuth:
		return "auth_failure"
	case KindTimeout:
		return "timeout"
	default:
		return "upstream_error"
	}
}

// Error is a classified adapter failure.
type Error struct {
	Kind    Kind
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Backend, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps a provider fault with its classification.
func NewError(kind Kind, backendName string, err error) error {
	return &Error{Kind: kind, Backend: backendName, Err: err}
}

// KindOf extracts the failure kind from an adapter error. Context deadline
// and cancellation errors count as timeouts even when an adapter forgot to
// classify them.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindUpstream
}

// Retryable reports whether the router may retry the call once with the
// same context. Auth failures indicate a configuration problem and are
// never retried.
func Retryable(err error) bool {
	return KindOf(err) != KindAuth
}
