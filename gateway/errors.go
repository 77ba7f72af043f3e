package gateway

import (
	"errors"
	"fmt"

	"github.com/cyp0633/calgate/store"
)

var (
	// ErrNilStore is returned by New when no store is given
	ErrNilStore = errors.New("store is required")
	// ErrStorePanic is wrapped in an Unhandled error when a store call panics
	ErrStorePanic = errors.New("store call panicked")

	// Sentinels matching each Reason through errors.Is
	ErrAuthorizationPending = errors.New("authorization pending")
	ErrNotAuthorized        = errors.New("not authorized")
	ErrUnhandled            = errors.New("unhandled store error")
)

// Reason classifies a gateway failure.
type Reason int

const (
	// ReasonAuthorizationPending means the user has not yet answered the permission prompt.
	ReasonAuthorizationPending Reason = iota + 1
	// ReasonNotAuthorized means access is restricted or denied.
	ReasonNotAuthorized
	// ReasonUnhandled means the store itself failed.
	ReasonUnhandled
)

func (r Reason) String() string {
	switch r {
	case ReasonAuthorizationPending:
		return "authorization_pending"
	case ReasonNotAuthorized:
		return "not_authorized"
	case ReasonUnhandled:
		return "unhandled"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Error is the only error type gated operations deliver. Kind is set for the
// authorization reasons, Err for ReasonUnhandled.
type Error struct {
	Reason Reason
	Kind   store.EntityKind
	Err    error
}

// AuthorizationPending reports that access to kind has not been decided yet.
func AuthorizationPending(kind store.EntityKind) *Error {
	return &Error{Reason: ReasonAuthorizationPending, Kind: kind}
}

// NotAuthorized reports that access to kind is restricted or denied.
func NotAuthorized(kind store.EntityKind) *Error {
	return &Error{Reason: ReasonNotAuthorized, Kind: kind}
}

// Unhandled wraps a store failure.
func Unhandled(err error) *Error {
	return &Error{Reason: ReasonUnhandled, Err: err}
}

func (e *Error) Error() string {
	switch e.Reason {
	case ReasonAuthorizationPending:
		return fmt.Sprintf("%s access: authorization pending", e.Kind)
	case ReasonNotAuthorized:
		return fmt.Sprintf("%s access: not authorized", e.Kind)
	default:
		if e.Err == nil {
			return ErrUnhandled.Error()
		}
		return fmt.Sprintf("%s: %v", ErrUnhandled, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Reason.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrAuthorizationPending:
		return e.Reason == ReasonAuthorizationPending
	case ErrNotAuthorized:
		return e.Reason == ReasonNotAuthorized
	case ErrUnhandled:
		return e.Reason == ReasonUnhandled
	}
	return false
}
