package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide between aborting,
// retrying and recovering.
type Kind string

const (
	UpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	NoBackendAvailable  Kind = "NO_BACKEND_AVAILABLE"
	MissingCredential   Kind = "MISSING_CREDENTIAL"
	ModelLoadError      Kind = "MODEL_LOAD_ERROR"
	AuthError           Kind = "AUTH_ERROR"
	RateLimited         Kind = "RATE_LIMITED"
	Timeout             Kind = "TIMEOUT"
	InferenceError      Kind = "INFERENCE_ERROR"
	InvalidQuery        Kind = "INVALID_QUERY"
	Unknown             Kind = "UNKNOWN"
)

// Retryable reports whether an operation failing with k may be attempted again.
func (k Kind) Retryable() bool {
	return k == RateLimited || k == Timeout
}

// Fatal reports whether k invalidates the whole query.
func (k Kind) Fatal() bool {
	switch k {
	case UpstreamUnavailable, NoBackendAvailable, MissingCredential, ModelLoadError, AuthError, InvalidQuery:
		return true
	}
	return false
}

// Error attaches a Kind to an underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with kind. op names the failing operation and may be empty.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a kinded error from a format string.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Is reports whether err carries kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
