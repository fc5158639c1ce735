// Package dserror defines the failure kinds a datasource operation can surface. Callers branch
// on the Kind rather than on message text.
package dserror

import (
	"errors"
	"fmt"
)

// Kind classifies a datasource failure.
type Kind int

const (
	// KindUnknown is returned by KindOf for errors that did not originate from this package.
	KindUnknown Kind = iota

	// KindFetch covers unreachable endpoints, non-success HTTP statuses and malformed bodies.
	KindFetch

	// KindResolution indicates a MAC address could not be mapped to an interface name.
	KindResolution

	// KindConfiguration indicates a request that can never succeed, such as an unknown
	// metadata field.
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindFetch:
		return "fetch"
	case KindResolution:
		return "resolution"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Sentinels usable with errors.Is. Any E matches the sentinel of its Kind.
var (
	ErrFetch         = errors.New("metadata fetch failed")
	ErrResolution    = errors.New("interface resolution failed")
	ErrConfiguration = errors.New("invalid datasource configuration")
)

// E is the error type returned by datasource operations. It can be used with errors.As and
// errors.Is.
type E struct {
	Kind Kind

	// Op names the operation that failed, for example "fetch hostname".
	Op string

	// StatusCode is the last HTTP status observed for KindFetch errors. Zero when no response
	// was received.
	StatusCode int

	E error
}

// New constructs an E of kind k for op with message msg.
func New(k Kind, op, msg string) error {
	return &E{Kind: k, Op: op, E: errors.New(msg)}
}

// Newf constructs an E of kind k for op with a message formatted with fmt.Sprintf.
func Newf(k Kind, op, format string, args ...any) error {
	return New(k, op, fmt.Sprintf(format, args...))
}

// Wrap wraps err in an E of kind k.
func Wrap(k Kind, op string, err error) error {
	return &E{Kind: k, Op: op, E: err}
}

// HTTPStatus constructs a KindFetch error for a non-success response.
func HTTPStatus(op string, code int) error {
	return &E{
		Kind:       KindFetch,
		Op:         op,
		StatusCode: code,
		E:          fmt.Errorf("unexpected status code: %d", code),
	}
}

// Error satisfies the error interface.
func (e *E) Error() string {
	if e.Op == "" {
		return e.E.Error()
	}
	return e.Op + ": " + e.E.Error()
}

// Unwrap returns the wrapped error.
func (e *E) Unwrap() error {
	return e.E
}

// Is reports whether target is the sentinel for e's Kind.
func (e *E) Is(target error) bool {
	switch target {
	case ErrFetch:
		return e.Kind == KindFetch
	case ErrResolution:
		return e.Kind == KindResolution
	case ErrConfiguration:
		return e.Kind == KindConfiguration
	}
	return false
}

// KindOf returns the Kind of the first E in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *E
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err is a transport-level failure worth retrying on a later
// boot. Resolution and configuration failures are permanent.
func IsRetryable(err error) bool {
	return KindOf(err) == KindFetch
}
