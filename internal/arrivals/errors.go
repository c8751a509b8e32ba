package arrivals

import "errors"

// NotFoundKind identifies which entity failed to resolve.
type NotFoundKind string

const (
	NotFoundStop  NotFoundKind = "stop"
	NotFoundRoute NotFoundKind = "route"
)

// NotFoundError reports that the requested stop or route does not
// exist. The two kinds are surfaced distinctly so callers can tell a
// bad stop ID from a bad route name.
type NotFoundError struct {
	Kind NotFoundKind
}

func (e *NotFoundError) Error() string {
	return string(e.Kind) + " not found"
}

// AsNotFound unwraps err into a NotFoundError, if it is one.
func AsNotFound(err error) (*NotFoundError, bool) {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf, true
	}
	return nil, false
}

// TransientError wraps a store failure (timeout, unavailability) that
// the caller may retry with backoff. The resolver itself never
// retries; retry policy belongs to the data-access layer.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return "transit store " + e.Op + ": " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable store failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
