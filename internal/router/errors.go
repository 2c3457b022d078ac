package router

import (
	"errors"
	"fmt"
)

// noFallbackError means a local-only model could not be served and no remote
// equivalent exists, so the request fails rather than silently degrading.
type noFallbackError struct {
	model string
	cause error
}

func (e noFallbackError) Error() string {
	return fmt.Sprintf("model %q is local-only and no instance could serve the request: %v", e.model, e.cause)
}

func (e noFallbackError) Unwrap() error { return e.cause }

// ErrNoFallback constructs the fatal local-only failure.
func ErrNoFallback(model string, cause error) error {
	return noFallbackError{model: model, cause: cause}
}

// IsNoFallback reports whether err is the fatal local-only failure.
func IsNoFallback(err error) bool {
	var nf noFallbackError
	return errors.As(err, &nf)
}

// upstreamError carries a non-2xx reply from a serving backend. Statuses in
// the 5xx range count as transient for retry purposes; 4xx does not.
type upstreamError struct {
	url    string
	status int
	body   string
}

func (e upstreamError) Error() string {
	return fmt.Sprintf("upstream %s returned %d: %s", e.url, e.status, e.body)
}

func (e upstreamError) transient() bool { return e.status >= 500 }

// IsUpstreamStatus reports whether err carries a non-2xx upstream reply
// anywhere in its chain and, if so, its status code.
func IsUpstreamStatus(err error) (int, bool) {
	var ue upstreamError
	if !errors.As(err, &ue) {
		return 0, false
	}
	return ue.status, true
}
