package pool

import (
	"errors"
	"fmt"
	"time"
)

// unavailableError signals that no healthy pool could be established.
type unavailableError struct {
	model  string
	reason error
}

func (e unavailableError) Error() string {
	return fmt.Sprintf("pool unavailable for %s: %v", e.model, e.reason)
}

func (e unavailableError) Unwrap() error { return e.reason }

// ErrUnavailable constructs the error surfaced when a pool cannot serve.
func ErrUnavailable(model string, reason error) error {
	return unavailableError{model: model, reason: reason}
}

// cooldownError signals that a recent total launch failure suppresses new
// attempts for this model.
type cooldownError struct {
	model string
	until time.Time
}

func (e cooldownError) Error() string {
	return fmt.Sprintf("launch cooldown active for %s until %s", e.model, e.until.Format(time.RFC3339))
}

// ErrCooldown constructs the suppressed-by-cooldown failure.
func ErrCooldown(model string, until time.Time) error {
	return cooldownError{model: model, until: until}
}

// IsUnavailable reports whether err means the local pool cannot serve the
// model right now (failed launch or active cooldown). Walks wrapped chains
// so callers above the routing layer can still classify.
func IsUnavailable(err error) bool {
	var ue unavailableError
	var ce cooldownError
	return errors.As(err, &ue) || errors.As(err, &ce)
}

// IsCooldown reports whether err is a suppressed-by-cooldown failure.
func IsCooldown(err error) bool {
	var ce cooldownError
	return errors.As(err, &ce)
}
