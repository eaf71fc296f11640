package resolver

import (
	"errors"
	"fmt"

	"github.com/hamed0406/endpointresolver/internal/domain"
)

// ErrResolutionExhausted is matched by every *ExhaustedError.
var ErrResolutionExhausted = errors.New("no backend endpoint reachable")

// ExhaustedError is returned when no candidate of a cycle was reachable.
// Err aggregates the per-candidate probe failures. Degraded, when set, is the
// static fallback callers may still try; it is never cached.
type ExhaustedError struct {
	Probed   int
	Degraded *domain.ResolvedEndpoint
	Err      error
}

func (e *ExhaustedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (%d probed)", ErrResolutionExhausted, e.Probed)
	}
	return fmt.Sprintf("%s (%d probed): %v", ErrResolutionExhausted, e.Probed, e.Err)
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrResolutionExhausted }

func (e *ExhaustedError) Unwrap() error { return e.Err }
