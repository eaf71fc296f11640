package probe

import (
	"context"

	"github.com/hamed0406/endpointresolver/internal/domain"
)

// Prober checks whether one candidate is a live backend.
//
// Implementations never return an error: every failure mode is folded into
// a ProbeResult with Reachable=false and a non-empty Error.
type Prober interface {
	Probe(ctx context.Context, c domain.Candidate) domain.ProbeResult
}

type ProberFunc func(ctx context.Context, c domain.Candidate) domain.ProbeResult

func (f ProberFunc) Probe(ctx context.Context, c domain.Candidate) domain.ProbeResult {
	return f(ctx, c)
}
