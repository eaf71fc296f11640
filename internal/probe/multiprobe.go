package probe

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/endpointresolver/internal/domain"
)

// ProbeAll probes every candidate with at most concurrency probes in flight
// and returns results in candidate order.
func ProbeAll(ctx context.Context, p Prober, cands []domain.Candidate, concurrency int) []domain.ProbeResult {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]domain.ProbeResult, len(cands))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, c := range cands {
		i, c := i, c
		g.Go(func() error {
			results[i] = p.Probe(ctx, c)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
