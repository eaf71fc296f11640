// internal/probe/retryprober.go
package probe

import (
	"context"
	"time"

	"github.com/hamed0406/endpointresolver/internal/domain"
)

// RetryProber re-probes a candidate on flaky links. Elapsed time covers the
// whole series.
type RetryProber struct {
	Inner    Prober
	Attempts int
	Backoff  time.Duration
}

// WithRetries wraps p in a RetryProber when attempts > 1 and returns p
// unchanged otherwise.
func WithRetries(p Prober, attempts int, backoff time.Duration) Prober {
	if attempts <= 1 {
		return p
	}
	return &RetryProber{Inner: p, Attempts: attempts, Backoff: backoff}
}

func (r *RetryProber) Probe(ctx context.Context, c domain.Candidate) domain.ProbeResult {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	start := time.Now()
	var last domain.ProbeResult
	for i := 0; ; i++ {
		last = r.Inner.Probe(ctx, c)
		if last.Reachable || i == attempts-1 || !sleep(ctx, r.Backoff) {
			break
		}
	}
	last.ElapsedMS = float64(time.Since(start).Microseconds()) / 1000.0
	if !last.Reachable && attempts > 1 {
		// annotate message so you can see it was a retry series
		last.Error = last.Error + " (after retries)"
	}
	return last
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
