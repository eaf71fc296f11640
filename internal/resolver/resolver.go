// internal/resolver/resolver.go
package resolver

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/endpointresolver/internal/domain"
	"github.com/hamed0406/endpointresolver/internal/metrics"
	"github.com/hamed0406/endpointresolver/internal/probe"
	"github.com/hamed0406/endpointresolver/internal/repo"
)

const (
	DefaultConcurrency = 6
	historyTimeout     = 2 * time.Second
)

// CandidateSource yields the ordered candidates for one cycle.
type CandidateSource interface {
	Candidates(ctx context.Context) []domain.Candidate
}

type SourceFunc func(ctx context.Context) []domain.Candidate

func (f SourceFunc) Candidates(ctx context.Context) []domain.Candidate { return f(ctx) }

type Options struct {
	// Concurrency bounds parallel probes within a cycle. 1 probes sequentially.
	Concurrency int
	// DegradeToFallback attaches the first static-fallback candidate to an
	// exhausted result.
	DegradeToFallback bool
	// CycleTimeout caps a whole cycle; zero means no cap beyond probe timeouts.
	CycleTimeout time.Duration
	Clock        clock.Clock
	History      repo.HistoryStore
	Metrics      *metrics.Metrics
}

func DefaultOptions() Options {
	return Options{Concurrency: DefaultConcurrency, DegradeToFallback: true}
}

// Resolver owns the resolved-endpoint cache. Reads are lock-free; the mutex
// only guards the in-flight cycle.
type Resolver struct {
	src    CandidateSource
	prober probe.Prober
	log    *zap.Logger
	opts   Options
	clock  clock.Clock

	current    atomic.Pointer[domain.ResolvedEndpoint]
	candidates atomic.Pointer[[]domain.Candidate]

	mu     sync.Mutex
	flight *flight
}

// flight is one resolution cycle shared by every caller that joined it.
type flight struct {
	done      chan struct{}
	cancel    context.CancelFunc
	forced    bool
	waiters   int
	abandoned bool

	ep  *domain.ResolvedEndpoint
	err error
}

func New(src CandidateSource, prober probe.Prober, log *zap.Logger, opts Options) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	c := opts.Clock
	if c == nil {
		c = clock.New()
	}
	return &Resolver{src: src, prober: prober, log: log, opts: opts, clock: c}
}

// Resolve returns the cached endpoint unless force is set or nothing is
// cached, in which case it joins the in-flight cycle or starts one.
// Leaving via ctx detaches the caller; a cycle every caller has left is
// cancelled and never writes the cache.
func (r *Resolver) Resolve(ctx context.Context, force bool) (*domain.ResolvedEndpoint, error) {
	if !force {
		if ep := r.current.Load(); ep != nil {
			return ep, nil
		}
	}
	ep, f := r.join(force)
	if f == nil {
		return ep, nil
	}
	select {
	case <-f.done:
		return f.ep, f.err
	case <-ctx.Done():
		r.leave(f)
		return nil, ctx.Err()
	}
}

// Current returns the cached endpoint or nil.
func (r *Resolver) Current() *domain.ResolvedEndpoint {
	return r.current.Load()
}

// Invalidate clears the cache so the next Resolve probes again.
func (r *Resolver) Invalidate() {
	if old := r.current.Swap(nil); old != nil {
		r.log.Info("endpoint_invalidated", zap.String("base_url", old.BaseURL))
	}
	r.opts.Metrics.ObserveInvalidation()
}

func (r *Resolver) Status() domain.Status {
	r.mu.Lock()
	resolving := r.flight != nil
	r.mu.Unlock()

	st := domain.Status{Current: r.current.Load(), Resolving: resolving}
	if c := r.candidates.Load(); c != nil {
		st.Candidates = *c
	}
	return st
}

func (r *Resolver) join(force bool) (*domain.ResolvedEndpoint, *flight) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f := r.flight; f != nil {
		f.waiters++
		return nil, f
	}
	if !force {
		// a cycle may have finished between the fast path and the lock
		if ep := r.current.Load(); ep != nil {
			return ep, nil
		}
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if r.opts.CycleTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), r.opts.CycleTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	f := &flight{done: make(chan struct{}), cancel: cancel, forced: force, waiters: 1}
	r.flight = f
	go r.run(ctx, f)
	return nil, f
}

func (r *Resolver) leave(f *flight) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.waiters--
	if f.waiters > 0 || r.flight != f {
		return
	}
	f.abandoned = true
	r.flight = nil
	f.cancel()
}

func (r *Resolver) run(ctx context.Context, f *flight) {
	defer f.cancel()

	rec := domain.Resolution{
		ID:        uuid.NewString(),
		StartedAt: r.clock.Now().UTC(),
		Forced:    f.forced,
	}
	cands := r.src.Candidates(ctx)
	r.candidates.Store(&cands)

	winner, probed := r.scan(ctx, cands)
	rec.Probed = len(probed)

	var exhausted *ExhaustedError
	r.mu.Lock()
	switch {
	case f.abandoned:
		rec.Outcome = domain.OutcomeAbandoned
		f.err = context.Canceled
	case winner != nil:
		ep := &domain.ResolvedEndpoint{
			BaseURL:    winner.URL,
			Label:      winner.Label,
			ResolvedAt: r.clock.Now().UTC(),
			Source:     winner.Source,
		}
		r.current.Store(ep)
		f.ep = ep
		rec.Outcome = domain.OutcomeResolved
		rec.BaseURL, rec.Label, rec.Source = ep.BaseURL, ep.Label, ep.Source
	default:
		exhausted = &ExhaustedError{Probed: len(probed), Err: probeErrors(probed)}
		if r.opts.DegradeToFallback {
			exhausted.Degraded = r.degraded(cands)
		}
		f.err = exhausted
		rec.Outcome = domain.OutcomeExhausted
		rec.Error = exhausted.Error()
	}
	if r.flight == f {
		r.flight = nil
	}
	close(f.done)
	r.mu.Unlock()

	rec.FinishedAt = r.clock.Now().UTC()
	r.report(&rec, exhausted)
}

// scan probes cands with at most Concurrency probes in flight, dispatched in
// priority order by the loop that consumes results. The winner is the
// lowest-index reachable candidate, decided once every candidate before it
// has concluded unreachable; nothing is dispatched after that and
// outstanding probes are cancelled. No candidate past the best reachable one
// seen so far is dispatched either. probed holds the concluded results in
// candidate order.
func (r *Resolver) scan(ctx context.Context, cands []domain.Candidate) (winner *domain.Candidate, probed []domain.ProbeResult) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type indexed struct {
		i   int
		res domain.ProbeResult
	}
	results := make(chan indexed, len(cands))

	var g errgroup.Group
	launched, inflight := 0, 0
	best := len(cands) // lowest reachable index concluded so far
	dispatch := func() {
		for inflight < r.opts.Concurrency && launched < best && ctx.Err() == nil {
			i, c := launched, cands[launched]
			launched++
			inflight++
			g.Go(func() error {
				results <- indexed{i: i, res: r.prober.Probe(ctx, c)}
				return nil
			})
		}
	}

	concluded := make([]*domain.ProbeResult, len(cands))
	next, win := 0, -1
	dispatch()
	for inflight > 0 {
		x := <-results
		inflight--
		res := x.res
		concluded[x.i] = &res
		r.opts.Metrics.ObserveProbe(res)
		if win >= 0 {
			continue
		}
		if res.Reachable && x.i < best {
			best = x.i
		}
		for next < len(cands) && concluded[next] != nil {
			if concluded[next].Reachable {
				win = next
				cancel()
				break
			}
			next++
		}
		if win < 0 {
			dispatch()
		}
	}
	_ = g.Wait()

	for _, p := range concluded {
		if p != nil {
			probed = append(probed, *p)
		}
	}
	if win >= 0 {
		w := cands[win]
		return &w, probed
	}
	return nil, probed
}

// degraded picks the endpoint an exhausted cycle falls back to: the first
// static fallback, or, when dedup folded every fallback into a higher tier,
// the lowest-priority configured (non-scanned) candidate.
func (r *Resolver) degraded(cands []domain.Candidate) *domain.ResolvedEndpoint {
	var pick *domain.Candidate
	for i := range cands {
		c := &cands[i]
		if c.Source == domain.SourceStaticFallback {
			pick = c
			break
		}
		if c.Source != domain.SourceLANScan {
			pick = c
		}
	}
	if pick == nil {
		return nil
	}
	return &domain.ResolvedEndpoint{
		BaseURL:    pick.URL,
		Label:      pick.Label,
		ResolvedAt: r.clock.Now().UTC(),
		Source:     pick.Source,
	}
}

func (r *Resolver) report(rec *domain.Resolution, exhausted *ExhaustedError) {
	fields := []zap.Field{
		zap.String("id", rec.ID),
		zap.String("outcome", string(rec.Outcome)),
		zap.Bool("forced", rec.Forced),
		zap.Int("probed", rec.Probed),
		zap.Duration("took", rec.FinishedAt.Sub(rec.StartedAt)),
	}
	switch rec.Outcome {
	case domain.OutcomeResolved:
		r.log.Info("resolver_cycle_done", append(fields,
			zap.String("base_url", rec.BaseURL),
			zap.String("source", string(rec.Source)))...)
	case domain.OutcomeExhausted:
		if exhausted.Degraded != nil {
			fields = append(fields, zap.String("degraded_to", exhausted.Degraded.BaseURL))
		}
		r.log.Warn("resolver_exhausted", append(fields, zap.Error(exhausted.Err))...)
	default:
		r.log.Info("resolver_cycle_abandoned", fields...)
	}

	r.opts.Metrics.ObserveResolution(*rec)

	if r.opts.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()
	if err := r.opts.History.Append(ctx, rec); err != nil {
		r.log.Warn("history_append_failed", zap.String("id", rec.ID), zap.Error(err))
	}
}

func probeErrors(results []domain.ProbeResult) error {
	var err error
	for _, p := range results {
		if p.Reachable {
			continue
		}
		err = multierr.Append(err, fmt.Errorf("%s: %s", p.Candidate.URL, p.Error))
	}
	return err
}
