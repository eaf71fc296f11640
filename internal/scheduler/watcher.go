package scheduler

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/hamed0406/endpointresolver/internal/domain"
	"github.com/hamed0406/endpointresolver/internal/probe"
)

// EndpointResolver is the resolver surface the watcher drives.
type EndpointResolver interface {
	Resolve(ctx context.Context, force bool) (*domain.ResolvedEndpoint, error)
	Invalidate()
	Current() *domain.ResolvedEndpoint
}

// Watcher re-probes the cached endpoint on an interval and re-resolves as
// soon as it stops answering, so callers rarely pay for a failed request.
type Watcher struct {
	Logger   *zap.Logger
	Resolver EndpointResolver
	Prober   probe.Prober
	Alerter  *Alerter // optional
	Interval time.Duration
	Clock    clock.Clock
}

func NewWatcher(logger *zap.Logger, r EndpointResolver, p probe.Prober, a *Alerter, interval time.Duration) *Watcher {
	if interval < 0 {
		interval = 0
	}
	return &Watcher{
		Logger:   logger,
		Resolver: r,
		Prober:   p,
		Alerter:  a,
		Interval: interval,
		Clock:    clock.New(),
	}
}

// Run does an immediate pass, then one per tick. Stops when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	if w.Interval == 0 {
		// disabled
		w.Logger.Info("watcher_disabled")
		return
	}
	t := w.Clock.Ticker(w.Interval)
	defer t.Stop()

	// immediate pass
	w.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("watcher_stopped")
			return
		case <-t.C:
			w.Check(ctx)
		}
	}
}

// Check runs one pass and returns the base URL in use afterwards ("" if none).
func (w *Watcher) Check(ctx context.Context) string {
	cur := w.Resolver.Current()
	if cur != nil {
		res := w.Prober.Probe(ctx, domain.Candidate{
			URL:      cur.BaseURL,
			Label:    cur.Label,
			Priority: cur.Source.Priority(),
			Source:   cur.Source,
		})
		if res.Reachable {
			w.Logger.Debug("watcher_ok",
				zap.String("base_url", cur.BaseURL),
				zap.Float64("elapsed_ms", res.ElapsedMS),
			)
			w.observe(ctx, cur.BaseURL, "health check ok")
			return cur.BaseURL
		}
		w.Logger.Warn("watcher_endpoint_lost",
			zap.String("base_url", cur.BaseURL),
			zap.String("error", res.Error),
		)
		w.Resolver.Invalidate()
	}

	ep, err := w.Resolver.Resolve(ctx, cur != nil)
	if err != nil {
		if ctx.Err() != nil {
			return ""
		}
		w.Logger.Warn("watcher_resolve_failed", zap.Error(err))
		w.observe(ctx, "", err.Error())
		return ""
	}
	if cur == nil || cur.BaseURL != ep.BaseURL {
		w.Logger.Info("watcher_endpoint_changed",
			zap.String("base_url", ep.BaseURL),
			zap.String("label", ep.Label),
			zap.String("source", string(ep.Source)),
		)
	}
	w.observe(ctx, ep.BaseURL, ep.Label)
	return ep.BaseURL
}

func (w *Watcher) observe(ctx context.Context, baseURL, detail string) {
	if w.Alerter == nil {
		return
	}
	if err := w.Alerter.Observe(ctx, baseURL, detail); err != nil {
		w.Logger.Warn("watcher_alert_error", zap.Error(err))
	}
}
