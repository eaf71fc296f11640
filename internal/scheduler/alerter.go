package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/hamed0406/endpointresolver/internal/notify"
	"github.com/hamed0406/endpointresolver/internal/repo"
)

// alertKey is the single record the alerter keeps: one backend per process.
const alertKey = "backend"

type AlerterConfig struct {
	AlertOnRecovery bool
	Cooldown        time.Duration
}

// Alerter turns backend state changes into notices. State is the base URL in
// use, or "" when nothing was reachable.
type Alerter struct {
	alertDB  repo.AlertStore
	notifier notify.Notifier
	cfg      AlerterConfig
	log      *zap.Logger
	clock    clock.Clock
}

func NewAlerter(alertDB repo.AlertStore, notifier notify.Notifier, cfg AlerterConfig, log *zap.Logger) *Alerter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Alerter{
		alertDB:  alertDB,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		clock:    clock.New(),
	}
}

func (a *Alerter) Observe(ctx context.Context, baseURL, detail string) error {
	rec, err := a.alertDB.Get(ctx, alertKey)
	if err != nil {
		return fmt.Errorf("load alert state: %w", err)
	}

	// Has the endpoint changed compared to what we last recorded?
	if rec != nil && rec.LastState == baseURL {
		return nil
	}

	now := a.clock.Now()

	// Cooldown only matters for UNREACHABLE alerts (suppresses noisy repeats).
	cooled := true
	var lastSent time.Time
	if rec != nil && rec.LastSentAt != nil {
		lastSent = *rec.LastSentAt
		cooled = now.Sub(lastSent) >= a.cfg.Cooldown
	}

	previous := "none"
	if rec != nil && rec.LastState != "" {
		previous = rec.LastState
	}

	var title string
	switch {
	case baseURL == "":
		if cooled {
			title = "🔴 Backend UNREACHABLE"
		}
	case rec == nil:
		// first sighting of a working backend is the baseline
	case rec.LastState == "":
		if a.cfg.AlertOnRecovery {
			title = "🟢 Backend RECOVERED"
		}
	default:
		title = "🔀 Backend SWITCHED"
	}

	if title == "" {
		// record the new state but keep the last send time for the cooldown
		return a.alertDB.Set(ctx, alertKey, baseURL, lastSent)
	}

	current := baseURL
	if current == "" {
		current = "none"
	}
	text := fmt.Sprintf("Backend: %s\nPrevious: %s\nDetail: %s\nAt: %s",
		current, previous, detail, now.UTC().Format(time.RFC3339))

	// Best-effort send; the state is recorded either way.
	if err := a.notifier.Send(ctx, title, text); err != nil {
		a.log.Warn("alert_send_failed", zap.String("title", title), zap.Error(err))
	} else {
		a.log.Info("alert_sent", zap.String("title", title), zap.String("base_url", baseURL))
	}
	return a.alertDB.Set(ctx, alertKey, baseURL, now)
}
