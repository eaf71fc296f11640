package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/hamed0406/endpointresolver/internal/repo/memory"
)

// ---- shared helpers ----

type memNotifier struct {
	titles []string
	texts  []string
	err    error
}

func (m *memNotifier) Send(ctx context.Context, title, text string) error {
	m.titles = append(m.titles, title)
	m.texts = append(m.texts, text)
	return m.err
}

func newTestAlerter(cfg AlerterConfig) (*Alerter, *memNotifier, *clock.Mock, *memory.Store) {
	store := memory.New(0)
	nt := &memNotifier{}
	al := NewAlerter(store, nt, cfg, zap.NewNop())
	mock := clock.NewMock()
	al.clock = mock
	return al, nt, mock, store
}

// ---- tests ----

func TestAlerter_UnreachableRespectsCooldown(t *testing.T) {
	ctx := context.Background()
	al, nt, mock, _ := newTestAlerter(AlerterConfig{AlertOnRecovery: true, Cooldown: time.Minute})

	// baseline: working backend, no alert
	if err := al.Observe(ctx, "http://10.0.0.5:8000", "ok"); err != nil {
		t.Fatal(err)
	}
	if len(nt.titles) != 0 {
		t.Fatalf("baseline must not alert, got %v", nt.titles)
	}

	// goes away -> alert
	if err := al.Observe(ctx, "", "no candidate reachable"); err != nil {
		t.Fatal(err)
	}
	if len(nt.titles) != 1 || !strings.Contains(nt.titles[0], "UNREACHABLE") {
		t.Fatalf("want unreachable alert, got %v", nt.titles)
	}
	if !strings.Contains(nt.texts[0], "Previous: http://10.0.0.5:8000") {
		t.Fatalf("text should name previous backend: %q", nt.texts[0])
	}

	// same state again -> nothing
	_ = al.Observe(ctx, "", "still down")
	if len(nt.titles) != 1 {
		t.Fatalf("unchanged state must not alert, got %v", nt.titles)
	}

	// recovery bypasses cooldown
	mock.Add(10 * time.Second)
	_ = al.Observe(ctx, "http://10.0.0.5:8000", "ok")
	if len(nt.titles) != 2 || !strings.Contains(nt.titles[1], "RECOVERED") {
		t.Fatalf("want recovery alert, got %v", nt.titles)
	}

	// down again within cooldown -> suppressed
	mock.Add(10 * time.Second)
	_ = al.Observe(ctx, "", "flap")
	if len(nt.titles) != 2 {
		t.Fatalf("cooldown should suppress, got %v", nt.titles)
	}

	// back up (recovery alert), then down after cooldown -> alert
	_ = al.Observe(ctx, "http://10.0.0.5:8000", "ok")
	mock.Add(2 * time.Minute)
	_ = al.Observe(ctx, "", "down for real")
	if len(nt.titles) != 4 || !strings.Contains(nt.titles[3], "UNREACHABLE") {
		t.Fatalf("want unreachable alert after cooldown, got %v", nt.titles)
	}
}

func TestAlerter_SwitchAlwaysAlerts(t *testing.T) {
	ctx := context.Background()
	al, nt, _, store := newTestAlerter(AlerterConfig{Cooldown: time.Hour})

	_ = al.Observe(ctx, "http://10.0.0.5:8000", "ok")
	_ = al.Observe(ctx, "https://abc.ngrok-free.app", "Tunnel")
	if len(nt.titles) != 1 || !strings.Contains(nt.titles[0], "SWITCHED") {
		t.Fatalf("want switch alert, got %v", nt.titles)
	}

	rec, _ := store.Get(ctx, alertKey)
	if rec == nil || rec.LastState != "https://abc.ngrok-free.app" || rec.LastSentAt == nil {
		t.Fatalf("unexpected stored state: %+v", rec)
	}
}

func TestAlerter_NoRecoveryIfDisabled(t *testing.T) {
	ctx := context.Background()
	al, nt, _, store := newTestAlerter(AlerterConfig{AlertOnRecovery: false})

	// first observation is unreachable -> alert
	_ = al.Observe(ctx, "", "nothing")
	if len(nt.titles) != 1 {
		t.Fatalf("want one unreachable alert, got %v", nt.titles)
	}

	// comes up -> recovery off -> no alert but state recorded with send time kept
	_ = al.Observe(ctx, "http://localhost:8000", "ok")
	if len(nt.titles) != 1 {
		t.Fatalf("unexpected alert: %v", nt.titles)
	}
	rec, _ := store.Get(ctx, alertKey)
	if rec == nil || rec.LastState != "http://localhost:8000" || rec.LastSentAt == nil {
		t.Fatalf("unexpected stored state: %+v", rec)
	}
}

func TestAlerter_SendFailureStillRecordsState(t *testing.T) {
	ctx := context.Background()
	al, nt, _, store := newTestAlerter(AlerterConfig{})
	nt.err = errors.New("webhook down")

	if err := al.Observe(ctx, "", "nothing"); err != nil {
		t.Fatalf("send failure should not surface: %v", err)
	}
	rec, _ := store.Get(ctx, alertKey)
	if rec == nil || rec.LastState != "" || rec.LastSentAt == nil {
		t.Fatalf("unexpected stored state: %+v", rec)
	}
}
