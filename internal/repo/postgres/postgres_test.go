package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/endpointresolver/internal/domain"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	store, err := New(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("New store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestPostgresStore_AppendRecent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	// Unique ID per run so earlier rows don't collide.
	id := fmt.Sprintf("test-%d", time.Now().UTC().UnixNano())
	started := time.Now().UTC().Add(time.Hour)

	res := &domain.Resolution{
		ID:        id,
		StartedAt: started,
		Outcome:   domain.OutcomeResolved,
		BaseURL:   "http://192.168.1.10:8000",
		Label:     "Auto-detected (Home WiFi)",
		Source:    domain.SourceLANScan,
		Probed:    7,
	}
	if err := store.Append(ctx, res); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if res.FinishedAt.IsZero() {
		t.Fatalf("expected FinishedAt to be set")
	}

	exhausted := &domain.Resolution{
		StartedAt: started.Add(-time.Minute),
		Outcome:   domain.OutcomeExhausted,
		Probed:    3,
		Error:     "no candidate reachable",
	}
	if err := store.Append(ctx, exhausted); err != nil {
		t.Fatalf("Append exhausted: %v", err)
	}
	if exhausted.ID == "" {
		t.Fatalf("expected ID to be generated")
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(recent))
	}
	got := recent[0]
	if got.ID != id || got.BaseURL != res.BaseURL || got.Source != domain.SourceLANScan || got.Probed != 7 {
		t.Fatalf("unexpected newest row: %+v", got)
	}
	if recent[1].Outcome != domain.OutcomeExhausted || recent[1].BaseURL != "" || recent[1].Error == "" {
		t.Fatalf("unexpected exhausted row: %+v", recent[1])
	}
}
