//go:build integration

package postgres

// go test -tags=integration ./internal/repo/postgres -run AlertsCRUD -count=1

import (
	"context"
	"testing"
	"time"
)

func TestAlertsCRUD(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	key := "backend-" + time.Now().UTC().Format("150405.000000000")

	// none yet
	rec, err := store.Get(ctx, key)
	if err != nil || rec != nil {
		t.Fatalf("expected nil, got %+v err=%v", rec, err)
	}

	// set (no sent time)
	if err := store.Set(ctx, key, "http://10.0.0.5:8000", time.Time{}); err != nil {
		t.Fatalf("set: %v", err)
	}
	rec, err = store.Get(ctx, key)
	if err != nil || rec == nil || rec.LastSentAt != nil || rec.LastState != "http://10.0.0.5:8000" {
		t.Fatalf("unexpected: %+v err=%v", rec, err)
	}

	// set with sent time
	now := time.Now()
	if err := store.Set(ctx, key, "", now); err != nil {
		t.Fatalf("set2: %v", err)
	}
	rec, err = store.Get(ctx, key)
	if err != nil || rec == nil || rec.LastSentAt == nil || rec.LastState != "" {
		t.Fatalf("unexpected2: %+v err=%v", rec, err)
	}
}
