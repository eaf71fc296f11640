package repo

import (
	"context"
	"time"
)

// AlertRecord holds the last backend state we saw for a key and the last time
// we sent a notification about it. LastState is the base URL in use, or ""
// when no backend was reachable; LastSentAt drives the cooldown.
type AlertRecord struct {
	Key        string
	LastState  string
	LastSentAt *time.Time
}

// AlertStore is implemented by a persistence layer to store alert state.
type AlertStore interface {
	// Get returns nil, nil if there's no record yet.
	Get(ctx context.Context, key string) (*AlertRecord, error)
	// Set upserts the record. If sentAt.IsZero() we store NULL for last_sent_at.
	Set(ctx context.Context, key, lastState string, sentAt time.Time) error
}
