package repo

import (
	"context"

	"github.com/hamed0406/endpointresolver/internal/domain"
)

// HistoryStore keeps an append-only log of resolution cycles. It is an audit
// trail only; the resolved endpoint itself is never loaded from it.
type HistoryStore interface {
	Append(ctx context.Context, r *domain.Resolution) error
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]domain.Resolution, error)
}
