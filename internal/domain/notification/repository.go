package notification

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, d *Delivery) error
	ListByLoan(ctx context.Context, loanID uint64, limit int) ([]Delivery, error)
}

// Deduper claims a key for ttl so the same notification is not sent twice
// by overlapping scans or re-processed log ranges.
type Deduper interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Notifier delivers one notification. Failures are reported in the Outcome.
type Notifier interface {
	Dispatch(ctx context.Context, n Notification) Outcome
}
