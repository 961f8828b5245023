// Package scan fans an evaluation out over every loan id known to the ledger.
package scan

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"circles-credit-backend/internal/domain/loan"
)

// DefaultConcurrency bounds in-flight per-loan evaluations when the caller
// passes a non-positive limit.
const DefaultConcurrency = 8

// Failure is a loan that could not be evaluated. It never aborts the batch.
type Failure struct {
	LoanID uint64 `json:"loan_id"`
	Error  string `json:"error"`
}

// Batch is the outcome of one full scan at one pinned head.
type Batch[T any] struct {
	Block    uint64    `json:"block_number"`
	Scanned  uint64    `json:"scanned"`
	Count    int       `json:"count"`
	Items    []T       `json:"items"`
	Failures []Failure `json:"failures,omitempty"`
}

// Evaluate classifies one loan. Returning loan.ErrNotApplicable filters the
// loan out; any other error is recorded as a Failure.
type Evaluate[T any] func(ctx context.Context, id uint64, at loan.Head) (T, error)

// Run evaluates loans 1..total concurrently, at most limit at a time, and
// returns the applicable ones in ascending id order.
func Run[T any](ctx context.Context, total uint64, at loan.Head, limit int, eval Evaluate[T], log *slog.Logger) Batch[T] {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	type slot struct {
		item T
		err  error
	}
	slots := make([]slot, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for id := uint64(1); id <= total; id++ {
		g.Go(func() error {
			item, err := eval(gctx, id, at)
			slots[id-1] = slot{item: item, err: err}
			return nil
		})
	}
	_ = g.Wait()

	out := Batch[T]{Block: at.Number, Scanned: total, Items: make([]T, 0)}
	for i, s := range slots {
		id := uint64(i + 1)
		switch {
		case s.err == nil:
			out.Items = append(out.Items, s.item)
		case errors.Is(s.err, loan.ErrNotApplicable):
		default:
			log.Warn("loan skipped", "loan_id", id, "block", at.Number, "err", s.err)
			out.Failures = append(out.Failures, Failure{LoanID: id, Error: s.err.Error()})
		}
	}
	out.Count = len(out.Items)
	return out
}

// LogRateAnomaly records a stored interest rate that disagrees with the
// voucher-count tier. The stored rate stays authoritative.
func LogRateAnomaly(log *slog.Logger, l loan.Loan) {
	if expected, ok := l.RateAnomaly(); ok {
		log.Warn("interest rate disagrees with voucher tier",
			"loan_id", l.ID,
			"voucher_count", l.VoucherCount,
			"stored_bps", uint64(l.InterestRate),
			"expected_bps", uint64(expected),
		)
	}
}
