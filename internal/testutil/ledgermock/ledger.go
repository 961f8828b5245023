package ledgermock

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	domain "circles-credit-backend/internal/domain/loan"
)

var errNotImplemented = errors.New("ledgermock: not implemented")

// Reader is a function-backed mock that satisfies domain.Reader.
type Reader struct {
	HeadFn         func(ctx context.Context) (domain.Head, error)
	TotalLoansFn   func(ctx context.Context, at domain.Head) (uint64, error)
	GetLoanFn      func(ctx context.Context, id uint64, at domain.Head) (domain.Loan, error)
	AmountRepaidFn func(ctx context.Context, id uint64, at domain.Head) (*big.Int, error)
	TotalOwedFn    func(ctx context.Context, id uint64, at domain.Head) (*big.Int, error)
	TokenBalanceFn func(ctx context.Context, account common.Address, at domain.Head) (*big.Int, error)
	InterestRateFn func(ctx context.Context, voucherCount uint64, at domain.Head) (domain.Bps, error)
}

func (m *Reader) Head(ctx context.Context) (domain.Head, error) {
	if m.HeadFn != nil {
		return m.HeadFn(ctx)
	}
	return domain.Head{}, errNotImplemented
}

func (m *Reader) TotalLoans(ctx context.Context, at domain.Head) (uint64, error) {
	if m.TotalLoansFn != nil {
		return m.TotalLoansFn(ctx, at)
	}
	return 0, nil
}

func (m *Reader) GetLoan(ctx context.Context, id uint64, at domain.Head) (domain.Loan, error) {
	if m.GetLoanFn != nil {
		return m.GetLoanFn(ctx, id, at)
	}
	return domain.Loan{}, domain.ErrNotFound
}

func (m *Reader) AmountRepaid(ctx context.Context, id uint64, at domain.Head) (*big.Int, error) {
	if m.AmountRepaidFn != nil {
		return m.AmountRepaidFn(ctx, id, at)
	}
	return new(big.Int), nil
}

func (m *Reader) TotalOwed(ctx context.Context, id uint64, at domain.Head) (*big.Int, error) {
	if m.TotalOwedFn != nil {
		return m.TotalOwedFn(ctx, id, at)
	}
	return new(big.Int), nil
}

func (m *Reader) TokenBalance(ctx context.Context, account common.Address, at domain.Head) (*big.Int, error) {
	if m.TokenBalanceFn != nil {
		return m.TokenBalanceFn(ctx, account, at)
	}
	return new(big.Int), nil
}

func (m *Reader) InterestRate(ctx context.Context, voucherCount uint64, at domain.Head) (domain.Bps, error) {
	if m.InterestRateFn != nil {
		return m.InterestRateFn(ctx, voucherCount, at)
	}
	return domain.InterestRateTier(voucherCount), nil
}

// Writer is a function-backed mock that satisfies domain.Writer.
type Writer struct {
	MarkDefaultedFn        func(ctx context.Context, id uint64) (domain.TxReceipt, error)
	SetVouchingDeadlineFn  func(ctx context.Context, id, deadline uint64) (domain.TxReceipt, error)
	SetRepaymentDeadlineFn func(ctx context.Context, id, deadline uint64) (domain.TxReceipt, error)
	SetGracePeriodFn       func(ctx context.Context, id, period uint64) (domain.TxReceipt, error)
}

func (m *Writer) MarkDefaulted(ctx context.Context, id uint64) (domain.TxReceipt, error) {
	if m.MarkDefaultedFn != nil {
		return m.MarkDefaultedFn(ctx, id)
	}
	return domain.TxReceipt{}, errNotImplemented
}

func (m *Writer) SetVouchingDeadline(ctx context.Context, id, deadline uint64) (domain.TxReceipt, error) {
	if m.SetVouchingDeadlineFn != nil {
		return m.SetVouchingDeadlineFn(ctx, id, deadline)
	}
	return domain.TxReceipt{}, errNotImplemented
}

func (m *Writer) SetRepaymentDeadline(ctx context.Context, id, deadline uint64) (domain.TxReceipt, error) {
	if m.SetRepaymentDeadlineFn != nil {
		return m.SetRepaymentDeadlineFn(ctx, id, deadline)
	}
	return domain.TxReceipt{}, errNotImplemented
}

func (m *Writer) SetGracePeriod(ctx context.Context, id, period uint64) (domain.TxReceipt, error) {
	if m.SetGracePeriodFn != nil {
		return m.SetGracePeriodFn(ctx, id, period)
	}
	return domain.TxReceipt{}, errNotImplemented
}

// Book is a fixed set of loans served through a Reader. Amounts are keyed by
// loan id; balances by borrower.
type Book struct {
	Head     domain.Head
	Loans    map[uint64]domain.Loan
	Owed     map[uint64]*big.Int
	Repaid   map[uint64]*big.Int
	Balances map[common.Address]*big.Int
	// Fail makes every read of the listed loan ids fail.
	Fail map[uint64]error
}

// Reader wires the book into a mock; individual Fn fields can still be
// replaced afterwards.
func (b *Book) Reader() *Reader {
	return &Reader{
		HeadFn: func(context.Context) (domain.Head, error) { return b.Head, nil },
		TotalLoansFn: func(context.Context, domain.Head) (uint64, error) {
			var max uint64
			for id := range b.Loans {
				if id > max {
					max = id
				}
			}
			for id := range b.Fail {
				if id > max {
					max = id
				}
			}
			return max, nil
		},
		GetLoanFn: func(_ context.Context, id uint64, _ domain.Head) (domain.Loan, error) {
			if err := b.Fail[id]; err != nil {
				return domain.Loan{}, err
			}
			l, ok := b.Loans[id]
			if !ok {
				return domain.Loan{}, domain.ErrNotFound
			}
			return l, nil
		},
		TotalOwedFn: func(_ context.Context, id uint64, _ domain.Head) (*big.Int, error) {
			return valueOrZero(b.Owed[id]), nil
		},
		AmountRepaidFn: func(_ context.Context, id uint64, _ domain.Head) (*big.Int, error) {
			return valueOrZero(b.Repaid[id]), nil
		},
		TokenBalanceFn: func(_ context.Context, account common.Address, _ domain.Head) (*big.Int, error) {
			return valueOrZero(b.Balances[account]), nil
		},
	}
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
