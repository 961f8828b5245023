package loan

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Reader is read access to the lending market. Every read takes the Head it
// is pinned to so one evaluation never mixes block heights.
type Reader interface {
	Head(ctx context.Context) (Head, error)
	TotalLoans(ctx context.Context, at Head) (uint64, error)
	GetLoan(ctx context.Context, id uint64, at Head) (Loan, error)
	AmountRepaid(ctx context.Context, id uint64, at Head) (*big.Int, error)
	TotalOwed(ctx context.Context, id uint64, at Head) (*big.Int, error)
	TokenBalance(ctx context.Context, account common.Address, at Head) (*big.Int, error)
	InterestRate(ctx context.Context, voucherCount uint64, at Head) (Bps, error)
}

// Writer submits state-changing calls and waits for their receipts.
type Writer interface {
	MarkDefaulted(ctx context.Context, id uint64) (TxReceipt, error)
	SetVouchingDeadline(ctx context.Context, id, deadline uint64) (TxReceipt, error)
	SetRepaymentDeadline(ctx context.Context, id, deadline uint64) (TxReceipt, error)
	SetGracePeriod(ctx context.Context, id, period uint64) (TxReceipt, error)
}

// ReadOwed fetches total owed and amount repaid at the same block.
func ReadOwed(ctx context.Context, r Reader, id uint64, at Head) (Owed, error) {
	total, err := r.TotalOwed(ctx, id, at)
	if err != nil {
		return Owed{}, err
	}
	repaid, err := r.AmountRepaid(ctx, id, at)
	if err != nil {
		return Owed{}, err
	}
	return Owed{Total: total, Repaid: repaid}, nil
}
