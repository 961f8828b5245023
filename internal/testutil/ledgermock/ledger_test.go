package ledgermock

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	domain "circles-credit-backend/internal/domain/loan"
)

func TestReader_Defaults(t *testing.T) {
	ctx := context.Background()
	m := &Reader{}

	if _, err := m.Head(ctx); err == nil {
		t.Fatalf("Head default: want error")
	}
	if _, err := m.GetLoan(ctx, 1, domain.Head{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetLoan default: want ErrNotFound, got %v", err)
	}
	if r, err := m.InterestRate(ctx, 8, domain.Head{}); err != nil || r != 250 {
		t.Fatalf("InterestRate default = %d, %v", r, err)
	}
}

func TestWriter_UsesProvidedFunc(t *testing.T) {
	ctx := context.Background()
	called := false
	m := &Writer{
		MarkDefaultedFn: func(gotCtx context.Context, id uint64) (domain.TxReceipt, error) {
			called = true
			if gotCtx != ctx || id != 3 {
				t.Fatalf("MarkDefaulted args mismatch")
			}
			return domain.TxReceipt{BlockNumber: 9}, nil
		},
	}
	rc, err := m.MarkDefaulted(ctx, 3)
	if err != nil || rc.BlockNumber != 9 || !called {
		t.Fatalf("MarkDefaulted = %+v, %v (called=%v)", rc, err, called)
	}
	if _, err := (&Writer{}).SetGracePeriod(ctx, 1, 2); err == nil {
		t.Fatalf("SetGracePeriod default: want error")
	}
}

func TestBook_Reader(t *testing.T) {
	ctx := context.Background()
	who := common.HexToAddress("0x01")
	boom := errors.New("rpc down")
	b := &Book{
		Head:     domain.Head{Number: 10, Timestamp: 1000},
		Loans:    map[uint64]domain.Loan{1: {ID: 1, Borrower: who}},
		Owed:     map[uint64]*big.Int{1: big.NewInt(5)},
		Balances: map[common.Address]*big.Int{who: big.NewInt(7)},
		Fail:     map[uint64]error{4: boom},
	}
	r := b.Reader()

	if n, _ := r.TotalLoans(ctx, b.Head); n != 4 {
		t.Fatalf("TotalLoans = %d, want 4", n)
	}
	if _, err := r.GetLoan(ctx, 4, b.Head); !errors.Is(err, boom) {
		t.Fatalf("GetLoan(4) = %v, want %v", err, boom)
	}
	if _, err := r.GetLoan(ctx, 2, b.Head); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetLoan(2) = %v, want ErrNotFound", err)
	}
	owed, _ := r.TotalOwed(ctx, 1, b.Head)
	owed.SetInt64(99)
	if again, _ := r.TotalOwed(ctx, 1, b.Head); again.Int64() != 5 {
		t.Fatalf("book value was mutated through a returned pointer")
	}
	if bal, _ := r.TokenBalance(ctx, who, b.Head); bal.Int64() != 7 {
		t.Fatalf("TokenBalance = %s", bal)
	}
}
