package grace

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"circles-credit-backend/internal/domain/loan"
	"circles-credit-backend/internal/domain/notification"
	"circles-credit-backend/internal/testutil/ledgermock"
	"circles-credit-backend/internal/testutil/notifymock"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func borrowerOf(id uint64) common.Address { return common.BigToAddress(new(big.Int).SetUint64(1000 + id)) }

func funded(id, deadline, graceEnd uint64) loan.Loan {
	return loan.Loan{
		ID:                id,
		Borrower:          borrowerOf(id),
		AmountRequested:   big.NewInt(100),
		InterestRate:      500,
		VoucherCount:      3,
		RepaymentDeadline: deadline,
		GracePeriodEnd:    graceEnd,
		State:             loan.StateFunded,
	}
}

// now=1000; remaining owed is 100 unless noted.
//  1 in grace, balance 150 -> full
//  2 in grace, balance 40  -> partial
//  3 deadline == now, balance 0 -> insufficient
//  4 grace ended at now    -> default, n/a
//  5 read failure
//  6 not yet due           -> n/a
//  7 in grace, fully repaid -> n/a
func book() *ledgermock.Book {
	b := &ledgermock.Book{
		Head: loan.Head{Number: 12, Timestamp: 1000},
		Loans: map[uint64]loan.Loan{
			1: funded(1, 500, 1500),
			2: funded(2, 500, 1500),
			3: funded(3, 1000, 2000),
			4: funded(4, 500, 1000),
			6: funded(6, 1001, 2000),
			7: funded(7, 500, 1500),
		},
		Owed:   map[uint64]*big.Int{},
		Repaid: map[uint64]*big.Int{7: big.NewInt(105)},
		Balances: map[common.Address]*big.Int{
			borrowerOf(1): big.NewInt(150),
			borrowerOf(2): big.NewInt(40),
		},
		Fail: map[uint64]error{5: loan.ErrRead},
	}
	for id := range b.Loans {
		b.Owed[id] = big.NewInt(105)
		if b.Repaid[id] == nil {
			b.Repaid[id] = big.NewInt(5)
		}
	}
	return b
}

func TestCheck(t *testing.T) {
	u := NewUsecase(book().Reader(), &notifymock.Notifier{}, 2, discard())
	ctx := context.Background()

	g, err := u.Check(ctx, 3)
	if err != nil {
		t.Fatalf("Check(3): %v", err)
	}
	if g.GracePeriodRemaining != 1000 || g.RemainingOwed.Int64() != 100 || g.BorrowerBalance.Sign() != 0 {
		t.Fatalf("unexpected %+v", g)
	}

	for _, id := range []uint64{4, 6, 7} {
		if _, err := u.Check(ctx, id); !errors.Is(err, loan.ErrNotApplicable) {
			t.Fatalf("Check(%d) = %v, want ErrNotApplicable", id, err)
		}
	}
}

func TestCheck_RepaidLoanSkipsBalanceRead(t *testing.T) {
	r := book().Reader()
	r.TokenBalanceFn = func(context.Context, common.Address, loan.Head) (*big.Int, error) {
		t.Fatalf("balance read for a repaid loan")
		return nil, nil
	}
	u := NewUsecase(r, &notifymock.Notifier{}, 1, discard())
	if _, err := u.Check(context.Background(), 7); !errors.Is(err, loan.ErrNotApplicable) {
		t.Fatalf("Check(7) = %v", err)
	}
}

func TestCheck_BalanceReadFailure(t *testing.T) {
	r := book().Reader()
	r.TokenBalanceFn = func(context.Context, common.Address, loan.Head) (*big.Int, error) {
		return nil, loan.ErrRead
	}
	u := NewUsecase(r, &notifymock.Notifier{}, 1, discard())
	if _, err := u.Check(context.Background(), 1); !errors.Is(err, loan.ErrRead) {
		t.Fatalf("Check(1) = %v, want ErrRead", err)
	}
}

func TestList(t *testing.T) {
	u := NewUsecase(book().Reader(), &notifymock.Notifier{}, 3, discard())
	batch, err := u.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var ids []uint64
	for _, g := range batch.Items {
		ids = append(ids, g.LoanID)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Fatalf("ids = %v", ids)
	}
	if len(batch.Failures) != 1 || batch.Failures[0].LoanID != 5 {
		t.Fatalf("failures = %+v", batch.Failures)
	}
}

func TestAttemptCollection(t *testing.T) {
	u := NewUsecase(book().Reader(), &notifymock.Notifier{}, 1, discard())
	ctx := context.Background()

	tests := []struct {
		id         uint64
		wantStatus loan.CollectionStatus
		wantOK     bool
		wantAmount int64
	}{
		{id: 1, wantStatus: loan.CollectionFull, wantOK: true, wantAmount: 100},
		{id: 2, wantStatus: loan.CollectionPartial, wantOK: true, wantAmount: 40},
		{id: 3, wantStatus: loan.CollectionInsufficient},
	}
	for _, tt := range tests {
		res := u.AttemptCollection(ctx, tt.id)
		if res.Status != tt.wantStatus || res.Success != tt.wantOK || res.CanRepay != tt.wantOK {
			t.Fatalf("loan %d: %+v", tt.id, res)
		}
		if tt.wantOK && res.RepaymentAmount.Int64() != tt.wantAmount {
			t.Fatalf("loan %d amount = %s", tt.id, res.RepaymentAmount)
		}
		if !tt.wantOK && res.RepaymentAmount != nil {
			t.Fatalf("loan %d: insufficient must not carry an amount", tt.id)
		}
	}

	if res := u.AttemptCollection(ctx, 4); res.Success || res.Message != msgNotInGrace {
		t.Fatalf("defaulted loan: %+v", res)
	}
	if res := u.AttemptCollection(ctx, 5); res.Success || res.Message == "" {
		t.Fatalf("read failure: %+v", res)
	}
}

func TestRun_NotifyAll(t *testing.T) {
	n := &notifymock.Notifier{}
	u := NewUsecase(book().Reader(), n, 2, discard())
	rep, err := u.Run(context.Background(), Request{Action: ActionNotify, RecipientID: 8})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Count != 3 || len(n.Sent()) != 3 {
		t.Fatalf("count=%d sent=%d", rep.Count, len(n.Sent()))
	}
	first := n.Sent()[0]
	if first.Kind != notification.KindGracePeriodWarning || first.RecipientID != 8 || first.LoanID != 1 {
		t.Fatalf("first = %+v", first)
	}
	if first.Payload.GraceRemaining != "0.01 days" {
		t.Fatalf("GraceRemaining = %q", first.Payload.GraceRemaining)
	}
}

func TestRun_Single(t *testing.T) {
	u := NewUsecase(book().Reader(), &notifymock.Notifier{}, 1, discard())
	ctx := context.Background()

	rep, err := u.Run(ctx, Request{LoanID: 2, Action: ActionCollect})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Count != 1 || rep.Items[0].Collection == nil || rep.Items[0].Collection.Status != loan.CollectionPartial {
		t.Fatalf("report = %+v", rep)
	}

	rep, err = u.Run(ctx, Request{LoanID: 6})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Count != 0 || rep.Message != msgNotInGrace {
		t.Fatalf("report = %+v", rep)
	}

	rep, err = u.Run(ctx, Request{LoanID: 5})
	if err != nil || len(rep.Failures) != 1 {
		t.Fatalf("report = %+v, err = %v", rep, err)
	}
}
