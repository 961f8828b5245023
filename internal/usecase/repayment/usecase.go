package repayment

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"circles-credit-backend/internal/domain/loan"
	"circles-credit-backend/internal/usecase/scan"
	"circles-credit-backend/pkg/units"
)

type Usecase struct {
	ledger      loan.Reader
	encoder     Encoder
	concurrency int
	log         *slog.Logger
}

// NewUsecase accepts a nil encoder; instructions then carry no calldata.
func NewUsecase(r loan.Reader, enc Encoder, concurrency int, log *slog.Logger) *Usecase {
	return &Usecase{ledger: r, encoder: enc, concurrency: concurrency, log: log.With("component", "repayment")}
}

func (u *Usecase) Check(ctx context.Context, id uint64) (loan.AutoRepaymentCheck, error) {
	at, err := u.ledger.Head(ctx)
	if err != nil {
		return loan.AutoRepaymentCheck{}, err
	}
	return u.checkAt(ctx, id, at)
}

func (u *Usecase) checkAt(ctx context.Context, id uint64, at loan.Head) (loan.AutoRepaymentCheck, error) {
	l, err := u.ledger.GetLoan(ctx, id, at)
	if err != nil {
		return loan.AutoRepaymentCheck{}, err
	}
	scan.LogRateAnomaly(u.log, l)
	if !loan.PastDue(l, at.Timestamp) {
		return loan.AutoRepaymentCheck{}, loan.ErrNotApplicable
	}
	owed, err := loan.ReadOwed(ctx, u.ledger, id, at)
	if err != nil {
		return loan.AutoRepaymentCheck{}, err
	}
	if owed.Remaining().Sign() == 0 {
		return loan.AutoRepaymentCheck{}, loan.ErrNotApplicable
	}
	balance, err := u.ledger.TokenBalance(ctx, l.Borrower, at)
	if err != nil {
		return loan.AutoRepaymentCheck{}, err
	}
	return loan.CheckAutoRepayment(l, owed, balance, at.Timestamp)
}

// eligibleAt keeps only loans the borrower could repay at least in part.
func (u *Usecase) eligibleAt(ctx context.Context, id uint64, at loan.Head) (loan.AutoRepaymentCheck, error) {
	c, err := u.checkAt(ctx, id, at)
	if err != nil {
		return c, err
	}
	if !c.CanRepay() {
		return loan.AutoRepaymentCheck{}, loan.ErrNotApplicable
	}
	return c, nil
}

// List returns past-due loans whose borrower holds a repayable balance.
func (u *Usecase) List(ctx context.Context) (scan.Batch[loan.AutoRepaymentCheck], error) {
	at, err := u.ledger.Head(ctx)
	if err != nil {
		return scan.Batch[loan.AutoRepaymentCheck]{}, err
	}
	total, err := u.ledger.TotalLoans(ctx, at)
	if err != nil {
		return scan.Batch[loan.AutoRepaymentCheck]{}, err
	}
	return scan.Run(ctx, total, at, u.concurrency, u.eligibleAt, u.log), nil
}

// Run lists eligible loans with a prepared instruction for each.
func (u *Usecase) Run(ctx context.Context) (Report, error) {
	batch, err := u.List(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list repayable loans: %w", err)
	}
	rep := Report{
		Block:    batch.Block,
		Scanned:  batch.Scanned,
		Failures: batch.Failures,
		Items:    make([]Item, 0, len(batch.Items)),
	}
	for _, c := range batch.Items {
		tx, err := PrepareRepaymentTransaction(c, u.encoder)
		if err != nil {
			rep.Failures = append(rep.Failures, scan.Failure{LoanID: c.LoanID, Error: err.Error()})
			continue
		}
		rep.Items = append(rep.Items, Item{Check: c, Transaction: tx, Formatted: FormatCheck(c)})
	}
	rep.Count = len(rep.Items)
	return rep, nil
}

// Prepare checks one loan and builds its instruction.
func (u *Usecase) Prepare(ctx context.Context, id uint64) (Item, error) {
	c, err := u.Check(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if !c.CanRepay() {
		return Item{}, ErrInsufficientBalance
	}
	tx, err := PrepareRepaymentTransaction(c, u.encoder)
	if err != nil {
		return Item{}, err
	}
	return Item{Check: c, Transaction: tx, Formatted: FormatCheck(c)}, nil
}

// PrepareRepaymentTransaction never signs or submits anything and returns
// the same instruction for the same check.
func PrepareRepaymentTransaction(c loan.AutoRepaymentCheck, enc Encoder) (RepaymentInstruction, error) {
	tx := RepaymentInstruction{
		LoanID:   c.LoanID,
		Amount:   new(big.Int).Set(orZero(c.RepaymentAmount)),
		Borrower: c.Borrower,
	}
	if enc == nil {
		return tx, nil
	}
	to, data, err := enc.EncodeRepay(c.LoanID, tx.Amount)
	if err != nil {
		return RepaymentInstruction{}, fmt.Errorf("encode repayment for loan %d: %w", c.LoanID, err)
	}
	tx.To = &to
	tx.Data = data
	return tx, nil
}

// FormatCheck renders a check for operator logs.
func FormatCheck(c loan.AutoRepaymentCheck) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Loan ID: %d\n", c.LoanID)
	fmt.Fprintf(&b, "Borrower: %s\n", c.Borrower.Hex())
	fmt.Fprintf(&b, "Total Owed: %s CRC\n", units.FormatToken(c.TotalOwed))
	fmt.Fprintf(&b, "Amount Repaid: %s CRC\n", units.FormatToken(c.AmountRepaid))
	fmt.Fprintf(&b, "Remaining Owed: %s CRC\n", units.FormatToken(c.RemainingOwed))
	fmt.Fprintf(&b, "Borrower Balance: %s CRC\n", units.FormatToken(c.BorrowerBalance))
	fmt.Fprintf(&b, "Can Repay Full: %t\n", c.CanRepayFull)
	fmt.Fprintf(&b, "Can Repay Partial: %t\n", c.CanRepayPartial)
	fmt.Fprintf(&b, "Repayment Amount: %s CRC", units.FormatToken(c.RepaymentAmount))
	return b.String()
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
