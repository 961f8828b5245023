package grace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"circles-credit-backend/internal/domain/loan"
	"circles-credit-backend/internal/domain/notification"
	"circles-credit-backend/internal/usecase/scan"
)

const msgNotInGrace = "loan not in grace period or already handled"

type Usecase struct {
	ledger      loan.Reader
	notifier    notification.Notifier
	concurrency int
	log         *slog.Logger
}

func NewUsecase(r loan.Reader, n notification.Notifier, concurrency int, log *slog.Logger) *Usecase {
	return &Usecase{ledger: r, notifier: n, concurrency: concurrency, log: log.With("component", "grace")}
}

func (u *Usecase) Check(ctx context.Context, id uint64) (loan.GracePeriodLoan, error) {
	at, err := u.ledger.Head(ctx)
	if err != nil {
		return loan.GracePeriodLoan{}, err
	}
	return u.checkAt(ctx, id, at)
}

// List returns every loan between its missed deadline and its hard default.
func (u *Usecase) List(ctx context.Context) (scan.Batch[loan.GracePeriodLoan], error) {
	at, err := u.ledger.Head(ctx)
	if err != nil {
		return scan.Batch[loan.GracePeriodLoan]{}, err
	}
	total, err := u.ledger.TotalLoans(ctx, at)
	if err != nil {
		return scan.Batch[loan.GracePeriodLoan]{}, err
	}
	return scan.Run(ctx, total, at, u.concurrency, u.checkAt, u.log), nil
}

func (u *Usecase) checkAt(ctx context.Context, id uint64, at loan.Head) (loan.GracePeriodLoan, error) {
	l, err := u.ledger.GetLoan(ctx, id, at)
	if err != nil {
		return loan.GracePeriodLoan{}, err
	}
	scan.LogRateAnomaly(u.log, l)
	if !loan.InGraceWindow(l, at.Timestamp) {
		return loan.GracePeriodLoan{}, loan.ErrNotApplicable
	}
	owed, err := loan.ReadOwed(ctx, u.ledger, id, at)
	if err != nil {
		return loan.GracePeriodLoan{}, err
	}
	if owed.Remaining().Sign() == 0 {
		return loan.GracePeriodLoan{}, loan.ErrNotApplicable
	}
	balance, err := u.ledger.TokenBalance(ctx, l.Borrower, at)
	if err != nil {
		return loan.GracePeriodLoan{}, err
	}
	return loan.DetectGracePeriod(l, owed, balance, at.Timestamp)
}

// AttemptCollection re-reads the borrower's balance and classifies what
// could be collected right now.
func (u *Usecase) AttemptCollection(ctx context.Context, id uint64) CollectionResult {
	res := CollectionResult{LoanID: id}
	g, err := u.Check(ctx, id)
	switch {
	case errors.Is(err, loan.ErrNotApplicable):
		res.Message = msgNotInGrace
		return res
	case err != nil:
		res.Message = err.Error()
		u.log.Warn("collection check failed", "loan_id", id, "err", err)
		return res
	}
	return collect(g)
}

func collect(g loan.GracePeriodLoan) CollectionResult {
	res := CollectionResult{LoanID: g.LoanID, Status: loan.ClassifyCollection(g.RemainingOwed, g.BorrowerBalance)}
	switch res.Status {
	case loan.CollectionFull:
		res.Success, res.CanRepay = true, true
		res.RepaymentAmount = g.RemainingOwed
		res.Message = "borrower has sufficient balance for full repayment"
	case loan.CollectionPartial:
		res.Success, res.CanRepay = true, true
		res.RepaymentAmount = g.BorrowerBalance
		res.Message = "borrower has partial balance available"
	default:
		res.Message = "borrower has insufficient balance"
	}
	return res
}

// Notify warns the borrower how long is left before the loan defaults.
func (u *Usecase) Notify(ctx context.Context, g loan.GracePeriodLoan, recipient int64) notification.Outcome {
	return u.notifier.Dispatch(ctx, notification.GracePeriodWarning(g).To(recipient))
}

func (u *Usecase) Run(ctx context.Context, req Request) (Report, error) {
	if req.Action == "" {
		req.Action = ActionCheck
	}
	if req.LoanID != 0 {
		at, err := u.ledger.Head(ctx)
		if err != nil {
			return Report{}, err
		}
		rep := Report{Action: req.Action, Block: at.Number, Scanned: 1, Items: []Item{}}
		g, err := u.checkAt(ctx, req.LoanID, at)
		switch {
		case errors.Is(err, loan.ErrNotApplicable):
			rep.Message = msgNotInGrace
			return rep, nil
		case err != nil:
			rep.Failures = []scan.Failure{{LoanID: req.LoanID, Error: err.Error()}}
			return rep, nil
		}
		rep.Items = append(rep.Items, u.act(ctx, req, g))
		rep.Count = 1
		return rep, nil
	}

	batch, err := u.List(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list grace-period loans: %w", err)
	}
	rep := Report{
		Action:   req.Action,
		Block:    batch.Block,
		Scanned:  batch.Scanned,
		Count:    batch.Count,
		Failures: batch.Failures,
		Items:    make([]Item, 0, len(batch.Items)),
	}
	for _, g := range batch.Items {
		rep.Items = append(rep.Items, u.act(ctx, req, g))
	}
	return rep, nil
}

func (u *Usecase) act(ctx context.Context, req Request, g loan.GracePeriodLoan) Item {
	item := Item{LoanID: g.LoanID, Loan: &g}
	switch req.Action {
	case ActionNotify:
		item.Notifications = []notification.Outcome{u.Notify(ctx, g, req.RecipientID)}
	case ActionCollect:
		c := collect(g)
		item.Collection = &c
	}
	return item
}
