package defaults

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"circles-credit-backend/internal/domain/loan"
	"circles-credit-backend/internal/domain/notification"
	"circles-credit-backend/internal/usecase/scan"
)

const msgNotDefaulted = "loan not defaulted or already handled"

type Usecase struct {
	ledger      loan.Reader
	writer      loan.Writer
	notifier    notification.Notifier
	concurrency int
	log         *slog.Logger
}

// NewUsecase accepts a nil writer; marking then fails closed.
func NewUsecase(r loan.Reader, w loan.Writer, n notification.Notifier, concurrency int, log *slog.Logger) *Usecase {
	return &Usecase{
		ledger:      r,
		writer:      w,
		notifier:    n,
		concurrency: concurrency,
		log:         log.With("component", "defaults"),
	}
}

// Check classifies one loan at the current head.
func (u *Usecase) Check(ctx context.Context, id uint64) (loan.DefaultedLoan, error) {
	at, err := u.ledger.Head(ctx)
	if err != nil {
		return loan.DefaultedLoan{}, err
	}
	_, d, err := u.detect(ctx, id, at)
	return d, err
}

// List scans every loan at one head and returns the defaulted ones.
func (u *Usecase) List(ctx context.Context) (scan.Batch[loan.DefaultedLoan], error) {
	at, err := u.ledger.Head(ctx)
	if err != nil {
		return scan.Batch[loan.DefaultedLoan]{}, err
	}
	total, err := u.ledger.TotalLoans(ctx, at)
	if err != nil {
		return scan.Batch[loan.DefaultedLoan]{}, err
	}
	return scan.Run(ctx, total, at, u.concurrency, u.checkAt, u.log), nil
}

func (u *Usecase) checkAt(ctx context.Context, id uint64, at loan.Head) (loan.DefaultedLoan, error) {
	_, d, err := u.detect(ctx, id, at)
	return d, err
}

func (u *Usecase) detect(ctx context.Context, id uint64, at loan.Head) (loan.Loan, loan.DefaultedLoan, error) {
	l, err := u.ledger.GetLoan(ctx, id, at)
	if err != nil {
		return loan.Loan{}, loan.DefaultedLoan{}, err
	}
	scan.LogRateAnomaly(u.log, l)
	if !loan.InDefaultWindow(l, at.Timestamp) {
		return l, loan.DefaultedLoan{}, loan.ErrNotApplicable
	}
	owed, err := loan.ReadOwed(ctx, u.ledger, id, at)
	if err != nil {
		return l, loan.DefaultedLoan{}, err
	}
	d, err := loan.DetectDefault(l, owed, at.Timestamp)
	return l, d, err
}

// MarkLoanAsDefaulted re-checks eligibility on a fresh head and submits the
// mark. A ledger that reports the loan as already handled counts as success.
func (u *Usecase) MarkLoanAsDefaulted(ctx context.Context, id uint64) MarkResult {
	res, _ := u.mark(ctx, id)
	return res
}

func (u *Usecase) mark(ctx context.Context, id uint64) (MarkResult, *loan.DefaultedLoan) {
	res := MarkResult{LoanID: id}
	log := u.log.With("loan_id", id)
	if u.writer == nil {
		res.Error = loan.ErrUnauthorized.Error()
		log.Warn("mark default refused", "err", loan.ErrUnauthorized)
		return res, nil
	}

	at, err := u.ledger.Head(ctx)
	if err != nil {
		res.Error = err.Error()
		return res, nil
	}
	l, d, err := u.detect(ctx, id, at)
	switch {
	case err == nil:
	case errors.Is(err, loan.ErrNotApplicable) && l.State == loan.StateDefaulted:
		res.Success, res.AlreadyHandled = true, true
		return res, nil
	case errors.Is(err, loan.ErrNotApplicable):
		res.Error = "loan is not eligible to be marked as defaulted"
		return res, nil
	default:
		res.Error = err.Error()
		log.Warn("mark default pre-check failed", "err", err)
		return res, nil
	}

	rc, err := u.writer.MarkDefaulted(ctx, id)
	switch {
	case err == nil:
		res.Success = true
		res.TransactionHash = rc.Hash.Hex()
		log.Info("loan marked as defaulted", "tx", res.TransactionHash, "block", rc.BlockNumber)
		return res, &d
	case errors.Is(err, loan.ErrAlreadyHandled):
		res.Success, res.AlreadyHandled = true, true
		log.Info("loan already defaulted on ledger")
	case errors.Is(err, loan.ErrNotYetEligible):
		res.Error = err.Error()
		log.Info("ledger rejected default as premature", "err", err)
	default:
		res.Error = err.Error()
		log.Error("mark default failed", "err", err)
	}
	return res, nil
}

// MarkAll marks every defaulted loan one at a time through the single signer.
func (u *Usecase) MarkAll(ctx context.Context, batch scan.Batch[loan.DefaultedLoan]) []MarkResult {
	out := make([]MarkResult, 0, len(batch.Items))
	for _, d := range batch.Items {
		out = append(out, u.MarkLoanAsDefaulted(ctx, d.LoanID))
	}
	return out
}

// Notify sends the default notice followed by the trust-cancellation
// recommendation. A zero recipient falls back to directory lookup.
func (u *Usecase) Notify(ctx context.Context, d loan.DefaultedLoan, recipient int64) []notification.Outcome {
	return []notification.Outcome{
		u.notifier.Dispatch(ctx, notification.LoanDefault(d).To(recipient)),
		u.notifier.Dispatch(ctx, notification.TrustCancellation(d.LoanID, d.Borrower, notification.ReasonMembershipSuspended).To(recipient)),
	}
}

// Run is the operator entry point shared by the HTTP and CLI surfaces.
func (u *Usecase) Run(ctx context.Context, req Request) (Report, error) {
	if req.Action == "" {
		req.Action = ActionCheck
	}
	if req.LoanID != 0 {
		return u.runOne(ctx, req)
	}

	batch, err := u.List(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list defaulted loans: %w", err)
	}
	rep := Report{
		Action:   req.Action,
		Block:    batch.Block,
		Scanned:  batch.Scanned,
		Count:    batch.Count,
		Failures: batch.Failures,
		Items:    make([]Item, 0, len(batch.Items)),
	}
	for _, d := range batch.Items {
		rep.Items = append(rep.Items, u.act(ctx, req, d))
	}
	return rep, nil
}

func (u *Usecase) runOne(ctx context.Context, req Request) (Report, error) {
	at, err := u.ledger.Head(ctx)
	if err != nil {
		return Report{}, err
	}
	rep := Report{Action: req.Action, Block: at.Number, Scanned: 1, Items: []Item{}}

	_, d, err := u.detect(ctx, req.LoanID, at)
	switch {
	case err == nil:
	case errors.Is(err, loan.ErrNotApplicable) && req.Action == ActionMark:
		// The mark path re-checks and reports already-defaulted loans itself.
		d = loan.DefaultedLoan{LoanID: req.LoanID}
	case errors.Is(err, loan.ErrNotApplicable):
		rep.Message = msgNotDefaulted
		return rep, nil
	default:
		rep.Failures = []scan.Failure{{LoanID: req.LoanID, Error: err.Error()}}
		return rep, nil
	}

	rep.Items = append(rep.Items, u.act(ctx, req, d))
	rep.Count = 1
	return rep, nil
}

func (u *Usecase) act(ctx context.Context, req Request, d loan.DefaultedLoan) Item {
	item := Item{LoanID: d.LoanID}
	if d.RemainingOwed != nil {
		item.Loan = &d
	}
	switch req.Action {
	case ActionNotify:
		item.Notifications = u.Notify(ctx, d, req.RecipientID)
	case ActionMark:
		res, marked := u.mark(ctx, d.LoanID)
		item.Mark = &res
		if req.NotifyOnMark && marked != nil {
			item.Notifications = u.Notify(ctx, *marked, req.RecipientID)
		}
	}
	return item
}
