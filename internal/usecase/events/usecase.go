package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"circles-credit-backend/internal/domain/event"
	"circles-credit-backend/internal/domain/loan"
	"circles-credit-backend/internal/domain/notification"
)

const (
	DefaultLookback      = 1000
	DefaultMaxBlockRange = 5000
	DefaultCursorName    = "lending-market"
)

type Options struct {
	Lookback      uint64
	MaxBlockRange uint64
	CursorName    string
}

type Usecase struct {
	ledger   loan.Reader
	logs     LogSource
	decoder  Decoder
	cursors  event.CursorRepository
	notifier notification.Notifier
	opts     Options
	log      *slog.Logger
}

// NewUsecase accepts a nil cursor repository; ranges then default to the
// lookback window and progress is not recorded.
func NewUsecase(r loan.Reader, logs LogSource, dec Decoder, cursors event.CursorRepository, n notification.Notifier, opts Options, log *slog.Logger) *Usecase {
	if opts.Lookback == 0 {
		opts.Lookback = DefaultLookback
	}
	if opts.MaxBlockRange == 0 {
		opts.MaxBlockRange = DefaultMaxBlockRange
	}
	if opts.CursorName == "" {
		opts.CursorName = DefaultCursorName
	}
	return &Usecase{
		ledger:   r,
		logs:     logs,
		decoder:  dec,
		cursors:  cursors,
		notifier: n,
		opts:     opts,
		log:      log.With("component", "events"),
	}
}

// Listen fetches, decodes and processes every lending-market log in the
// range. A failed fetch stops the run; logs already handled stay handled and
// the cursor only covers complete chunks. The cursor never moves past an
// event that failed to process, and only advances over chunks contiguous
// with it.
func (u *Usecase) Listen(ctx context.Context, r Range) (ListenResult, error) {
	head, err := u.ledger.Head(ctx)
	if err != nil {
		return ListenResult{}, err
	}

	stored, err := u.storedCursor(ctx)
	if err != nil {
		return ListenResult{}, err
	}

	to := r.To
	if to == 0 || to > head.Number {
		to = head.Number
	}
	from := r.From
	if from == 0 {
		switch {
		case stored > 0:
			from = stored + 1
		case head.Number > u.opts.Lookback:
			from = head.Number - u.opts.Lookback
		default:
			from = 1
		}
	}

	res := ListenResult{From: from, To: to, Events: []Processed{}}
	if from > to {
		u.log.Debug("no new blocks", "from", from, "to", to)
		return res, nil
	}

	held := false
	for start := from; start <= to; {
		end := min(start+u.opts.MaxBlockRange-1, to)
		first := len(res.Events)
		logs, err := u.logs.FilterLogs(ctx, start, end)
		if err != nil {
			return res, fmt.Errorf("fetch logs %d-%d: %w", start, end, err)
		}
		res.Logs += len(logs)

		for _, lg := range logs {
			ev, err := u.decoder.Decode(lg)
			if err != nil {
				res.Ignored++
				u.log.Debug("log ignored", "block", lg.BlockNumber, "tx", lg.TxHash.Hex(), "err", err)
				continue
			}
			res.Decoded++
			res.Events = append(res.Events, u.process(ctx, ev, r.RecipientID, head))
		}

		mark := end
		if b, ok := firstFailure(res.Events[first:]); ok {
			mark = max(b, 1) - 1
		}
		if !held && u.cursors != nil && (stored == 0 || start <= stored+1) && mark > stored {
			if err := u.cursors.Save(ctx, &event.Cursor{Name: u.opts.CursorName, BlockNumber: mark}); err != nil {
				u.log.Error("cursor save failed", "block", mark, "err", err)
			} else {
				stored = mark
				res.Cursor = mark
			}
		}
		if mark < end {
			if !held {
				u.log.Warn("cursor held before failed event", "block", mark+1)
			}
			held = true
		}
		if end == to {
			break
		}
		start = end + 1
	}

	u.log.Info("event range processed",
		"from", res.From, "to", res.To, "logs", res.Logs, "decoded", res.Decoded, "ignored", res.Ignored)
	return res, nil
}

// firstFailure returns the block of the first event that failed to process.
func firstFailure(events []Processed) (uint64, bool) {
	for _, p := range events {
		if p.Error != "" {
			return p.BlockNumber, true
		}
	}
	return 0, false
}

func (u *Usecase) storedCursor(ctx context.Context) (uint64, error) {
	if u.cursors == nil {
		return 0, nil
	}
	c, err := u.cursors.Get(ctx, u.opts.CursorName)
	if errors.Is(err, event.ErrNoCursor) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load cursor: %w", err)
	}
	return c.BlockNumber, nil
}

// Process reacts to one decoded event with reads pinned to the current head.
func (u *Usecase) Process(ctx context.Context, ev event.Event, recipient int64) Processed {
	head, err := u.ledger.Head(ctx)
	if err != nil {
		m := ev.Meta()
		return Processed{Name: ev.Name(), LoanID: ev.LoanID(), BlockNumber: m.BlockNumber, Ref: m.Ref(), Error: err.Error()}
	}
	return u.process(ctx, ev, recipient, head)
}

func (u *Usecase) process(ctx context.Context, ev event.Event, recipient int64, at loan.Head) Processed {
	meta := ev.Meta()
	p := Processed{Name: ev.Name(), LoanID: ev.LoanID(), BlockNumber: meta.BlockNumber, Ref: meta.Ref()}
	log := u.log.With("event", ev.Name(), "loan_id", ev.LoanID(), "block", meta.BlockNumber)

	notices, skipped, err := u.notificationsFor(ctx, ev, at)
	if err != nil {
		p.Error = err.Error()
		log.Warn("event not handled", "err", err)
		return p
	}
	if skipped != "" {
		p.Skipped = skipped
		log.Debug("event skipped", "reason", skipped)
		return p
	}
	for _, n := range notices {
		if n.Kind != notification.KindFundingObtained {
			n = n.WithRef(meta.Ref())
		}
		p.Notifications = append(p.Notifications, u.notifier.Dispatch(ctx, n.To(recipient)))
	}
	return p
}

// notificationsFor maps each known event to the notices it triggers. It is
// the only place where event semantics live.
func (u *Usecase) notificationsFor(ctx context.Context, ev event.Event, at loan.Head) ([]notification.Notification, string, error) {
	switch e := ev.(type) {
	case event.LoanRequested:
		return one(notification.LoanRequested(e.Loan, e.Borrower, e.Amount, e.TermDuration))

	case event.Vouched:
		l, err := u.ledger.GetLoan(ctx, e.Loan, at)
		if err != nil {
			return nil, "", err
		}
		return one(notification.VouchingAccepted(e.Loan, l.Borrower, e.Voucher))

	case event.LoanConfirmed, event.LoanFunded:
		l, err := u.ledger.GetLoan(ctx, ev.LoanID(), at)
		if err != nil {
			return nil, "", err
		}
		return one(notification.LoanAccepted(l))

	case event.Crowdfunded:
		l, err := u.ledger.GetLoan(ctx, e.Loan, at)
		if err != nil {
			return nil, "", err
		}
		if !l.IsFullyFunded() {
			return nil, "not yet fully funded", nil
		}
		// One notice per loan no matter how many contributions completed it.
		return one(notification.FundingObtained(e.Loan, l.Borrower, l.AmountRequested, l.AmountFunded))

	case event.RepaymentMade:
		l, err := u.ledger.GetLoan(ctx, e.Loan, at)
		if err != nil {
			return nil, "", err
		}
		if l.State != loan.StateRepaid {
			return nil, "loan not repaid", nil
		}
		return one(notification.LoanRepaid(e.Loan, e.Borrower, e.TotalRepaid))

	case event.LoanDefaulted:
		l, err := u.ledger.GetLoan(ctx, e.Loan, at)
		if err != nil {
			return nil, "", err
		}
		owed, err := loan.ReadOwed(ctx, u.ledger, e.Loan, at)
		if err != nil {
			return nil, "", err
		}
		return one(notification.LoanDefault(loan.DefaultedLoan{
			LoanID:          e.Loan,
			Borrower:        e.Borrower,
			AmountRequested: l.AmountRequested,
			TotalOwed:       owed.Total,
			AmountRepaid:    owed.Repaid,
			RemainingOwed:   owed.Remaining(),
			GracePeriodEnd:  l.GracePeriodEnd,
		}))

	case event.MembershipSuspended:
		return one(notification.TrustCancellation(e.Loan, e.Borrower, notification.ReasonMembershipSuspended))
	}
	return nil, "no handler for " + string(ev.Name()), nil
}

func one(n notification.Notification) ([]notification.Notification, string, error) {
	return []notification.Notification{n}, "", nil
}
