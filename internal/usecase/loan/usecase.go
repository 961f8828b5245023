package loan

import (
	"context"
	"fmt"
	"math/big"

	domain "circles-credit-backend/internal/domain/loan"
	"circles-credit-backend/pkg/units"
)

type Usecase struct{ ledger domain.Reader }

func NewUsecase(r domain.Reader) *Usecase { return &Usecase{ledger: r} }

// Get reads one loan and its debt at the current head.
func (u *Usecase) Get(ctx context.Context, id uint64) (*LoanDTO, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: loan ids start at 1", domain.ErrNotFound)
	}
	at, err := u.ledger.Head(ctx)
	if err != nil {
		return nil, err
	}
	l, err := u.ledger.GetLoan(ctx, id, at)
	if err != nil {
		return nil, err
	}

	owed := domain.Owed{Total: l.EstimatedTotalOwed(), Repaid: new(big.Int)}
	estimated := l.State < domain.StateFunded
	if !estimated {
		if owed, err = domain.ReadOwed(ctx, u.ledger, id, at); err != nil {
			return nil, err
		}
	}

	return &LoanDTO{
		LoanID:            l.ID,
		Borrower:          l.Borrower.Hex(),
		State:             l.State.String(),
		Phase:             phaseOf(l, at.Timestamp),
		AmountRequested:   units.FormatToken(l.AmountRequested),
		AmountFunded:      units.FormatToken(l.AmountFunded),
		FundingProgress:   l.FundingProgress().String(),
		InterestRate:      l.InterestRate,
		VoucherCount:      l.VoucherCount,
		Term:              units.FormatDays(l.TermDuration),
		RepaymentDeadline: l.RepaymentDeadline,
		GracePeriodEnd:    l.GracePeriodEnd,
		TotalOwed:         units.FormatToken(owed.Total),
		AmountRepaid:      units.FormatToken(owed.Repaid),
		Outstanding:       units.FormatToken(owed.Remaining()),
		Estimated:         estimated,
		At:                at,
	}, nil
}

func phaseOf(l domain.Loan, now uint64) Phase {
	switch {
	case l.State == domain.StateRepaid || l.State == domain.StateDefaulted:
		return PhaseClosed
	case l.State < domain.StateFunded:
		return PhaseOpen
	case domain.InDefaultWindow(l, now):
		return PhaseDefaultable
	case domain.InGraceWindow(l, now):
		return PhaseGrace
	default:
		return PhaseActive
	}
}
