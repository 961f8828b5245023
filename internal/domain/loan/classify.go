package loan

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultedLoan is a Funded loan past its grace period that still owes.
type DefaultedLoan struct {
	LoanID          uint64         `json:"loan_id"`
	Borrower        common.Address `json:"borrower"`
	AmountRequested *big.Int       `json:"amount_requested"`
	TotalOwed       *big.Int       `json:"total_owed"`
	AmountRepaid    *big.Int       `json:"amount_repaid"`
	RemainingOwed   *big.Int       `json:"remaining_owed"`
	GracePeriodEnd  uint64         `json:"grace_period_end"`
}

// GracePeriodLoan is a Funded loan between its missed repayment deadline and
// the hard default at GracePeriodEnd.
type GracePeriodLoan struct {
	LoanID               uint64         `json:"loan_id"`
	Borrower             common.Address `json:"borrower"`
	RepaymentDeadline    uint64         `json:"repayment_deadline"`
	GracePeriodEnd       uint64         `json:"grace_period_end"`
	GracePeriodRemaining uint64         `json:"grace_period_remaining"`
	TotalOwed            *big.Int       `json:"total_owed"`
	AmountRepaid         *big.Int       `json:"amount_repaid"`
	RemainingOwed        *big.Int       `json:"remaining_owed"`
	BorrowerBalance      *big.Int       `json:"borrower_balance"`
}

type AutoRepaymentCheck struct {
	LoanID            uint64         `json:"loan_id"`
	Borrower          common.Address `json:"borrower"`
	RepaymentDeadline uint64         `json:"repayment_deadline"`
	TotalOwed         *big.Int       `json:"total_owed"`
	AmountRepaid      *big.Int       `json:"amount_repaid"`
	RemainingOwed     *big.Int       `json:"remaining_owed"`
	BorrowerBalance   *big.Int       `json:"borrower_balance"`
	CanRepayFull      bool           `json:"can_repay_full"`
	CanRepayPartial   bool           `json:"can_repay_partial"`
	RepaymentAmount   *big.Int       `json:"repayment_amount"`
}

func (c AutoRepaymentCheck) CanRepay() bool { return c.CanRepayFull || c.CanRepayPartial }

type CollectionStatus string

const (
	CollectionFull         CollectionStatus = "full"
	CollectionPartial      CollectionStatus = "partial"
	CollectionInsufficient CollectionStatus = "insufficient"
)

// InDefaultWindow gates DetectDefault before the owed amounts are read.
func InDefaultWindow(l Loan, now uint64) bool {
	return l.State == StateFunded && now >= l.GracePeriodEnd
}

// InGraceWindow is [RepaymentDeadline, GracePeriodEnd). It never overlaps
// InDefaultWindow.
func InGraceWindow(l Loan, now uint64) bool {
	return l.State == StateFunded && now >= l.RepaymentDeadline && now < l.GracePeriodEnd
}

// PastDue covers the grace window and everything after it.
func PastDue(l Loan, now uint64) bool {
	return l.State == StateFunded && now >= l.RepaymentDeadline
}

func DetectDefault(l Loan, owed Owed, now uint64) (DefaultedLoan, error) {
	if !InDefaultWindow(l, now) {
		return DefaultedLoan{}, ErrNotApplicable
	}
	remaining := owed.Remaining()
	if remaining.Sign() == 0 {
		return DefaultedLoan{}, ErrNotApplicable
	}
	return DefaultedLoan{
		LoanID:          l.ID,
		Borrower:        l.Borrower,
		AmountRequested: orZero(l.AmountRequested),
		TotalOwed:       orZero(owed.Total),
		AmountRepaid:    orZero(owed.Repaid),
		RemainingOwed:   remaining,
		GracePeriodEnd:  l.GracePeriodEnd,
	}, nil
}

func DetectGracePeriod(l Loan, owed Owed, balance *big.Int, now uint64) (GracePeriodLoan, error) {
	if !InGraceWindow(l, now) {
		return GracePeriodLoan{}, ErrNotApplicable
	}
	remaining := owed.Remaining()
	if remaining.Sign() == 0 {
		return GracePeriodLoan{}, ErrNotApplicable
	}
	return GracePeriodLoan{
		LoanID:               l.ID,
		Borrower:             l.Borrower,
		RepaymentDeadline:    l.RepaymentDeadline,
		GracePeriodEnd:       l.GracePeriodEnd,
		GracePeriodRemaining: l.GracePeriodEnd - now,
		TotalOwed:            orZero(owed.Total),
		AmountRepaid:         orZero(owed.Repaid),
		RemainingOwed:        remaining,
		BorrowerBalance:      orZero(balance),
	}, nil
}

func CheckAutoRepayment(l Loan, owed Owed, balance *big.Int, now uint64) (AutoRepaymentCheck, error) {
	if !PastDue(l, now) {
		return AutoRepaymentCheck{}, ErrNotApplicable
	}
	remaining := owed.Remaining()
	if remaining.Sign() == 0 {
		return AutoRepaymentCheck{}, ErrNotApplicable
	}
	bal := orZero(balance)
	full := bal.Cmp(remaining) >= 0
	amount := new(big.Int).Set(bal)
	if full {
		amount.Set(remaining)
	}
	return AutoRepaymentCheck{
		LoanID:            l.ID,
		Borrower:          l.Borrower,
		RepaymentDeadline: l.RepaymentDeadline,
		TotalOwed:         orZero(owed.Total),
		AmountRepaid:      orZero(owed.Repaid),
		RemainingOwed:     remaining,
		BorrowerBalance:   bal,
		CanRepayFull:      full,
		CanRepayPartial:   bal.Sign() > 0,
		RepaymentAmount:   amount,
	}, nil
}

// ClassifyCollection buckets a balance against what is still owed.
func ClassifyCollection(remaining, balance *big.Int) CollectionStatus {
	bal := orZero(balance)
	switch {
	case bal.Sign() <= 0:
		return CollectionInsufficient
	case bal.Cmp(orZero(remaining)) >= 0:
		return CollectionFull
	default:
		return CollectionPartial
	}
}
