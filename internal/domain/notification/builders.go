package notification

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"circles-credit-backend/internal/domain/loan"
	"circles-credit-backend/pkg/units"
)

// ReasonMembershipSuspended is the trust-cancellation reason attached to defaults.
const ReasonMembershipSuspended = "Loan default - membership suspended"

func newNotification(kind Kind, loanID uint64, borrower common.Address, p Payload) Notification {
	p.RequesterAddress = borrower.Hex()
	return Notification{Kind: kind, LoanID: loanID, Borrower: borrower.Hex(), Payload: p}
}

// To sets an explicit recipient, overriding directory lookup. Zero keeps lookup.
func (n Notification) To(recipient int64) Notification {
	n.RecipientID = recipient
	return n
}

func (n Notification) WithRef(ref string) Notification {
	n.Ref = ref
	return n
}

func LoanRequested(loanID uint64, borrower common.Address, amount *big.Int, termSeconds uint64) Notification {
	return newNotification(KindLoanRequested, loanID, borrower, Payload{
		Amount: units.FormatToken(amount),
		Term:   units.FormatDays(termSeconds),
	})
}

func VouchingAccepted(loanID uint64, borrower, voucher common.Address) Notification {
	return newNotification(KindVouchingAccepted, loanID, borrower, Payload{
		VoucherAddress: voucher.Hex(),
	})
}

func FundingObtained(loanID uint64, borrower common.Address, requested, funded *big.Int) Notification {
	return newNotification(KindFundingObtained, loanID, borrower, Payload{
		Amount:       units.FormatToken(requested),
		FundedAmount: units.FormatToken(funded),
	})
}

func LoanAccepted(l loan.Loan) Notification {
	return newNotification(KindLoanAccepted, l.ID, l.Borrower, Payload{
		Amount:       units.FormatToken(l.AmountRequested),
		InterestRate: l.InterestRate.Percent(),
		Term:         units.FormatDays(l.TermDuration),
	})
}

func LoanRepaid(loanID uint64, borrower common.Address, totalRepaid *big.Int) Notification {
	return newNotification(KindLoanRepaid, loanID, borrower, Payload{
		Amount: units.FormatToken(totalRepaid),
	})
}

func LoanDefault(d loan.DefaultedLoan) Notification {
	return newNotification(KindLoanDefault, d.LoanID, d.Borrower, Payload{
		Amount:       units.FormatToken(d.AmountRequested),
		UnpaidAmount: units.FormatToken(d.RemainingOwed),
	})
}

func TrustCancellation(loanID uint64, borrower common.Address, reason string) Notification {
	return newNotification(KindTrustCancellation, loanID, borrower, Payload{Reason: reason})
}

func GracePeriodWarning(g loan.GracePeriodLoan) Notification {
	return newNotification(KindGracePeriodWarning, g.LoanID, g.Borrower, Payload{
		UnpaidAmount:   units.FormatToken(g.RemainingOwed),
		GraceRemaining: units.FormatDays(g.GracePeriodRemaining),
	})
}

// Test is an operator-triggered connectivity check.
func Test(recipient int64, text string) Notification {
	return Notification{Kind: KindTest, RecipientID: recipient, Payload: Payload{Text: text}}
}
