package loan

import (
	domain "circles-credit-backend/internal/domain/loan"
)

// Phase places a loan on its repayment timeline at the read block.
type Phase string

const (
	PhaseOpen        Phase = "open"
	PhaseActive      Phase = "active"
	PhaseGrace       Phase = "grace"
	PhaseDefaultable Phase = "defaultable"
	PhaseClosed      Phase = "closed"
)

// LoanDTO is the operator view of one loan. Amounts are whole tokens.
type LoanDTO struct {
	LoanID            uint64       `json:"loan_id"`
	Borrower          string       `json:"borrower"`
	State             string       `json:"state"`
	Phase             Phase        `json:"phase"`
	AmountRequested   string       `json:"amount_requested"`
	AmountFunded      string       `json:"amount_funded"`
	FundingProgress   string       `json:"funding_progress"`
	InterestRate      domain.Bps   `json:"interest_rate"`
	VoucherCount      uint64       `json:"voucher_count"`
	Term              string       `json:"term"`
	RepaymentDeadline uint64       `json:"repayment_deadline,omitempty"`
	GracePeriodEnd    uint64       `json:"grace_period_end,omitempty"`
	TotalOwed         string       `json:"total_owed"`
	AmountRepaid      string       `json:"amount_repaid"`
	Outstanding       string       `json:"outstanding"`
	// Estimated is set when the totals come from the local formula because
	// the ledger has not confirmed the loan yet.
	Estimated bool        `json:"estimated,omitempty"`
	At        domain.Head `json:"at"`
}
