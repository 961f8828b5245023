package grace

import (
	"fmt"
	"math/big"

	"circles-credit-backend/internal/domain/loan"
	"circles-credit-backend/internal/domain/notification"
	"circles-credit-backend/internal/usecase/scan"
)

type Action string

const (
	ActionCheck   Action = "check"
	ActionNotify  Action = "notify"
	ActionCollect Action = "collect"
)

func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case "":
		return ActionCheck, nil
	case ActionCheck, ActionNotify, ActionCollect:
		return a, nil
	}
	return "", fmt.Errorf("unknown grace-period action %q", s)
}

type Request struct {
	LoanID      uint64 `json:"loan_id,omitempty"`
	Action      Action `json:"action"`
	RecipientID int64  `json:"recipient_id,omitempty"`
}

// CollectionResult says whether the borrower could repay now. It never moves
// funds; the borrower or an external signer has to submit the repayment.
type CollectionResult struct {
	LoanID          uint64                `json:"loan_id"`
	Success         bool                  `json:"success"`
	Status          loan.CollectionStatus `json:"status,omitempty"`
	CanRepay        bool                  `json:"can_repay"`
	RepaymentAmount *big.Int              `json:"repayment_amount,omitempty"`
	Message         string                `json:"message"`
}

type Item struct {
	LoanID        uint64                 `json:"loan_id"`
	Loan          *loan.GracePeriodLoan  `json:"loan,omitempty"`
	Collection    *CollectionResult      `json:"collection,omitempty"`
	Notifications []notification.Outcome `json:"notifications,omitempty"`
}

type Report struct {
	Action   Action         `json:"action"`
	Block    uint64         `json:"block_number"`
	Scanned  uint64         `json:"scanned"`
	Count    int            `json:"count"`
	Items    []Item         `json:"items"`
	Failures []scan.Failure `json:"failures,omitempty"`
	Message  string         `json:"message,omitempty"`
}
