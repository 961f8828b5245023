package defaults

import (
	"fmt"

	"circles-credit-backend/internal/domain/loan"
	"circles-credit-backend/internal/domain/notification"
	"circles-credit-backend/internal/usecase/scan"
)

type Action string

const (
	ActionCheck  Action = "check"
	ActionMark   Action = "mark"
	ActionNotify Action = "notify"
)

// ParseAction defaults an empty string to ActionCheck.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case "":
		return ActionCheck, nil
	case ActionCheck, ActionMark, ActionNotify:
		return a, nil
	}
	return "", fmt.Errorf("unknown default action %q", s)
}

// Request scopes one invocation. A zero LoanID scans every loan.
type Request struct {
	LoanID      uint64 `json:"loan_id,omitempty"`
	Action      Action `json:"action"`
	RecipientID int64  `json:"recipient_id,omitempty"`
	// NotifyOnMark sends the default notices after a successful mark.
	NotifyOnMark bool `json:"notify_on_mark,omitempty"`
}

type MarkResult struct {
	LoanID          uint64 `json:"loan_id"`
	Success         bool   `json:"success"`
	TransactionHash string `json:"transaction_hash,omitempty"`
	AlreadyHandled  bool   `json:"already_handled,omitempty"`
	Error           string `json:"error,omitempty"`
}

type Item struct {
	LoanID        uint64                 `json:"loan_id"`
	Loan          *loan.DefaultedLoan    `json:"loan,omitempty"`
	Mark          *MarkResult            `json:"mark,omitempty"`
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
