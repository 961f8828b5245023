package notification

import (
	"strconv"
	"time"
)

type Kind string

const (
	KindLoanRequested      Kind = "loan_requested"
	KindVouchingAccepted   Kind = "vouching_accepted"
	KindFundingObtained    Kind = "funding_obtained"
	KindLoanAccepted       Kind = "loan_accepted"
	KindLoanRepaid         Kind = "loan_repaid"
	KindLoanDefault        Kind = "loan_default"
	KindTrustCancellation  Kind = "trust_cancellation"
	KindGracePeriodWarning Kind = "grace_period_warning"
	KindTest               Kind = "test"
)

// Format is a message markup flavour understood by the channel.
type Format string

const (
	FormatMarkdownV2 Format = "MarkdownV2"
	FormatHTML       Format = "HTML"
	FormatPlain      Format = "plain"
)

// Payload values are already human formatted (decimal token amounts, day
// counts). Names are filled from the member directory when left empty.
type Payload struct {
	RequesterAddress string `json:"requester_address,omitempty"`
	RequesterName    string `json:"requester_name,omitempty"`
	VoucherAddress   string `json:"voucher_address,omitempty"`
	VoucherName      string `json:"voucher_name,omitempty"`
	Amount           string `json:"amount,omitempty"`
	FundedAmount     string `json:"funded_amount,omitempty"`
	UnpaidAmount     string `json:"unpaid_amount,omitempty"`
	InterestRate     string `json:"interest_rate,omitempty"`
	Term             string `json:"term,omitempty"`
	GraceRemaining   string `json:"grace_remaining,omitempty"`
	Reason           string `json:"reason,omitempty"`
	Text             string `json:"text,omitempty"`
}

// Notification is one message about one loan.
type Notification struct {
	Kind        Kind    `json:"kind"`
	LoanID      uint64  `json:"loan_id"`
	Borrower    string  `json:"borrower"`
	RecipientID int64   `json:"recipient_id,omitempty"`
	Payload     Payload `json:"payload"`
	// Ref distinguishes repeated notifications of the same kind for the same
	// loan, e.g. the originating log. Empty means one per dedupe window.
	Ref string `json:"ref,omitempty"`
}

// DedupeKey identifies a delivery for the notification dedupe store.
func (n Notification) DedupeKey(recipient int64) string {
	return "notif:" + string(n.Kind) + ":" + strconv.FormatUint(n.LoanID, 10) + ":" +
		strconv.FormatInt(recipient, 10) + ":" + n.Ref
}

type Status string

const (
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusDuplicate Status = "duplicate"
)

// Outcome reports what happened to one notification. Delivery problems end
// up here instead of in an error.
type Outcome struct {
	Kind        Kind   `json:"kind"`
	LoanID      uint64 `json:"loan_id"`
	RecipientID int64  `json:"recipient_id,omitempty"`
	Status      Status `json:"status"`
	Format      Format `json:"format,omitempty"`
	Attempts    int    `json:"attempts"`
	Error       string `json:"error,omitempty"`
}

// Delivery is the persisted audit row of one Outcome.
type Delivery struct {
	ID          uint64    `gorm:"primaryKey;column:id" json:"-"`
	DeliveryID  string    `gorm:"size:32;column:delivery_id;uniqueIndex:ux_deliveries_delivery_id" json:"delivery_id"`
	Kind        Kind      `gorm:"size:32;column:kind" json:"kind"`
	LoanID      uint64    `gorm:"column:loan_id;index:idx_deliveries_loan" json:"loan_id"`
	RecipientID int64     `gorm:"column:recipient_id" json:"recipient_id"`
	Format      Format    `gorm:"size:16;column:format" json:"format"`
	Status      Status    `gorm:"size:16;column:status" json:"status"`
	Attempts    int       `gorm:"column:attempts" json:"attempts"`
	Error       string    `gorm:"type:text;column:error" json:"error,omitempty"`
	DedupeKey   string    `gorm:"size:191;column:dedupe_key" json:"dedupe_key"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Delivery) TableName() string { return "notification_deliveries" }
