package event

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// Name is the ledger's event name, the tag of the Event union.
type Name string

const (
	NameLoanRequested       Name = "LoanRequestCreated"
	NameVouched             Name = "Vouched"
	NameLoanConfirmed       Name = "LoanConfirmed"
	NameCrowdfunded         Name = "Crowdfunded"
	NameLoanFunded          Name = "LoanFunded"
	NameRepaymentMade       Name = "RepaymentMade"
	NameLoanDefaulted       Name = "LoanDefaulted"
	NameMembershipSuspended Name = "MembershipSuspended"
)

// Meta locates the log an event was decoded from.
type Meta struct {
	BlockNumber uint64      `json:"block_number"`
	TxHash      common.Hash `json:"tx_hash"`
	LogIndex    uint        `json:"log_index"`
}

// Ref is unique per log and stable across re-fetches of the same range.
func (m Meta) Ref() string {
	return m.TxHash.Hex() + ":" + strconv.FormatUint(uint64(m.LogIndex), 10)
}

// Event is one decoded ledger log. The concrete type is the tag.
type Event interface {
	Name() Name
	Meta() Meta
	LoanID() uint64
}

// Base carries the fields every lending-market event shares.
type Base struct {
	Log  Meta   `json:"log"`
	Loan uint64 `json:"loan_id"`
}

func (b Base) Meta() Meta     { return b.Log }
func (b Base) LoanID() uint64 { return b.Loan }

type LoanRequested struct {
	Base
	Borrower     common.Address `json:"borrower"`
	Amount       *big.Int       `json:"amount"`
	TermDuration uint64         `json:"term_duration"`
}

type Vouched struct {
	Base
	Voucher common.Address `json:"voucher"`
	Amount  *big.Int       `json:"amount"`
}

type LoanConfirmed struct {
	Base
	Borrower common.Address `json:"borrower"`
}

type Crowdfunded struct {
	Base
	Lender common.Address `json:"lender"`
	Amount *big.Int       `json:"amount"`
}

type LoanFunded struct {
	Base
	TotalAmount *big.Int `json:"total_amount"`
}

type RepaymentMade struct {
	Base
	Borrower    common.Address `json:"borrower"`
	Principal   *big.Int       `json:"principal"`
	Interest    *big.Int       `json:"interest"`
	TotalRepaid *big.Int       `json:"total_repaid"`
}

type LoanDefaulted struct {
	Base
	Borrower common.Address `json:"borrower"`
}

type MembershipSuspended struct {
	Base
	Borrower common.Address `json:"borrower"`
}

// Other is an event the contract ABI knows but nothing reacts to.
type Other struct {
	Base
	EventName string `json:"event_name"`
}

func (LoanRequested) Name() Name       { return NameLoanRequested }
func (Vouched) Name() Name             { return NameVouched }
func (LoanConfirmed) Name() Name       { return NameLoanConfirmed }
func (Crowdfunded) Name() Name         { return NameCrowdfunded }
func (LoanFunded) Name() Name          { return NameLoanFunded }
func (RepaymentMade) Name() Name       { return NameRepaymentMade }
func (LoanDefaulted) Name() Name       { return NameLoanDefaulted }
func (MembershipSuspended) Name() Name { return NameMembershipSuspended }
func (o Other) Name() Name             { return Name(o.EventName) }
