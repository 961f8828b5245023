package repayment

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"circles-credit-backend/internal/domain/loan"
	"circles-credit-backend/internal/usecase/scan"
)

// ErrInsufficientBalance means the loan is past due but the borrower holds
// nothing that could be repaid.
var ErrInsufficientBalance = errors.New("insufficient balance for repayment")

// Encoder builds the unsigned call for a repayment.
type Encoder interface {
	EncodeRepay(loanID uint64, amount *big.Int) (common.Address, []byte, error)
}

// RepaymentInstruction is what the borrower or an external signer needs to
// submit the repayment. To and Data are empty without an Encoder.
type RepaymentInstruction struct {
	LoanID   uint64          `json:"loan_id"`
	Amount   *big.Int        `json:"amount"`
	Borrower common.Address  `json:"borrower"`
	To       *common.Address `json:"to,omitempty"`
	Data     hexutil.Bytes   `json:"data,omitempty"`
}

type Item struct {
	Check       loan.AutoRepaymentCheck `json:"check"`
	Transaction RepaymentInstruction    `json:"transaction"`
	Formatted   string                  `json:"formatted"`
}

type Report struct {
	Block    uint64         `json:"block_number"`
	Scanned  uint64         `json:"scanned"`
	Count    int            `json:"count"`
	Items    []Item         `json:"items"`
	Failures []scan.Failure `json:"failures,omitempty"`
}
