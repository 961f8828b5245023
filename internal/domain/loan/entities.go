package loan

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// State mirrors the ledger's LoanState enum; values are positional.
type State uint8

const (
	StateRequested State = iota
	StateVouching
	StateCrowdfunding
	StateFunded
	StateRepaid
	StateDefaulted
)

var stateNames = [...]string{"requested", "vouching", "crowdfunding", "funded", "repaid", "defaulted"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

func (s State) Valid() bool { return int(s) < len(stateNames) }

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// BpsDenominator is the basis-point scale used by the ledger's interest formula.
const BpsDenominator = 10_000

// Loan is a read-only snapshot of one ledger record. It is rebuilt on every
// evaluation and never cached across invocations.
type Loan struct {
	ID                   uint64         `json:"loan_id"`
	Borrower             common.Address `json:"borrower"`
	AmountRequested      *big.Int       `json:"amount_requested"`
	AmountFunded         *big.Int       `json:"amount_funded"`
	TermDuration         uint64         `json:"term_duration"`
	InterestRate         Bps            `json:"interest_rate"`
	CreatedAt            uint64         `json:"created_at"`
	VouchingDeadline     uint64         `json:"vouching_deadline"`
	CrowdfundingDeadline uint64         `json:"crowdfunding_deadline"`
	RepaymentDeadline    uint64         `json:"repayment_deadline"`
	GracePeriodEnd       uint64         `json:"grace_period_end"`
	State                State          `json:"state"`
	VoucherCount         uint64         `json:"voucher_count"`
}

// EstimatedTotalOwed applies the ledger's formula locally:
// principal + principal*rate/10000. It is only an estimate; the ledger's
// calculateTotalOwed is authoritative once a loan is confirmed.
func (l Loan) EstimatedTotalOwed() *big.Int {
	principal := orZero(l.AmountRequested)
	if l.InterestRate == IneligibleRate {
		return new(big.Int).Set(principal)
	}
	interest := new(big.Int).Mul(principal, new(big.Int).SetUint64(uint64(l.InterestRate)))
	interest.Quo(interest, big.NewInt(BpsDenominator))
	return interest.Add(interest, principal)
}

// FundingProgress is amountFunded / amountRequested, zero when nothing was requested.
func (l Loan) FundingProgress() decimal.Decimal {
	req := orZero(l.AmountRequested)
	if req.Sign() == 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(orZero(l.AmountFunded), 0).
		DivRound(decimal.NewFromBigInt(req, 0), 4)
}

func (l Loan) IsFullyFunded() bool {
	req := orZero(l.AmountRequested)
	return req.Sign() > 0 && orZero(l.AmountFunded).Cmp(req) >= 0
}

// RateAnomaly reports the locally expected tier when it disagrees with the
// stored rate. Loans still vouching have no authoritative rate yet.
func (l Loan) RateAnomaly() (expected Bps, ok bool) {
	if l.State < StateCrowdfunding {
		return 0, false
	}
	expected = InterestRateTier(l.VoucherCount)
	return expected, expected != l.InterestRate
}

// Owed is the authoritative debt of a loan, read from the ledger at one block.
type Owed struct {
	Total  *big.Int
	Repaid *big.Int
}

// Remaining is Total - Repaid, clamped at zero.
func (o Owed) Remaining() *big.Int {
	r := new(big.Int).Sub(orZero(o.Total), orZero(o.Repaid))
	if r.Sign() < 0 {
		return new(big.Int)
	}
	return r
}

// Head is the block every read of one evaluation is pinned to.
type Head struct {
	Number    uint64 `json:"block_number"`
	Timestamp uint64 `json:"timestamp"`
}

type TxReceipt struct {
	Hash        common.Hash `json:"transaction_hash"`
	BlockNumber uint64      `json:"block_number"`
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
