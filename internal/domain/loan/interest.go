package loan

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Bps is an interest rate in basis points.
type Bps uint64

// IneligibleRate is returned for loans with fewer than MinVouchers vouchers.
// The ledger encodes the same condition as type(uint256).max.
const IneligibleRate Bps = math.MaxUint64

const MinVouchers = 3

// InterestRateTier is the ledger's fixed voucher-count schedule.
func InterestRateTier(voucherCount uint64) Bps {
	switch {
	case voucherCount < MinVouchers:
		return IneligibleRate
	case voucherCount <= 6:
		return 500
	case voucherCount <= 9:
		return 250
	case voucherCount <= 15:
		return 100
	default:
		return 0
	}
}

// Percent renders the rate as a percentage string, e.g. 250 -> "2.5%".
func (b Bps) Percent() string {
	if b == IneligibleRate {
		return "ineligible"
	}
	return decimal.New(int64(b), -2).String() + "%"
}

func (b Bps) MarshalJSON() ([]byte, error) {
	if b == IneligibleRate {
		return []byte(`"ineligible"`), nil
	}
	return []byte(strconv.FormatUint(uint64(b), 10)), nil
}

func (b *Bps) UnmarshalJSON(data []byte) error {
	if string(data) == `"ineligible"` {
		*b = IneligibleRate
		return nil
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return err
	}
	*b = Bps(n)
	return nil
}
