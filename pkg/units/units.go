// Package units formats ledger quantities for people.
package units

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// TokenDecimals is the fixed-point scale of the lending token.
const TokenDecimals = 18

const secondsPerDay = 86_400

// FormatToken renders an amount in the token's smallest unit as a decimal
// string without trailing zeros, e.g. 1500000000000000000 -> "1.5".
func FormatToken(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -TokenDecimals).String()
}

// ParseToken is the inverse of FormatToken. Extra precision is truncated.
func ParseToken(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return d.Shift(TokenDecimals).BigInt(), nil
}

// FormatDays renders a duration in seconds as days with up to two decimals.
func FormatDays(seconds uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(seconds), 0).
		DivRound(decimal.NewFromInt(secondsPerDay), 2).String() + " days"
}
