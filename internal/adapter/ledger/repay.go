package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RepayEncoder builds unsigned repayLoan calldata for the market contract.
type RepayEncoder struct {
	Contract common.Address
}

func (e RepayEncoder) EncodeRepay(loanID uint64, amount *big.Int) (common.Address, []byte, error) {
	if amount == nil || amount.Sign() <= 0 {
		return common.Address{}, nil, fmt.Errorf("repay amount must be positive")
	}
	data, err := MarketABI.Pack("repayLoan", new(big.Int).SetUint64(loanID), amount)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("pack repayLoan: %w", err)
	}
	return e.Contract, data, nil
}
