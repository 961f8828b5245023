package ledger

import (
	"bytes"
	_ "embed"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var (
	//go:embed abi/lending_market.json
	lendingMarketJSON []byte
	//go:embed abi/erc20.json
	erc20JSON []byte
)

var (
	// MarketABI is the lending market contract interface.
	MarketABI = mustParseABI(lendingMarketJSON)
	ERC20ABI  = mustParseABI(erc20JSON)
)

func mustParseABI(raw []byte) abi.ABI {
	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		panic("ledger: invalid embedded ABI: " + err.Error())
	}
	return parsed
}
