package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"circles-credit-backend/internal/domain/loan"
)

var ErrTxReverted = errors.New("transaction reverted")

const customErrorPrefix = "InnerCirclesLendingMarket__"

// revertSentinels maps contract custom errors to domain outcomes.
var revertSentinels = map[string]error{
	customErrorPrefix + "InvalidLoanState":          loan.ErrAlreadyHandled,
	customErrorPrefix + "LoanAlreadyRepaid":         loan.ErrAlreadyHandled,
	customErrorPrefix + "GracePeriodNotEnded":       loan.ErrNotYetEligible,
	customErrorPrefix + "LoanNotInDefault":          loan.ErrNotYetEligible,
	customErrorPrefix + "RepaymentPeriodNotReached": loan.ErrNotYetEligible,
	customErrorPrefix + "LoanDoesNotExist":          loan.ErrNotFound,
}

// revertError translates a node error carrying a custom revert into its
// domain sentinel. It returns nil when the revert is unknown.
func revertError(err error) error {
	if err == nil {
		return nil
	}
	var de rpc.DataError
	if errors.As(err, &de) {
		if s, ok := de.ErrorData().(string); ok {
			if data, derr := hexutil.Decode(s); derr == nil && len(data) >= 4 {
				for name, e := range MarketABI.Errors {
					if !bytes.Equal(e.ID[:4], data[:4]) {
						continue
					}
					if sentinel, ok := revertSentinels[name]; ok {
						return fmt.Errorf("%w: %s", sentinel, strings.TrimPrefix(name, customErrorPrefix))
					}
				}
			}
		}
	}
	// Some nodes only put the decoded name in the message.
	msg := err.Error()
	for name, sentinel := range revertSentinels {
		if strings.Contains(msg, name) {
			return fmt.Errorf("%w: %s", sentinel, strings.TrimPrefix(name, customErrorPrefix))
		}
	}
	return nil
}
