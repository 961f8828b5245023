package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"circles-credit-backend/internal/domain/event"
)

var ErrUndecodable = errors.New("log does not match the lending market ABI")

// Codec decodes raw logs into the event union.
type Codec struct{ abi abi.ABI }

func NewCodec() *Codec { return &Codec{abi: MarketABI} }

func (c *Codec) Decode(lg types.Log) (event.Event, error) {
	if len(lg.Topics) == 0 {
		return nil, fmt.Errorf("%w: no topics", ErrUndecodable)
	}
	ev, err := c.abi.EventByID(lg.Topics[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	fields := make(map[string]any, len(ev.Inputs))
	if err := ev.Inputs.UnpackIntoMap(fields, lg.Data); err != nil {
		return nil, fmt.Errorf("%w: %s data: %v", ErrUndecodable, ev.Name, err)
	}
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopicsIntoMap(fields, indexed, lg.Topics[1:]); err != nil {
		return nil, fmt.Errorf("%w: %s topics: %v", ErrUndecodable, ev.Name, err)
	}

	f := argReader{fields: fields}
	base := event.Base{
		Log:  event.Meta{BlockNumber: lg.BlockNumber, TxHash: lg.TxHash, LogIndex: lg.Index},
		Loan: f.u64("loanId"),
	}

	var out event.Event
	switch event.Name(ev.Name) {
	case event.NameLoanRequested:
		out = event.LoanRequested{Base: base, Borrower: f.addr("borrower"), Amount: f.num("amount"), TermDuration: f.u64("termDuration")}
	case event.NameVouched:
		out = event.Vouched{Base: base, Voucher: f.addr("voucher"), Amount: f.num("amount")}
	case event.NameLoanConfirmed:
		out = event.LoanConfirmed{Base: base, Borrower: f.addr("borrower")}
	case event.NameCrowdfunded:
		out = event.Crowdfunded{Base: base, Lender: f.addr("lender"), Amount: f.num("amount")}
	case event.NameLoanFunded:
		out = event.LoanFunded{Base: base, TotalAmount: f.num("totalAmount")}
	case event.NameRepaymentMade:
		out = event.RepaymentMade{
			Base:        base,
			Borrower:    f.addr("borrower"),
			Principal:   f.num("principal"),
			Interest:    f.num("interest"),
			TotalRepaid: f.num("totalRepaid"),
		}
	case event.NameLoanDefaulted:
		out = event.LoanDefaulted{Base: base, Borrower: f.addr("borrower")}
	case event.NameMembershipSuspended:
		out = event.MembershipSuspended{Base: base, Borrower: f.addr("borrower")}
	default:
		out = event.Other{Base: base, EventName: ev.Name}
	}
	if f.err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUndecodable, ev.Name, f.err)
	}
	return out, nil
}

// argReader pulls typed values out of an unpacked event and keeps the first
// type error.
type argReader struct {
	fields map[string]any
	err    error
}

func (r *argReader) num(name string) *big.Int {
	v, ok := r.fields[name].(*big.Int)
	if !ok && r.err == nil {
		r.err = fmt.Errorf("field %s: want uint256, got %T", name, r.fields[name])
	}
	return v
}

func (r *argReader) u64(name string) uint64 {
	v := r.num(name)
	if v == nil {
		return 0
	}
	if !v.IsUint64() && r.err == nil {
		r.err = fmt.Errorf("field %s overflows uint64", name)
	}
	return v.Uint64()
}

func (r *argReader) addr(name string) common.Address {
	v, ok := r.fields[name].(common.Address)
	if !ok && r.err == nil {
		r.err = fmt.Errorf("field %s: want address, got %T", name, r.fields[name])
	}
	return v
}
