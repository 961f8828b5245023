package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"circles-credit-backend/internal/domain/loan"
)

type Kind string

const (
	KindVouching  Kind = "vouching"
	KindRepayment Kind = "repayment"
	KindGrace     Kind = "grace"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindVouching, KindRepayment, KindGrace:
		return k, nil
	}
	return "", fmt.Errorf("unknown deadline kind %q (want vouching, repayment or grace)", s)
}

// Request sets one loan's deadline. Value is a unix timestamp for the
// vouching and repayment deadlines and a duration in seconds for grace.
type Request struct {
	LoanID uint64 `json:"loan_id"`
	Kind   Kind   `json:"kind"`
	Value  uint64 `json:"value"`
}

type Result struct {
	LoanID          uint64 `json:"loan_id"`
	Kind            Kind   `json:"kind"`
	Value           uint64 `json:"value"`
	Success         bool   `json:"success"`
	TransactionHash string `json:"transaction_hash,omitempty"`
	BlockNumber     uint64 `json:"block_number,omitempty"`
	Error           string `json:"error,omitempty"`
}

type Usecase struct {
	ledger loan.Reader
	writer loan.Writer
	log    *slog.Logger
}

func NewUsecase(r loan.Reader, w loan.Writer, log *slog.Logger) *Usecase {
	return &Usecase{ledger: r, writer: w, log: log.With("component", "admin")}
}

// SetDeadline checks the loan exists and is still open, then submits the
// matching admin write and waits for its receipt.
func (u *Usecase) SetDeadline(ctx context.Context, req Request) Result {
	res := Result{LoanID: req.LoanID, Kind: req.Kind, Value: req.Value}
	log := u.log.With("loan_id", req.LoanID, "kind", req.Kind, "value", req.Value)

	if u.writer == nil {
		res.Error = loan.ErrUnauthorized.Error()
		return res
	}
	if req.Value == 0 {
		res.Error = "value must be positive"
		return res
	}

	at, err := u.ledger.Head(ctx)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	l, err := u.ledger.GetLoan(ctx, req.LoanID, at)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if l.State == loan.StateRepaid || l.State == loan.StateDefaulted {
		res.Error = fmt.Sprintf("loan is %s", l.State)
		return res
	}

	var rcpt loan.TxReceipt
	switch req.Kind {
	case KindVouching:
		rcpt, err = u.writer.SetVouchingDeadline(ctx, req.LoanID, req.Value)
	case KindRepayment:
		rcpt, err = u.writer.SetRepaymentDeadline(ctx, req.LoanID, req.Value)
	case KindGrace:
		rcpt, err = u.writer.SetGracePeriod(ctx, req.LoanID, req.Value)
	default:
		_, err = ParseKind(string(req.Kind))
	}
	if err != nil {
		res.Error = err.Error()
		if errors.Is(err, loan.ErrUnauthorized) {
			log.Warn("deadline change refused", "err", err)
		} else {
			log.Error("deadline change failed", "err", err)
		}
		return res
	}

	res.Success = true
	res.TransactionHash = rcpt.Hash.Hex()
	res.BlockNumber = rcpt.BlockNumber
	log.Info("deadline changed", "tx", res.TransactionHash)
	return res
}
