package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"circles-credit-backend/internal/domain/loan"
)

// SignerBackend is what ethclient.Client offers for sending and mining.
type SignerBackend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Transactor is satisfied by *bind.BoundContract.
type Transactor interface {
	Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error)
}

// ReceiptWaiter blocks until tx is mined.
type ReceiptWaiter func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)

// Signer submits lending market writes with one service key. It implements
// loan.Writer.
type Signer struct {
	contract Transactor
	opts     bind.TransactOpts
	wait     ReceiptWaiter
	timeout  time.Duration
	log      *slog.Logger

	// one key means one nonce sequence
	mu sync.Mutex
}

func NewSigner(b SignerBackend, contract common.Address, keyHex string, chainID *big.Int, timeout time.Duration, log *slog.Logger) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(keyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse signer key: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	bound := bind.NewBoundContract(contract, MarketABI, b, b, b)
	wait := func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
		return bind.WaitMined(ctx, b, tx)
	}
	return NewSignerWith(bound, opts, wait, timeout, log), nil
}

// NewSignerWith assembles a Signer from its parts.
func NewSignerWith(contract Transactor, opts *bind.TransactOpts, wait ReceiptWaiter, timeout time.Duration, log *slog.Logger) *Signer {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Signer{
		contract: contract,
		opts:     *opts,
		wait:     wait,
		timeout:  timeout,
		log:      log.With("component", "ledger-signer", "from", opts.From.Hex()),
	}
}

func (s *Signer) MarkDefaulted(ctx context.Context, id uint64) (loan.TxReceipt, error) {
	return s.submit(ctx, "markLoanAsDefaulted", new(big.Int).SetUint64(id))
}

func (s *Signer) SetVouchingDeadline(ctx context.Context, id, deadline uint64) (loan.TxReceipt, error) {
	return s.submit(ctx, "setVouchingDeadline", new(big.Int).SetUint64(id), new(big.Int).SetUint64(deadline))
}

func (s *Signer) SetRepaymentDeadline(ctx context.Context, id, deadline uint64) (loan.TxReceipt, error) {
	return s.submit(ctx, "setRepaymentDeadline", new(big.Int).SetUint64(id), new(big.Int).SetUint64(deadline))
}

func (s *Signer) SetGracePeriod(ctx context.Context, id, period uint64) (loan.TxReceipt, error) {
	return s.submit(ctx, "setGracePeriod", new(big.Int).SetUint64(id), new(big.Int).SetUint64(period))
}

func (s *Signer) submit(ctx context.Context, method string, args ...any) (loan.TxReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := s.opts
	opts.Context = ctx
	tx, err := s.contract.Transact(&opts, method, args...)
	if err != nil {
		if mapped := revertError(err); mapped != nil {
			return loan.TxReceipt{}, mapped
		}
		return loan.TxReceipt{}, fmt.Errorf("submit %s: %w", method, err)
	}
	s.log.Info("transaction submitted", "method", method, "tx", tx.Hash().Hex())

	rcpt, err := s.wait(ctx, tx)
	if err != nil {
		return loan.TxReceipt{Hash: tx.Hash()}, fmt.Errorf("wait for %s: %w", tx.Hash().Hex(), err)
	}
	out := loan.TxReceipt{Hash: tx.Hash()}
	if rcpt.BlockNumber != nil {
		out.BlockNumber = rcpt.BlockNumber.Uint64()
	}
	if rcpt.Status != types.ReceiptStatusSuccessful {
		return out, fmt.Errorf("%w: %s %s", ErrTxReverted, method, tx.Hash().Hex())
	}
	return out, nil
}

// NoSigner is the Writer used when no service key is configured. Every write
// fails closed.
type NoSigner struct{}

var errNoSigner = fmt.Errorf("%w: set LEDGER_SIGNER_KEY to enable writes", loan.ErrUnauthorized)

func (NoSigner) MarkDefaulted(context.Context, uint64) (loan.TxReceipt, error) {
	return loan.TxReceipt{}, errNoSigner
}

func (NoSigner) SetVouchingDeadline(context.Context, uint64, uint64) (loan.TxReceipt, error) {
	return loan.TxReceipt{}, errNoSigner
}

func (NoSigner) SetRepaymentDeadline(context.Context, uint64, uint64) (loan.TxReceipt, error) {
	return loan.TxReceipt{}, errNoSigner
}

func (NoSigner) SetGracePeriod(context.Context, uint64, uint64) (loan.TxReceipt, error) {
	return loan.TxReceipt{}, errNoSigner
}
