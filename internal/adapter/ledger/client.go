package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"circles-credit-backend/internal/domain/loan"
)

// Backend is the subset of ethclient.Client the reader needs.
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

type Options struct {
	Contract      common.Address
	BlockTag      string // latest, safe or finalized
	Confirmations uint64
	CallTimeout   time.Duration
}

// Client reads the lending market. It implements loan.Reader.
type Client struct {
	backend       Backend
	contract      common.Address
	blockTag      *big.Int
	confirmations uint64
	timeout       time.Duration
	log           *slog.Logger

	tokenMu sync.Mutex
	token   common.Address
}

func NewClient(b Backend, opts Options, log *slog.Logger) (*Client, error) {
	tag, err := parseBlockTag(opts.BlockTag)
	if err != nil {
		return nil, err
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 15 * time.Second
	}
	return &Client{
		backend:       b,
		contract:      opts.Contract,
		blockTag:      tag,
		confirmations: opts.Confirmations,
		timeout:       opts.CallTimeout,
		log:           log.With("component", "ledger"),
	}, nil
}

func parseBlockTag(tag string) (*big.Int, error) {
	switch tag {
	case "", "latest":
		return nil, nil
	case "safe":
		return big.NewInt(int64(rpc.SafeBlockNumber)), nil
	case "finalized":
		return big.NewInt(int64(rpc.FinalizedBlockNumber)), nil
	default:
		return nil, fmt.Errorf("unsupported block tag %q", tag)
	}
}

func (c *Client) Contract() common.Address { return c.contract }

// Head returns the block reads are pinned to: the configured tag, moved back
// by the confirmation depth.
func (c *Client) Head(ctx context.Context) (loan.Head, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	h, err := c.backend.HeaderByNumber(ctx, c.blockTag)
	if err != nil {
		return loan.Head{}, fmt.Errorf("%w: head: %v", loan.ErrRead, err)
	}
	if c.confirmations > 0 && h.Number.Uint64() > c.confirmations {
		h, err = c.backend.HeaderByNumber(ctx, new(big.Int).SetUint64(h.Number.Uint64()-c.confirmations))
		if err != nil {
			return loan.Head{}, fmt.Errorf("%w: head: %v", loan.ErrRead, err)
		}
	}
	return loan.Head{Number: h.Number.Uint64(), Timestamp: h.Time}, nil
}

func (c *Client) TotalLoans(ctx context.Context, at loan.Head) (uint64, error) {
	n, err := c.callBig(ctx, at, c.contract, MarketABI, "totalLoans")
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("%w: totalLoans overflows: %s", loan.ErrRead, n)
	}
	return n.Uint64(), nil
}

func (c *Client) GetLoan(ctx context.Context, id uint64, at loan.Head) (loan.Loan, error) {
	out, err := c.call(ctx, at, c.contract, MarketABI, "getLoan", new(big.Int).SetUint64(id))
	if err != nil {
		return loan.Loan{}, err
	}
	return loan.Decode(id, out)
}

func (c *Client) AmountRepaid(ctx context.Context, id uint64, at loan.Head) (*big.Int, error) {
	return c.callBig(ctx, at, c.contract, MarketABI, "amountRepaid", new(big.Int).SetUint64(id))
}

func (c *Client) TotalOwed(ctx context.Context, id uint64, at loan.Head) (*big.Int, error) {
	return c.callBig(ctx, at, c.contract, MarketABI, "calculateTotalOwed", new(big.Int).SetUint64(id))
}

func (c *Client) InterestRate(ctx context.Context, voucherCount uint64, at loan.Head) (loan.Bps, error) {
	n, err := c.callBig(ctx, at, c.contract, MarketABI, "calculateInterestRate", new(big.Int).SetUint64(voucherCount))
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return loan.IneligibleRate, nil
	}
	return loan.Bps(n.Uint64()), nil
}

// TokenBalance is the account's balance of the market's lending token.
func (c *Client) TokenBalance(ctx context.Context, account common.Address, at loan.Head) (*big.Int, error) {
	token, err := c.tokenAddress(ctx, at)
	if err != nil {
		return nil, err
	}
	return c.callBig(ctx, at, token, ERC20ABI, "balanceOf", account)
}

// tokenAddress is immutable in the contract, so it is fetched once.
func (c *Client) tokenAddress(ctx context.Context, at loan.Head) (common.Address, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.token != (common.Address{}) {
		return c.token, nil
	}
	out, err := c.call(ctx, at, c.contract, MarketABI, "crcToken")
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: crcToken: unexpected %T", loan.ErrRead, out[0])
	}
	c.token = addr
	return addr, nil
}

// FilterLogs returns the contract's logs in [from, to].
func (c *Client) FilterLogs(ctx context.Context, from, to uint64) ([]types.Log, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	logs, err := c.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{c.contract},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: logs %d-%d: %v", loan.ErrRead, from, to, err)
	}
	return logs, nil
}

func (c *Client) call(ctx context.Context, at loan.Head, to common.Address, contract abi.ABI, method string, args ...any) ([]any, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, blockArg(at))
	if err != nil {
		if mapped := revertError(err); errors.Is(mapped, loan.ErrNotFound) {
			return nil, mapped
		}
		c.log.Debug("contract call failed", "method", method, "block", at.Number, "err", err)
		return nil, fmt.Errorf("%w: %s: %v", loan.ErrRead, method, err)
	}
	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: decode: %v", loan.ErrRead, method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s: empty result", loan.ErrRead, method)
	}
	return out, nil
}

func (c *Client) callBig(ctx context.Context, at loan.Head, to common.Address, contract abi.ABI, method string, args ...any) (*big.Int, error) {
	out, err := c.call(ctx, at, to, contract, method, args...)
	if err != nil {
		return nil, err
	}
	n, ok := out[0].(*big.Int)
	if !ok || n == nil {
		return nil, fmt.Errorf("%w: %s: unexpected %T", loan.ErrRead, method, out[0])
	}
	return n, nil
}

// blockArg pins a call to at. A zero head means the node's latest block.
func blockArg(at loan.Head) *big.Int {
	if at.Number == 0 {
		return nil
	}
	return new(big.Int).SetUint64(at.Number)
}
