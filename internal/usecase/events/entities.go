package events

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"

	"circles-credit-backend/internal/domain/event"
	"circles-credit-backend/internal/domain/notification"
)

// LogSource returns the lending market's raw logs for an inclusive range.
type LogSource interface {
	FilterLogs(ctx context.Context, from, to uint64) ([]types.Log, error)
}

type Decoder interface {
	Decode(lg types.Log) (event.Event, error)
}

// Range selects blocks to process. Zero From resumes after the stored
// cursor; zero To means the current head.
type Range struct {
	From        uint64 `json:"from_block"`
	To          uint64 `json:"to_block"`
	RecipientID int64  `json:"recipient_id,omitempty"`
}

type Processed struct {
	Name          event.Name             `json:"event"`
	LoanID        uint64                 `json:"loan_id"`
	BlockNumber   uint64                 `json:"block_number"`
	Ref           string                 `json:"ref"`
	Notifications []notification.Outcome `json:"notifications,omitempty"`
	Skipped       string                 `json:"skipped,omitempty"`
	Error         string                 `json:"error,omitempty"`
}

type ListenResult struct {
	From    uint64      `json:"from_block"`
	To      uint64      `json:"to_block"`
	Logs    int         `json:"logs"`
	Decoded int         `json:"decoded"`
	Ignored int         `json:"ignored"`
	Events  []Processed `json:"events"`
	// Cursor is the last block recorded as fully processed, zero if unchanged.
	Cursor uint64 `json:"cursor,omitempty"`
}
