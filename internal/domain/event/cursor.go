package event

import (
	"context"
	"errors"
	"time"
)

var ErrNoCursor = errors.New("no cursor stored")

// Cursor records the last block whose logs were fully processed.
type Cursor struct {
	Name        string    `gorm:"primaryKey;size:64;column:name" json:"name"`
	BlockNumber uint64    `gorm:"column:block_number" json:"block_number"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Cursor) TableName() string { return "sync_cursors" }

type CursorRepository interface {
	Get(ctx context.Context, name string) (*Cursor, error)
	Save(ctx context.Context, c *Cursor) error
}
