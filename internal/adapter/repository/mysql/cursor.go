package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"circles-credit-backend/internal/domain/event"
)

type CursorRepository struct{ db *gorm.DB }

func NewCursorRepository(db *gorm.DB) *CursorRepository { return &CursorRepository{db: db} }

func (r *CursorRepository) Get(ctx context.Context, name string) (*event.Cursor, error) {
	var out event.Cursor
	res := r.db.WithContext(ctx).Where("name = ?", name).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, event.ErrNoCursor
	}
	if res.Error != nil {
		return nil, res.Error
	}
	return &out, nil
}

// Save upserts by name.
func (r *CursorRepository) Save(ctx context.Context, c *event.Cursor) error {
	return r.db.WithContext(ctx).Save(c).Error
}
