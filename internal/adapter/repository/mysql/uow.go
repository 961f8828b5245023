package mysql

import (
	"context"

	"gorm.io/gorm"

	"circles-credit-backend/internal/domain/uow"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(uow.Repos{
			Members:    &MemberRepository{db: tx},
			Cursors:    &CursorRepository{db: tx},
			Deliveries: &DeliveryRepository{db: tx},
		})
	})
}
