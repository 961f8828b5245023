package mysql

import (
	"context"

	"gorm.io/gorm"

	"circles-credit-backend/internal/domain/notification"
)

type DeliveryRepository struct{ db *gorm.DB }

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository { return &DeliveryRepository{db: db} }

func (r *DeliveryRepository) Create(ctx context.Context, d *notification.Delivery) error {
	return r.db.WithContext(ctx).Create(d).Error
}

// ListByLoan returns the newest deliveries for a loan first.
func (r *DeliveryRepository) ListByLoan(ctx context.Context, loanID uint64, limit int) ([]notification.Delivery, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []notification.Delivery
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out)
	return out, res.Error
}
