package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"circles-credit-backend/internal/domain/member"
)

// MemberRepository is the table-backed member directory.
type MemberRepository struct{ db *gorm.DB }

func NewMemberRepository(db *gorm.DB) *MemberRepository { return &MemberRepository{db: db} }

// Lookup matches the Circles avatar first, then the EOA wallet.
func (r *MemberRepository) Lookup(ctx context.Context, address string) (*member.Member, error) {
	addr := member.NormalizeAddress(address)
	if addr == "" {
		return nil, member.ErrNotFound
	}
	for _, column := range []string{"circles_address", "eoa_wallet"} {
		var out member.Member
		res := r.db.WithContext(ctx).Where(column+" = ?", addr).First(&out)
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			continue
		}
		if res.Error != nil {
			return nil, res.Error
		}
		return &out, nil
	}
	return nil, member.ErrNotFound
}

// Upsert keys on the recipient id and stores addresses lowercased.
func (r *MemberRepository) Upsert(ctx context.Context, m *member.Member) error {
	if m.RecipientID == 0 {
		return errors.New("member recipient id is required")
	}
	m.CirclesAddress = member.NormalizeAddress(m.CirclesAddress)
	m.EOAWallet = member.NormalizeAddress(m.EOAWallet)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing member.Member
		err := tx.Where("recipient_id = ?", m.RecipientID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(m).Error
		case err != nil:
			return err
		}
		m.ID = existing.ID
		m.JoinedAt = existing.JoinedAt
		return tx.Save(m).Error
	})
}
