package mysql

import (
	"context"
	"errors"
	"testing"

	"circles-credit-backend/internal/domain/event"
	"circles-credit-backend/internal/domain/member"
	"circles-credit-backend/internal/domain/uow"
)

func TestGormUoW_WithinTx_Commit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := NewGormUoW(db).WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Members.Upsert(ctx, &member.Member{RecipientID: 5, CirclesAddress: "0x00000000000000000000000000000000000000C5"}); err != nil {
			return err
		}
		return r.Cursors.Save(ctx, &event.Cursor{Name: "market", BlockNumber: 77})
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}

	m, err := NewMemberRepository(db).Lookup(ctx, "0x00000000000000000000000000000000000000c5")
	if err != nil || m.RecipientID != 5 {
		t.Fatalf("member after commit: %+v, %v", m, err)
	}
	c, err := NewCursorRepository(db).Get(ctx, "market")
	if err != nil || c.BlockNumber != 77 {
		t.Fatalf("cursor after commit: %+v, %v", c, err)
	}
}

func TestGormUoW_WithinTx_RollbackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := NewGormUoW(db).WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Members.Upsert(ctx, &member.Member{RecipientID: 6, CirclesAddress: "0x00000000000000000000000000000000000000c6"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	if _, err := NewMemberRepository(db).Lookup(ctx, "0x00000000000000000000000000000000000000c6"); !errors.Is(err, member.ErrNotFound) {
		t.Fatalf("member survived rollback: %v", err)
	}
}
