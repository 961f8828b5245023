package uowmock

import (
	"context"
	"errors"
	"testing"

	"circles-credit-backend/internal/domain/member"
	"circles-credit-backend/internal/domain/uow"
	"circles-credit-backend/internal/testutil/membermock"
)

func TestPassthrough_ForwardsRepos(t *testing.T) {
	ctx := context.Background()
	members := &membermock.Directory{}
	m := Passthrough(uow.Repos{Members: members})

	err := m.WithinTx(ctx, func(r uow.Repos) error {
		if r.Members != members {
			t.Fatalf("WithinTx: repos not forwarded")
		}
		return r.Members.Upsert(ctx, &member.Member{RecipientID: 1, CirclesAddress: "0x00000000000000000000000000000000000000aa"})
	})
	if err != nil {
		t.Fatalf("WithinTx: unexpected err: %v", err)
	}
	if m.Calls != 1 || len(members.Members) != 1 {
		t.Fatalf("calls=%d members=%v", m.Calls, members.Members)
	}
}

func TestUoW_WithinTx_PropagatesError(t *testing.T) {
	sentinel := errors.New("boom")
	m := &UoW{WithinTxFn: func(context.Context, func(uow.Repos) error) error { return sentinel }}

	if err := m.WithinTx(context.Background(), func(uow.Repos) error { return nil }); !errors.Is(err, sentinel) {
		t.Fatalf("WithinTx: want %v, got %v", sentinel, err)
	}
}

func TestUoW_Unimplemented(t *testing.T) {
	if err := New().WithinTx(context.Background(), func(uow.Repos) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("want errUnimplemented, got %v", err)
	}
}
