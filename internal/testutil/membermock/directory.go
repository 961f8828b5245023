package membermock

import (
	"context"

	"circles-credit-backend/internal/domain/member"
)

// Directory resolves from a fixed map keyed by lowercased address.
type Directory struct {
	Members  map[string]member.Member
	LookupFn func(ctx context.Context, address string) (*member.Member, error)
	UpsertFn func(ctx context.Context, m *member.Member) error
}

func (d *Directory) Lookup(ctx context.Context, address string) (*member.Member, error) {
	if d.LookupFn != nil {
		return d.LookupFn(ctx, address)
	}
	m, ok := d.Members[member.NormalizeAddress(address)]
	if !ok {
		return nil, member.ErrNotFound
	}
	return &m, nil
}

// Upsert stores m under its Circles address, or delegates to UpsertFn.
func (d *Directory) Upsert(ctx context.Context, m *member.Member) error {
	if d.UpsertFn != nil {
		return d.UpsertFn(ctx, m)
	}
	if d.Members == nil {
		d.Members = map[string]member.Member{}
	}
	d.Members[member.NormalizeAddress(m.CirclesAddress)] = *m
	return nil
}
