package member

import "context"

// Directory resolves a ledger address (Circles avatar or EOA wallet) to a
// member. It is read-only; registration lives elsewhere.
type Directory interface {
	Lookup(ctx context.Context, address string) (*Member, error)
}

// Repository is the writable directory backing the members table.
type Repository interface {
	Directory
	Upsert(ctx context.Context, m *Member) error
}
