package uow

import (
	"context"

	"circles-credit-backend/internal/domain/event"
	"circles-credit-backend/internal/domain/member"
	"circles-credit-backend/internal/domain/notification"
)

type Repos struct {
	Members    member.Repository
	Cursors    event.CursorRepository
	Deliveries notification.Repository
}

type UnitOfWork interface {
	// WithinTx commits when fn returns nil and rolls everything back otherwise.
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}
