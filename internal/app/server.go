package app

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	httpadp "circles-credit-backend/internal/adapter/http"
	idemp "circles-credit-backend/internal/adapter/middleware"
)

// NewServer builds the operator HTTP surface. Every POST is idempotent on
// Ax-Request-Id.
func (a *App) NewServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.Logger(), middleware.Recover())

	httpadp.Register(e, httpadp.Handlers{
		Health:        httpadp.NewHandler(a.Ledger),
		Loans:         httpadp.NewLoanHandler(a.Loans),
		Defaults:      httpadp.NewDefaultHandler(a.Defaults),
		Grace:         httpadp.NewGraceHandler(a.Grace),
		Repayments:    httpadp.NewRepaymentHandler(a.Repayments),
		Events:        httpadp.NewEventHandler(a.Events),
		Notifications: httpadp.NewNotificationHandler(a.Dispatcher, a.Deliveries),
	}, idemp.IdempotencyMiddleware(a.Redis, a.Config.Redis.IdempotencyTTL, a.Log))
	return e
}
