package http

import "github.com/labstack/echo/v4"

type Handlers struct {
	Health        *Handler
	Loans         *LoanHandler
	Defaults      *DefaultHandler
	Grace         *GraceHandler
	Repayments    *RepaymentHandler
	Events        *EventHandler
	Notifications *NotificationHandler
}

// Register mounts the operator routes. mutating wraps every POST.
func Register(e *echo.Echo, h Handlers, mutating ...echo.MiddlewareFunc) {
	e.GET("/health", h.Health.Health)
	e.GET("/loans/:id", h.Loans.GetLoan)

	e.GET("/loans/defaults", h.Defaults.GetDefaults)
	e.POST("/loans/defaults", h.Defaults.MarkDefault, mutating...)

	e.GET("/loans/grace-period", h.Grace.GetGracePeriod)
	e.POST("/loans/grace-period/collect", h.Grace.Collect, mutating...)

	e.GET("/loans/repayments", h.Repayments.ListRepayments)
	e.POST("/loans/repayments", h.Repayments.PrepareRepayment, mutating...)

	e.GET("/events", h.Events.ListenEvents)

	e.GET("/notifications/deliveries", h.Notifications.ListDeliveries)
	e.POST("/notifications/test", h.Notifications.SendTest, mutating...)
	e.POST("/notifications/loan-request", h.Notifications.NotifyLoanRequest, mutating...)
}
