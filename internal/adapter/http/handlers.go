package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"circles-credit-backend/internal/domain/loan"
)

const healthTimeout = 3 * time.Second

type Handler struct{ ledger loan.Reader }

// NewHandler accepts a nil reader; health then skips the ledger probe.
func NewHandler(r loan.Reader) *Handler { return &Handler{ledger: r} }

func (h *Handler) Health(c echo.Context) error {
	body := map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	}
	if h.ledger == nil {
		return c.JSON(http.StatusOK, body)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()
	head, err := h.ledger.Head(ctx)
	if err != nil {
		body["status"] = "degraded"
		body["ledger_error"] = err.Error()
		return c.JSON(http.StatusServiceUnavailable, body)
	}
	body["block_number"] = head.Number
	return c.JSON(http.StatusOK, body)
}
