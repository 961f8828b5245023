package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"circles-credit-backend/internal/usecase/events"
)

type EventHandler struct{ uc *events.Usecase }

func NewEventHandler(uc *events.Usecase) *EventHandler { return &EventHandler{uc: uc} }

// ListenEvents processes lending-market logs in a block range. Without
// fromBlock it resumes after the stored cursor.
func (h *EventHandler) ListenEvents(c echo.Context) error {
	var r events.Range
	err := echo.QueryParamsBinder(c).
		Uint64("fromBlock", &r.From).
		Uint64("toBlock", &r.To).
		Int64("recipientId", &r.RecipientID).
		BindError()
	if err != nil {
		return badRequest(c, err.Error())
	}
	if r.To != 0 && r.From > r.To {
		return badRequest(c, "fromBlock must not exceed toBlock")
	}
	res, err := h.uc.Listen(c.Request().Context(), r)
	if err != nil {
		// Partial progress is still reported.
		return c.JSON(statusFor(err), map[string]any{"error": err.Error(), "result": res})
	}
	return c.JSON(http.StatusOK, res)
}
