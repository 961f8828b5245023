package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"circles-credit-backend/internal/usecase/grace"
)

type GraceHandler struct{ uc *grace.Usecase }

func NewGraceHandler(uc *grace.Usecase) *GraceHandler { return &GraceHandler{uc: uc} }

func (h *GraceHandler) GetGracePeriod(c echo.Context) error {
	q, err := bindLoanQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	action, err := grace.ParseAction(q.Action)
	if err != nil {
		return badRequest(c, err.Error())
	}
	rep, err := h.uc.Run(c.Request().Context(), grace.Request{
		LoanID:      q.LoanID,
		Action:      action,
		RecipientID: q.RecipientID,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}

type collectReq struct {
	LoanID uint64 `json:"loanId" validate:"required,gte=1"`
}

// Collect reports whether the borrower can repay now. Nothing is submitted.
func (h *GraceHandler) Collect(c echo.Context) error {
	var req collectReq
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}
	return c.JSON(http.StatusOK, h.uc.AttemptCollection(c.Request().Context(), req.LoanID))
}
