package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"circles-credit-backend/internal/usecase/repayment"
)

type RepaymentHandler struct{ uc *repayment.Usecase }

func NewRepaymentHandler(uc *repayment.Usecase) *RepaymentHandler {
	return &RepaymentHandler{uc: uc}
}

// ListRepayments returns every loan the borrower can repay now, each with an
// unsigned repayment instruction.
func (h *RepaymentHandler) ListRepayments(c echo.Context) error {
	rep, err := h.uc.Run(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}

type prepareRepaymentReq struct {
	LoanID uint64 `json:"loanId" validate:"required,gte=1"`
}

func (h *RepaymentHandler) PrepareRepayment(c echo.Context) error {
	var req prepareRepaymentReq
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}
	item, err := h.uc.Prepare(c.Request().Context(), req.LoanID)
	if errors.Is(err, repayment.ErrInsufficientBalance) {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, item)
}
