package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"circles-credit-backend/internal/usecase/defaults"
)

type DefaultHandler struct{ uc *defaults.Usecase }

func NewDefaultHandler(uc *defaults.Usecase) *DefaultHandler { return &DefaultHandler{uc: uc} }

// GetDefaults checks, marks or notifies one loan or every defaulted loan.
func (h *DefaultHandler) GetDefaults(c echo.Context) error {
	q, err := bindLoanQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	action, err := defaults.ParseAction(q.Action)
	if err != nil {
		return badRequest(c, err.Error())
	}
	rep, err := h.uc.Run(c.Request().Context(), defaults.Request{
		LoanID:      q.LoanID,
		Action:      action,
		RecipientID: q.RecipientID,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}

type markDefaultReq struct {
	LoanID      uint64 `json:"loanId"      validate:"required,gte=1"`
	RecipientID int64  `json:"recipientId"`
	// Notify defaults to true.
	Notify *bool `json:"notify"`
}

// MarkDefault marks one loan as defaulted and then notifies the borrower.
func (h *DefaultHandler) MarkDefault(c echo.Context) error {
	var req markDefaultReq
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}
	rep, err := h.uc.Run(c.Request().Context(), defaults.Request{
		LoanID:       req.LoanID,
		Action:       defaults.ActionMark,
		RecipientID:  req.RecipientID,
		NotifyOnMark: req.Notify == nil || *req.Notify,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}
