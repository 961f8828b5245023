package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"circles-credit-backend/internal/domain/loan"
)

// statusFor maps domain errors to HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, loan.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, loan.ErrNotApplicable):
		return http.StatusConflict
	case errors.Is(err, loan.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, loan.ErrRead), errors.Is(err, loan.ErrMalformedRecord):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func fail(c echo.Context, err error) error {
	return c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// bindJSON binds and validates a body, writing the 400/422 itself. It
// reports whether the handler should continue.
func bindJSON(c echo.Context, dst any) (bool, error) {
	if err := c.Bind(dst); err != nil {
		return false, badRequest(c, "invalid body")
	}
	if err := c.Validate(dst); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	return true, nil
}

type loanQuery struct {
	LoanID      uint64
	Action      string
	RecipientID int64
}

func bindLoanQuery(c echo.Context) (loanQuery, error) {
	var q loanQuery
	err := echo.QueryParamsBinder(c).
		Uint64("loanId", &q.LoanID).
		String("action", &q.Action).
		Int64("recipientId", &q.RecipientID).
		BindError()
	return q, err
}
