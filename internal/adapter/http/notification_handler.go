package http

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"

	"circles-credit-backend/internal/domain/notification"
)

type NotificationHandler struct {
	n          notification.Notifier
	deliveries notification.Repository
}

// NewNotificationHandler takes an optional deliveries repository; without
// one the delivery history route answers 404.
func NewNotificationHandler(n notification.Notifier, deliveries notification.Repository) *NotificationHandler {
	return &NotificationHandler{n: n, deliveries: deliveries}
}

type testNotificationReq struct {
	RecipientID int64  `json:"recipientId" validate:"required"`
	Message     string `json:"message"     validate:"max=1000"`
}

func (h *NotificationHandler) SendTest(c echo.Context) error {
	var req testNotificationReq
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}
	out := h.n.Dispatch(c.Request().Context(), notification.Test(req.RecipientID, req.Message))
	return c.JSON(outcomeStatus(out), out)
}

type loanRequestReq struct {
	LoanID          uint64 `json:"loanId"          validate:"required,gte=1"`
	BorrowerAddress string `json:"borrowerAddress" validate:"required,evmaddr"`
	AmountRequested string `json:"amountRequested" validate:"required,wei"`
	TermDuration    uint64 `json:"termDuration"    validate:"required,gte=1"`
	RecipientID     int64  `json:"recipientId"`
}

// NotifyLoanRequest announces a loan right after the frontend created it,
// before the listener sees the log. Both paths share one dedupe key.
func (h *NotificationHandler) NotifyLoanRequest(c echo.Context) error {
	var req loanRequestReq
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}
	amount, _ := new(big.Int).SetString(req.AmountRequested, 10)
	n := notification.LoanRequested(req.LoanID, common.HexToAddress(req.BorrowerAddress), amount, req.TermDuration)
	out := h.n.Dispatch(c.Request().Context(), n.To(req.RecipientID))
	return c.JSON(outcomeStatus(out), out)
}

const (
	defaultDeliveryLimit = 50
	maxDeliveryLimit     = 500
)

// ListDeliveries returns the audit trail of notifications sent for a loan.
func (h *NotificationHandler) ListDeliveries(c echo.Context) error {
	if h.deliveries == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "delivery history is not recorded"})
	}
	var (
		loanID uint64
		limit  = defaultDeliveryLimit
	)
	if err := echo.QueryParamsBinder(c).
		MustUint64("loanId", &loanID).
		Int("limit", &limit).
		BindError(); err != nil {
		return badRequest(c, err.Error())
	}
	if loanID == 0 {
		return badRequest(c, "loanId must be positive")
	}
	if limit <= 0 || limit > maxDeliveryLimit {
		limit = defaultDeliveryLimit
	}
	items, err := h.deliveries.ListByLoan(c.Request().Context(), loanID, limit)
	if err != nil {
		return fail(c, err)
	}
	if items == nil {
		items = []notification.Delivery{}
	}
	return c.JSON(http.StatusOK, map[string]any{"loanId": loanID, "items": items})
}

func outcomeStatus(out notification.Outcome) int {
	switch out.Status {
	case notification.StatusFailed:
		return http.StatusBadGateway
	case notification.StatusSkipped:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusOK
	}
}
