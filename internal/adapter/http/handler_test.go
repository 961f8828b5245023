package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/labstack/echo/v4"

	"circles-credit-backend/internal/domain/event"
	"circles-credit-backend/internal/domain/loan"
	"circles-credit-backend/internal/domain/notification"
	"circles-credit-backend/internal/testutil/ledgermock"
	"circles-credit-backend/internal/testutil/notifymock"
	"circles-credit-backend/internal/usecase/defaults"
	"circles-credit-backend/internal/usecase/events"
	"circles-credit-backend/internal/usecase/grace"
	loanuc "circles-credit-backend/internal/usecase/loan"
	"circles-credit-backend/internal/usecase/repayment"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func mustJSON(v any) *bytes.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

// book at now=1000: loan 1 is defaulted, loan 3 is in its grace period and
// its borrower can repay in full.
func book() *ledgermock.Book {
	l := func(id uint64, who common.Address, deadline, graceEnd uint64) loan.Loan {
		return loan.Loan{
			ID: id, Borrower: who,
			AmountRequested: big.NewInt(100), AmountFunded: big.NewInt(100),
			InterestRate: 500, VoucherCount: 4,
			RepaymentDeadline: deadline, GracePeriodEnd: graceEnd,
			State: loan.StateFunded,
		}
	}
	return &ledgermock.Book{
		Head:     loan.Head{Number: 90, Timestamp: 1000},
		Loans:    map[uint64]loan.Loan{1: l(1, alice, 500, 1000), 3: l(3, bob, 500, 1500)},
		Owed:     map[uint64]*big.Int{1: big.NewInt(105), 3: big.NewInt(105)},
		Repaid:   map[uint64]*big.Int{1: big.NewInt(5)},
		Balances: map[common.Address]*big.Int{bob: big.NewInt(200)},
	}
}

type noLogs struct{}

func (noLogs) FilterLogs(context.Context, uint64, uint64) ([]types.Log, error) { return nil, nil }

type noDecoder struct{}

func (noDecoder) Decode(types.Log) (event.Event, error) { return nil, errors.New("unknown") }

type memDeliveries struct{ rows []notification.Delivery }

func (m *memDeliveries) Create(_ context.Context, d *notification.Delivery) error {
	m.rows = append(m.rows, *d)
	return nil
}

func (m *memDeliveries) ListByLoan(_ context.Context, loanID uint64, limit int) ([]notification.Delivery, error) {
	var out []notification.Delivery
	for _, d := range m.rows {
		if d.LoanID == loanID && len(out) < limit {
			out = append(out, d)
		}
	}
	return out, nil
}

type fixture struct {
	e        *echo.Echo
	notifier *notifymock.Notifier
	writer   *ledgermock.Writer
	audit    *memDeliveries
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := book()
	r := b.Reader()
	n := &notifymock.Notifier{}
	w := &ledgermock.Writer{
		MarkDefaultedFn: func(context.Context, uint64) (loan.TxReceipt, error) {
			return loan.TxReceipt{Hash: common.HexToHash("0xabc"), BlockNumber: 91}, nil
		},
	}
	log := discard()
	audit := &memDeliveries{}

	e := echo.New()
	e.Validator = NewValidator()
	Register(e, Handlers{
		Health:        NewHandler(r),
		Loans:         NewLoanHandler(loanuc.NewUsecase(r)),
		Defaults:      NewDefaultHandler(defaults.NewUsecase(r, w, n, 2, log)),
		Grace:         NewGraceHandler(grace.NewUsecase(r, n, 2, log)),
		Repayments:    NewRepaymentHandler(repayment.NewUsecase(r, nil, 2, log)),
		Events:        NewEventHandler(events.NewUsecase(r, noLogs{}, noDecoder{}, nil, n, events.Options{}, log)),
		Notifications: NewNotificationHandler(n, audit),
	})
	return &fixture{e: e, notifier: n, writer: w, audit: audit}
}

func (f *fixture) do(method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("bad json: %v; raw=%s", err, rec.Body.String())
	}
	return v
}

func TestHealth_ReturnsOKWithRFC3339NanoUTC(t *testing.T) {
	e := echo.New()
	h := NewHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	start := time.Now().UTC()

	if err := h.Health(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	ct := rec.Header().Get(echo.HeaderContentType)
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		t.Fatalf("expected Content-Type application/json, got %q", ct)
	}

	body := decode[struct {
		Status string `json:"status"`
		Time   string `json:"time"`
	}](t, rec)
	if body.Status != "ok" {
		t.Fatalf(`expected status "ok", got %q`, body.Status)
	}
	parsed, err := time.Parse(time.RFC3339Nano, body.Time)
	if err != nil {
		t.Fatalf("time not RFC3339Nano: %v (value=%q)", err, body.Time)
	}
	if parsed.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", parsed.Location())
	}
	if parsed.Before(start.Add(-2 * time.Second)) {
		t.Fatalf("time not fresh: %v", parsed)
	}
}

func TestHealth_ReportsLedgerHead(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decode[map[string]any](t, rec); body["block_number"] != float64(90) {
		t.Fatalf("body = %v", body)
	}
}

func TestHealth_DegradedWhenLedgerDown(t *testing.T) {
	e := echo.New()
	h := NewHandler(&ledgermock.Reader{})
	rec := httptest.NewRecorder()
	if err := h.Health(e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestGetDefaults(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/loans/defaults", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	rep := decode[defaults.Report](t, rec)
	if rep.Action != defaults.ActionCheck || rep.Count != 1 || rep.Items[0].LoanID != 1 {
		t.Fatalf("report = %+v", rep)
	}

	rec = f.do(http.MethodGet, "/loans/defaults?loanId=3", nil)
	rep = decode[defaults.Report](t, rec)
	if rep.Count != 0 || rep.Message == "" {
		t.Fatalf("loan 3 report = %+v", rep)
	}

	rec = f.do(http.MethodGet, "/loans/defaults?loanId=1&action=notify&recipientId=42", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("notify status = %d", rec.Code)
	}
	if got := f.notifier.Kinds(); len(got) != 2 || got[0] != notification.KindLoanDefault {
		t.Fatalf("kinds = %v", got)
	}
	if f.notifier.Sent()[0].RecipientID != 42 {
		t.Fatalf("recipient not passed through")
	}
}

func TestGetDefaults_BadQuery(t *testing.T) {
	f := newFixture(t)
	for _, target := range []string{
		"/loans/defaults?action=explode",
		"/loans/defaults?loanId=abc",
		"/loans/defaults?recipientId=x",
	} {
		if rec := f.do(http.MethodGet, target, nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s => %d, want 400", target, rec.Code)
		}
	}
}

func TestMarkDefault(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/loans/defaults", mustJSON(map[string]any{"loanId": 1, "recipientId": 7}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	rep := decode[defaults.Report](t, rec)
	if len(rep.Items) != 1 || rep.Items[0].Mark == nil || !rep.Items[0].Mark.Success {
		t.Fatalf("report = %+v", rep)
	}
	if len(rep.Items[0].Notifications) != 2 {
		t.Fatalf("notifications = %+v", rep.Items[0].Notifications)
	}
}

func TestMarkDefault_WithoutNotify(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/loans/defaults", mustJSON(map[string]any{"loanId": 1, "notify": false}))
	rep := decode[defaults.Report](t, rec)
	if len(rep.Items) != 1 || len(rep.Items[0].Notifications) != 0 {
		t.Fatalf("report = %+v", rep)
	}
	if len(f.notifier.Sent()) != 0 {
		t.Fatalf("notified despite notify=false")
	}
}

func TestMarkDefault_Validation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/loans/defaults", strings.NewReader(`{"loanId":`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("broken json => %d", rec.Code)
	}

	rec = f.do(http.MethodPost, "/loans/defaults", mustJSON(map[string]any{}))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty body => %d", rec.Code)
	}
	er := decode[ErrorResponse](t, rec)
	if !containsFieldMsg(er.Details, "loanId", "is required") {
		t.Fatalf("details = %+v", er.Details)
	}
}

func TestGracePeriod(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/loans/grace-period?loanId=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	rep := decode[grace.Report](t, rec)
	if rep.Count != 1 || rep.Items[0].Loan == nil {
		t.Fatalf("report = %+v", rep)
	}

	if rec := f.do(http.MethodGet, "/loans/grace-period?action=mark", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown action => %d", rec.Code)
	}

	rec = f.do(http.MethodPost, "/loans/grace-period/collect", mustJSON(map[string]any{"loanId": 3}))
	res := decode[grace.CollectionResult](t, rec)
	if !res.Success || !res.CanRepay || res.RepaymentAmount.Int64() != 105 {
		t.Fatalf("collection = %+v", res)
	}

	rec = f.do(http.MethodPost, "/loans/grace-period/collect", mustJSON(map[string]any{"loanId": 1}))
	if res := decode[grace.CollectionResult](t, rec); res.Success {
		t.Fatalf("defaulted loan collected: %+v", res)
	}
}

func TestRepayments(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/loans/repayments", nil)
	rep := decode[repayment.Report](t, rec)
	if rep.Count != 1 || rep.Items[0].Check.LoanID != 3 {
		t.Fatalf("report = %+v", rep)
	}

	rec = f.do(http.MethodPost, "/loans/repayments", mustJSON(map[string]any{"loanId": 3}))
	if rec.Code != http.StatusOK {
		t.Fatalf("prepare => %d body=%s", rec.Code, rec.Body.String())
	}
	item := decode[repayment.Item](t, rec)
	if item.Transaction.Amount.Int64() != 105 {
		t.Fatalf("instruction = %+v", item.Transaction)
	}

	rec = f.do(http.MethodPost, "/loans/repayments", mustJSON(map[string]any{"loanId": 1}))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("broke borrower => %d", rec.Code)
	}

	rec = f.do(http.MethodPost, "/loans/repayments", mustJSON(map[string]any{"loanId": 9}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown loan => %d", rec.Code)
	}
}

func TestListenEvents(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/events?fromBlock=10&toBlock=20", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	res := decode[events.ListenResult](t, rec)
	if res.From != 10 || res.To != 20 {
		t.Fatalf("range = %d-%d", res.From, res.To)
	}

	if rec := f.do(http.MethodGet, "/events?fromBlock=20&toBlock=10", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("inverted range => %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/events?fromBlock=latest", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad block => %d", rec.Code)
	}
}

func TestSendTestNotification(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/notifications/test", mustJSON(map[string]any{"recipientId": 42, "message": "ping"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	sent := f.notifier.Sent()
	if len(sent) != 1 || sent[0].Kind != notification.KindTest || sent[0].Payload.Text != "ping" {
		t.Fatalf("sent = %+v", sent)
	}

	f.notifier.DispatchFn = func(_ context.Context, n notification.Notification) notification.Outcome {
		return notification.Outcome{Kind: n.Kind, Status: notification.StatusFailed, Error: "boom"}
	}
	if rec := f.do(http.MethodPost, "/notifications/test", mustJSON(map[string]any{"recipientId": 42})); rec.Code != http.StatusBadGateway {
		t.Fatalf("failed send => %d", rec.Code)
	}

	if rec := f.do(http.MethodPost, "/notifications/test", mustJSON(map[string]any{})); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing recipient => %d", rec.Code)
	}
}

func TestNotifyLoanRequest(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/notifications/loan-request", mustJSON(map[string]any{
		"loanId":          12,
		"borrowerAddress": alice.Hex(),
		"amountRequested": "2500000000000000000",
		"termDuration":    86400 * 30,
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	sent := f.notifier.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent = %+v", sent)
	}
	n := sent[0]
	if n.Kind != notification.KindLoanRequested || n.LoanID != 12 || n.Payload.Amount != "2.5" || n.Payload.Term != "30 days" {
		t.Fatalf("notification = %+v", n)
	}

	rec = f.do(http.MethodPost, "/notifications/loan-request", mustJSON(map[string]any{
		"loanId":          12,
		"borrowerAddress": "0x123",
		"amountRequested": "-5",
		"termDuration":    1,
	}))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad body => %d", rec.Code)
	}
	er := decode[ErrorResponse](t, rec)
	if !containsFieldMsg(er.Details, "borrowerAddress", "40-hex address") || !containsFieldMsg(er.Details, "amountRequested", "positive integer") {
		t.Fatalf("details = %+v", er.Details)
	}
}

func TestListDeliveries(t *testing.T) {
	f := newFixture(t)
	f.audit.rows = []notification.Delivery{
		{DeliveryID: "a", Kind: notification.KindLoanDefault, LoanID: 1, Status: notification.StatusDelivered},
		{DeliveryID: "b", Kind: notification.KindGracePeriodWarning, LoanID: 3, Status: notification.StatusFailed},
		{DeliveryID: "c", Kind: notification.KindLoanDefault, LoanID: 1, Status: notification.StatusDelivered},
	}

	rec := f.do(http.MethodGet, "/notifications/deliveries?loanId=1&limit=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[struct {
		LoanID uint64                  `json:"loanId"`
		Items  []notification.Delivery `json:"items"`
	}](t, rec)
	if got.LoanID != 1 || len(got.Items) != 1 || got.Items[0].DeliveryID != "a" {
		t.Fatalf("got = %+v", got)
	}

	rec = f.do(http.MethodGet, "/notifications/deliveries?loanId=9", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"items":[]`) {
		t.Fatalf("empty => %d %s", rec.Code, rec.Body.String())
	}

	for _, q := range []string{"", "?loanId=0", "?loanId=x"} {
		if rec := f.do(http.MethodGet, "/notifications/deliveries"+q, nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("%q => %d", q, rec.Code)
		}
	}
}

func TestListDeliveries_NotRecorded(t *testing.T) {
	e := echo.New()
	h := NewNotificationHandler(&notifymock.Notifier{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/notifications/deliveries?loanId=1", nil)
	rec := httptest.NewRecorder()
	if err := h.ListDeliveries(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetLoan(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/loans/3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	got := decode[loanuc.LoanDTO](t, rec)
	if got.LoanID != 3 || got.Phase != loanuc.PhaseGrace || got.State != "funded" {
		t.Fatalf("loan = %+v", got)
	}

	if rec := f.do(http.MethodGet, "/loans/99", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown => %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/loans/abc", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id => %d", rec.Code)
	}
}
