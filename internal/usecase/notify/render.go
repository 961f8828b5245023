package notify

import (
	"strconv"
	"strings"
	"unicode"

	"circles-credit-backend/internal/domain/notification"
)

// FallbackOrder is the order formats are tried in until one is accepted.
var FallbackOrder = []notification.Format{
	notification.FormatMarkdownV2,
	notification.FormatHTML,
	notification.FormatPlain,
}

const vouchButtonText = "👆 Vouch for this loan"

var markdownV2Escaper = strings.NewReplacer(
	`\`, `\\`,
	"_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`,
	"=", `\=`, "|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

// Sanitize replaces control characters with spaces so no interpolated value
// can break the message layout or reach the transport raw.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}

func Escape(s string, f notification.Format) string {
	switch f {
	case notification.FormatMarkdownV2:
		return markdownV2Escaper.Replace(s)
	case notification.FormatHTML:
		return htmlEscaper.Replace(s)
	default:
		return s
	}
}

type row struct {
	label string
	value string
	code  bool
}

type layout struct {
	icon   string
	title  string
	rows   []row
	footer string
}

// Renderer turns a notification into channel text in one of the formats.
type Renderer struct{ baseURL string }

func NewRenderer(baseURL string) *Renderer {
	return &Renderer{baseURL: strings.TrimRight(baseURL, "/")}
}

func (r *Renderer) LoanURL(loanID uint64) string {
	return r.baseURL + "/credit/" + strconv.FormatUint(loanID, 10)
}

func (r *Renderer) Render(n notification.Notification, f notification.Format) notification.Message {
	l := layoutFor(n)

	var b strings.Builder
	b.WriteString(l.icon)
	b.WriteByte(' ')
	b.WriteString(emphasis(l.title, f))
	if len(l.rows) > 0 {
		b.WriteString("\n")
	}
	for _, rw := range l.rows {
		b.WriteString("\n")
		b.WriteString(Escape(rw.label, f))
		b.WriteString(": ")
		v := Escape(Sanitize(rw.value), f)
		if rw.code {
			v = code(v, f)
		}
		b.WriteString(v)
	}
	b.WriteString("\n\n")
	b.WriteString(Escape(Sanitize(l.footer), f))

	msg := notification.Message{Format: f}
	if n.Kind == notification.KindLoanRequested {
		url := r.LoanURL(n.LoanID)
		if strings.HasPrefix(url, "https://") {
			msg.Button = &notification.Button{Text: vouchButtonText, URL: url}
		} else {
			// Channels only accept https links on buttons.
			b.WriteString("\n\n")
			b.WriteString(Escape(vouchButtonText+":", f))
			b.WriteString("\n")
			b.WriteString(code(Escape(Sanitize(url), f), f))
		}
	}
	msg.Text = b.String()
	return msg
}

func emphasis(s string, f notification.Format) string {
	s = Escape(s, f)
	switch f {
	case notification.FormatMarkdownV2:
		return "*" + s + "*"
	case notification.FormatHTML:
		return "<b>" + s + "</b>"
	default:
		return s
	}
}

func code(s string, f notification.Format) string {
	switch f {
	case notification.FormatMarkdownV2:
		return "`" + s + "`"
	case notification.FormatHTML:
		return "<code>" + s + "</code>"
	default:
		return s
	}
}

func orAddress(name, address string) string {
	if name != "" {
		return name
	}
	return address
}

func crc(amount string) string { return amount + " CRC" }

func layoutFor(n notification.Notification) layout {
	p := n.Payload
	id := row{label: "Loan ID", value: strconv.FormatUint(n.LoanID, 10), code: true}
	requester := orAddress(p.RequesterName, p.RequesterAddress)

	switch n.Kind {
	case notification.KindLoanRequested:
		return layout{icon: "📋", title: "New Loan Request", footer: "The vouching phase has started.", rows: []row{
			id,
			{label: "Requester", value: requester},
			{label: "Amount", value: crc(p.Amount)},
			{label: "Term", value: p.Term},
		}}
	case notification.KindVouchingAccepted:
		return layout{icon: "✅", title: "Vouching Accepted", footer: "Thank you for your support!", rows: []row{
			id,
			{label: "Voucher", value: orAddress(p.VoucherName, p.VoucherAddress)},
			{label: "Has vouched for", value: requester},
		}}
	case notification.KindFundingObtained:
		return layout{icon: "💰", title: "Funding Obtained", footer: "The loan is now fully funded and ready for disbursement.", rows: []row{
			id,
			{label: "Requester", value: requester},
			{label: "Requested", value: crc(p.Amount)},
			{label: "Funded", value: crc(p.FundedAmount)},
		}}
	case notification.KindLoanAccepted:
		return layout{icon: "🚀", title: "Loan Accepted & Started", footer: "Funds have been disbursed. Repayment window has started.", rows: []row{
			id,
			{label: "Borrower", value: requester},
			{label: "Amount", value: crc(p.Amount)},
			{label: "Interest Rate", value: p.InterestRate},
			{label: "Term", value: p.Term},
		}}
	case notification.KindLoanRepaid:
		return layout{icon: "✅", title: "Loan Repaid", footer: "The loan has been successfully repaid. Thank you!", rows: []row{
			id,
			{label: "Borrower", value: requester},
			{label: "Amount", value: crc(p.Amount)},
		}}
	case notification.KindLoanDefault:
		return layout{icon: "⚠️", title: "Loan Default", footer: "The borrower has failed to repay the loan.", rows: []row{
			id,
			{label: "Borrower", value: requester},
			{label: "Original Amount", value: crc(p.Amount)},
			{label: "Unpaid Amount", value: crc(p.UnpaidAmount)},
		}}
	case notification.KindTrustCancellation:
		return layout{icon: "🔻", title: "Trust Cancellation Recommendation", footer: "The system recommends removing trust from this user due to loan default.", rows: []row{
			id,
			{label: "User", value: requester},
			{label: "Reason", value: p.Reason},
		}}
	case notification.KindGracePeriodWarning:
		return layout{icon: "⏳", title: "Grace Period Warning", footer: "Repay before the grace period ends to avoid default.", rows: []row{
			id,
			{label: "Borrower", value: requester},
			{label: "Unpaid Amount", value: crc(p.UnpaidAmount)},
			{label: "Time Remaining", value: p.GraceRemaining},
		}}
	}

	text := p.Text
	if text == "" {
		text = "Notifications are working."
	}
	return layout{icon: "🧪", title: "Test Notification", footer: text}
}
