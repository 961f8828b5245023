package notifymock

import (
	"context"
	"sync"

	"circles-credit-backend/internal/domain/notification"
)

// Notifier records every dispatched notification. Without DispatchFn each
// one is reported as delivered.
type Notifier struct {
	DispatchFn func(ctx context.Context, n notification.Notification) notification.Outcome

	mu   sync.Mutex
	sent []notification.Notification
}

func (m *Notifier) Dispatch(ctx context.Context, n notification.Notification) notification.Outcome {
	m.mu.Lock()
	m.sent = append(m.sent, n)
	m.mu.Unlock()
	if m.DispatchFn != nil {
		return m.DispatchFn(ctx, n)
	}
	return notification.Outcome{
		Kind:        n.Kind,
		LoanID:      n.LoanID,
		RecipientID: n.RecipientID,
		Status:      notification.StatusDelivered,
		Format:      notification.FormatMarkdownV2,
		Attempts:    1,
	}
}

// Sent returns a copy of what was dispatched so far.
func (m *Notifier) Sent() []notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notification.Notification(nil), m.sent...)
}

// Kinds lists the kinds dispatched so far, in order.
func (m *Notifier) Kinds() []notification.Kind {
	sent := m.Sent()
	out := make([]notification.Kind, len(sent))
	for i, n := range sent {
		out[i] = n.Kind
	}
	return out
}
