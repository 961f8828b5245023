package notifymock

import (
	"context"
	"testing"

	"circles-credit-backend/internal/domain/notification"
)

func TestNotifier_RecordsAndDelegates(t *testing.T) {
	ctx := context.Background()
	m := &Notifier{}
	out := m.Dispatch(ctx, notification.Test(5, "hi"))
	if out.Status != notification.StatusDelivered || out.RecipientID != 5 {
		t.Fatalf("default outcome = %+v", out)
	}

	m.DispatchFn = func(context.Context, notification.Notification) notification.Outcome {
		return notification.Outcome{Status: notification.StatusFailed}
	}
	if out := m.Dispatch(ctx, notification.Test(6, "again")); out.Status != notification.StatusFailed {
		t.Fatalf("DispatchFn not used: %+v", out)
	}
	if kinds := m.Kinds(); len(kinds) != 2 || kinds[0] != notification.KindTest {
		t.Fatalf("Kinds = %v", kinds)
	}
}
