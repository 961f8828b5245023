package notify

import (
	"context"
	"log/slog"

	"circles-credit-backend/internal/domain/notification"
)

// LogChannel writes messages to the log instead of a messenger. It stands in
// when no bot token is configured.
type LogChannel struct{ log *slog.Logger }

func NewLogChannel(log *slog.Logger) *LogChannel {
	return &LogChannel{log: log.With("component", "log-channel")}
}

func (c *LogChannel) Init(context.Context) error {
	c.log.Warn("messaging channel not configured, notifications are only logged")
	return nil
}

func (c *LogChannel) Send(ctx context.Context, msg notification.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	attrs := []any{"recipient", msg.RecipientID, "format", msg.Format, "text", msg.Text}
	if msg.Button != nil {
		attrs = append(attrs, "button_url", msg.Button.URL)
	}
	c.log.Info("notification", attrs...)
	return nil
}

func (c *LogChannel) Shutdown(context.Context) error { return nil }
