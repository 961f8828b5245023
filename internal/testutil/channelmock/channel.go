package channelmock

import (
	"context"
	"sync"

	"circles-credit-backend/internal/domain/notification"
)

// Channel records sent messages. SendFn decides the result of each send;
// without it every send succeeds.
type Channel struct {
	InitFn     func(ctx context.Context) error
	SendFn     func(ctx context.Context, msg notification.Message) error
	ShutdownFn func(ctx context.Context) error

	mu       sync.Mutex
	messages []notification.Message
}

func (c *Channel) Init(ctx context.Context) error {
	if c.InitFn != nil {
		return c.InitFn(ctx)
	}
	return nil
}

func (c *Channel) Send(ctx context.Context, msg notification.Message) error {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
	if c.SendFn != nil {
		return c.SendFn(ctx, msg)
	}
	return nil
}

func (c *Channel) Shutdown(ctx context.Context) error {
	if c.ShutdownFn != nil {
		return c.ShutdownFn(ctx)
	}
	return nil
}

// Messages returns every attempted send, including failed ones.
func (c *Channel) Messages() []notification.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notification.Message(nil), c.messages...)
}
