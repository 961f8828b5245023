package notification

import "context"

// Button is an inline link shown under a message.
type Button struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Message is one rendered notification ready for a channel.
type Message struct {
	RecipientID int64   `json:"recipient_id"`
	Text        string  `json:"text"`
	Format      Format  `json:"format"`
	Button      *Button `json:"button,omitempty"`
}

// Channel is an external messaging transport. Init and Shutdown bracket its
// use; Send must honour ctx for its deadline.
type Channel interface {
	Init(ctx context.Context) error
	Send(ctx context.Context, msg Message) error
	Shutdown(ctx context.Context) error
}
