package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"circles-credit-backend/internal/domain/notification"
)

var ErrNotStarted = errors.New("telegram channel not initialized")

type Options struct {
	// APIEndpoint is a format string taking the token and method, as
	// tgbotapi.APIEndpoint. Empty means the public Bot API.
	APIEndpoint string
	Client      *http.Client
	// Timeout bounds every Bot API request. It is applied to Client when
	// Client has none of its own.
	Timeout time.Duration
}

// Channel delivers messages through the Telegram Bot API.
type Channel struct {
	token string
	opts  Options
	log   *slog.Logger

	mu  sync.RWMutex
	bot *tgbotapi.BotAPI
}

func NewChannel(token string, opts Options, log *slog.Logger) *Channel {
	if opts.APIEndpoint == "" {
		opts.APIEndpoint = tgbotapi.APIEndpoint
	}
	switch {
	case opts.Client == nil:
		opts.Client = &http.Client{Timeout: opts.Timeout}
	case opts.Client.Timeout == 0 && opts.Timeout > 0:
		client := *opts.Client
		client.Timeout = opts.Timeout
		opts.Client = &client
	}
	return &Channel{token: token, opts: opts, log: log.With("component", "telegram")}
}

// Init authenticates the bot with getMe.
func (c *Channel) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bot, err := tgbotapi.NewBotAPIWithClient(c.token, c.opts.APIEndpoint, c.opts.Client)
	if err != nil {
		return fmt.Errorf("telegram init: %w", err)
	}
	c.mu.Lock()
	c.bot = bot
	c.mu.Unlock()
	c.log.Info("telegram bot ready", "username", bot.Self.UserName)
	return nil
}

func (c *Channel) Send(ctx context.Context, msg notification.Message) error {
	c.mu.RLock()
	bot := c.bot
	c.mu.RUnlock()
	if bot == nil {
		return ErrNotStarted
	}

	cfg := tgbotapi.NewMessage(msg.RecipientID, msg.Text)
	cfg.ParseMode = parseMode(msg.Format)
	cfg.DisableWebPagePreview = true
	if msg.Button != nil {
		cfg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(msg.Button.Text, msg.Button.URL)),
		)
	}

	// The bot client has no context support; the result is abandoned on
	// cancel and the request itself ends at the client timeout.
	done := make(chan error, 1)
	go func() {
		_, err := bot.Send(cfg)
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if isTimeout(err) {
			return fmt.Errorf("telegram send to %d: %w: %v", msg.RecipientID, context.DeadlineExceeded, err)
		}
		if err != nil {
			return fmt.Errorf("telegram send to %d: %w", msg.RecipientID, err)
		}
		return nil
	}
}

// isTimeout reports a request that hit the client timeout. The message may
// still have been delivered.
func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (c *Channel) Shutdown(context.Context) error {
	c.mu.Lock()
	c.bot = nil
	c.mu.Unlock()
	return nil
}

func parseMode(f notification.Format) string {
	switch f {
	case notification.FormatMarkdownV2:
		return tgbotapi.ModeMarkdownV2
	case notification.FormatHTML:
		return tgbotapi.ModeHTML
	default:
		return ""
	}
}
