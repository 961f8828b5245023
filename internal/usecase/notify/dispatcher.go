package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"circles-credit-backend/internal/domain/member"
	"circles-credit-backend/internal/domain/notification"
	"circles-credit-backend/pkg/id"
)

const (
	defaultSendTimeout = 10 * time.Second
	defaultDedupeTTL   = 24 * time.Hour
)

type Options struct {
	// FallbackRecipient receives notifications nobody else claims. Zero
	// disables the fallback.
	FallbackRecipient int64
	SendTimeout       time.Duration
	DedupeTTL         time.Duration
}

// Dispatcher resolves, renders and delivers notifications. It never fails
// its caller: every problem is logged and reported in the Outcome.
type Dispatcher struct {
	channel    notification.Channel
	members    member.Directory
	renderer   *Renderer
	dedupe     notification.Deduper
	deliveries notification.Repository
	opts       Options
	log        *slog.Logger
}

// NewDispatcher takes optional members, dedupe and deliveries; nil disables
// lookup, duplicate suppression and the audit trail respectively.
func NewDispatcher(
	ch notification.Channel,
	members member.Directory,
	renderer *Renderer,
	dedupe notification.Deduper,
	deliveries notification.Repository,
	opts Options,
	log *slog.Logger,
) *Dispatcher {
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	if opts.DedupeTTL <= 0 {
		opts.DedupeTTL = defaultDedupeTTL
	}
	return &Dispatcher{
		channel:    ch,
		members:    members,
		renderer:   renderer,
		dedupe:     dedupe,
		deliveries: deliveries,
		opts:       opts,
		log:        log.With("component", "notify"),
	}
}

func (d *Dispatcher) Start(ctx context.Context) error { return d.channel.Init(ctx) }

func (d *Dispatcher) Close(ctx context.Context) error { return d.channel.Shutdown(ctx) }

func (d *Dispatcher) Dispatch(ctx context.Context, n notification.Notification) notification.Outcome {
	out := notification.Outcome{Kind: n.Kind, LoanID: n.LoanID}
	log := d.log.With("kind", n.Kind, "loan_id", n.LoanID)

	borrower := d.lookup(ctx, log, n.Borrower)
	recipient := n.RecipientID
	if recipient == 0 && borrower != nil {
		recipient = borrower.RecipientID
	}
	if recipient == 0 {
		recipient = d.opts.FallbackRecipient
	}
	if recipient == 0 {
		out.Status = notification.StatusSkipped
		out.Error = "no recipient"
		log.Warn("notification skipped, no recipient resolved", "borrower", n.Borrower)
		return out
	}
	out.RecipientID = recipient
	log = log.With("recipient", recipient)

	if n.Payload.RequesterName == "" && borrower != nil {
		n.Payload.RequesterName = borrower.DisplayName()
	}
	if n.Payload.VoucherName == "" && n.Payload.VoucherAddress != "" {
		if v := d.lookup(ctx, log, n.Payload.VoucherAddress); v != nil {
			n.Payload.VoucherName = v.DisplayName()
		}
	}

	key := n.DedupeKey(recipient)
	claimed := false
	if d.dedupe != nil && n.Kind != notification.KindTest {
		ok, err := d.dedupe.Claim(ctx, key, d.opts.DedupeTTL)
		switch {
		case err != nil:
			log.Warn("dedupe claim failed, sending anyway", "err", err)
		case !ok:
			out.Status = notification.StatusDuplicate
			log.Info("notification already sent", "dedupe_key", key)
			return out
		default:
			claimed = true
		}
	}

	var lastErr error
	for _, f := range FallbackOrder {
		out.Attempts++
		msg := d.renderer.Render(n, f)
		msg.RecipientID = recipient

		sctx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
		err := d.channel.Send(sctx, msg)
		cancel()
		if err == nil {
			out.Status = notification.StatusDelivered
			out.Format = f
			lastErr = nil
			break
		}
		lastErr = err
		log.Warn("notification send failed", "format", f, "attempt", out.Attempts, "err", err)
		if errors.Is(err, context.DeadlineExceeded) {
			// A timed out send may still land; another format would repeat it.
			break
		}
	}

	if lastErr != nil {
		out.Status = notification.StatusFailed
		out.Error = lastErr.Error()
		log.Error("notification not delivered", "attempts", out.Attempts, "err", lastErr)
		if claimed {
			if err := d.dedupe.Release(context.WithoutCancel(ctx), key); err != nil {
				log.Warn("dedupe release failed", "err", err)
			}
		}
	} else {
		log.Info("notification delivered", "format", out.Format, "attempts", out.Attempts)
	}

	d.record(ctx, log, key, out)
	return out
}

func (d *Dispatcher) lookup(ctx context.Context, log *slog.Logger, address string) *member.Member {
	if d.members == nil || address == "" {
		return nil
	}
	m, err := d.members.Lookup(ctx, address)
	if err != nil {
		if !errors.Is(err, member.ErrNotFound) {
			log.Warn("member lookup failed", "address", address, "err", err)
		}
		return nil
	}
	return m
}

func (d *Dispatcher) record(ctx context.Context, log *slog.Logger, key string, out notification.Outcome) {
	if d.deliveries == nil {
		return
	}
	err := d.deliveries.Create(context.WithoutCancel(ctx), &notification.Delivery{
		DeliveryID:  id.NewID32(),
		Kind:        out.Kind,
		LoanID:      out.LoanID,
		RecipientID: out.RecipientID,
		Format:      out.Format,
		Status:      out.Status,
		Attempts:    out.Attempts,
		Error:       out.Error,
		DedupeKey:   key,
	})
	if err != nil {
		log.Warn("delivery audit write failed", "err", err)
	}
}
