package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultRetryDelay is the first backoff step for failed deliveries.
const DefaultRetryDelay = 200 * time.Millisecond

// Dispatcher delivers audit entries and notifications after a transition has
// committed. Failures are retried and logged, never returned: the state
// change already happened.
type Dispatcher struct {
	users      UserDirectory
	notifiers  []Notifier
	auditor    Auditor
	maxRetries uint64
	baseDelay  time.Duration
	logger     *zap.Logger
}

type DispatcherOption func(*Dispatcher)

func WithRetry(maxRetries uint64, baseDelay time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.maxRetries = maxRetries
		d.baseDelay = baseDelay
	}
}

func WithNotifiers(notifiers ...Notifier) DispatcherOption {
	return func(d *Dispatcher) {
		d.notifiers = append(d.notifiers, notifiers...)
	}
}

func WithAuditor(auditor Auditor) DispatcherOption {
	return func(d *Dispatcher) {
		d.auditor = auditor
	}
}

func NewDispatcher(users UserDirectory, logger *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		users:      users,
		maxRetries: 3,
		baseDelay:  DefaultRetryDelay,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.baseDelay <= 0 {
		d.baseDelay = time.Millisecond
	}
	return d
}

// Audit records one audit entry.
func (d *Dispatcher) Audit(ctx context.Context, entry *model.AuditEntry) {
	if d.auditor == nil || entry == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	err := d.withRetry(ctx, func(ctx context.Context) error {
		return d.auditor.Record(ctx, entry)
	})
	if err != nil {
		d.logger.Error("Failed to record audit entry",
			zap.String("action", entry.Action),
			zap.Int64("target_id", entry.TargetID),
			zap.Error(err),
		)
	}
}

// NotifyRequester sends kind to the user who submitted the booking.
func (d *Dispatcher) NotifyRequester(ctx context.Context, kind model.NotificationKind, booking *model.Booking) {
	ctx = context.WithoutCancel(ctx)

	user, err := d.users.GetUser(ctx, booking.RequesterID)
	if err != nil {
		d.logger.Error("Failed to load requester for notification",
			zap.Int64("booking_id", booking.ID),
			zap.Int64("requester_id", booking.RequesterID),
			zap.Error(err),
		)
		return
	}
	if user == nil {
		d.logger.Warn("Requester not found, notification skipped",
			zap.Int64("booking_id", booking.ID),
			zap.Int64("requester_id", booking.RequesterID),
		)
		return
	}

	d.deliver(ctx, kind, booking, []*model.User{user})
}

// NotifyAdmins sends kind to every administrator.
func (d *Dispatcher) NotifyAdmins(ctx context.Context, kind model.NotificationKind, booking *model.Booking) {
	ctx = context.WithoutCancel(ctx)

	admins, err := d.users.ListAdmins(ctx)
	if err != nil {
		d.logger.Error("Failed to list admins for notification",
			zap.Int64("booking_id", booking.ID),
			zap.Error(err),
		)
		return
	}

	d.deliver(ctx, kind, booking, admins)
}

// deliver fans one notification per recipient out to every notifier. Each
// (notifier, recipient) pair is retried on its own so a flaky channel does
// not cause duplicates on a healthy one.
func (d *Dispatcher) deliver(ctx context.Context, kind model.NotificationKind, booking *model.Booking, recipients []*model.User) {
	var g errgroup.Group

	for _, recipient := range recipients {
		for _, notifier := range d.notifiers {
			n := model.Notification{Kind: kind, Booking: booking, Recipient: recipient}
			g.Go(func() error {
				err := d.withRetry(ctx, func(ctx context.Context) error {
					return notifier.Notify(ctx, n)
				})
				if err != nil {
					d.logger.Error("Failed to deliver notification",
						zap.String("kind", string(kind)),
						zap.Int64("booking_id", booking.ID),
						zap.Int64("recipient_id", recipient.ID),
						zap.String("notifier", fmt.Sprintf("%T", notifier)),
						zap.Error(err),
					)
				}
				return nil
			})
		}
	}

	_ = g.Wait()
}

func (d *Dispatcher) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(d.maxRetries, retry.NewExponential(d.baseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
