package notify

import (
	"context"
	"fmt"
	"html"

	"poultrymarket/internal/model"
	"poultrymarket/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// Dispatcher fans notifications out to the database, email and the event stream.
type Dispatcher struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	mailer        Mailer
	publisher     Publisher
	concurrency   int
	logger        zerolog.Logger
}

// NewDispatcher creates a dispatcher handling up to concurrency recipients at once.
func NewDispatcher(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	mailer Mailer,
	publisher Publisher,
	concurrency int,
	logger zerolog.Logger,
) *Dispatcher {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Dispatcher{
		notifications: notifications,
		users:         users,
		mailer:        mailer,
		publisher:     publisher,
		concurrency:   concurrency,
		logger:        logger.With().Str("component", "notify").Logger(),
	}
}

// Notify delivers every notification. Failures are logged, never returned, and do not
// stop the remaining deliveries. It returns once all deliveries have been attempted.
func (d *Dispatcher) Notify(ctx context.Context, notifications ...model.Notification) {
	if len(notifications) == 0 {
		return
	}

	// the request may finish before the fan-out does
	ctx = context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(d.concurrency)

	for _, n := range notifications {
		g.Go(func() error {
			d.deliver(ctx, n)
			return nil
		})
	}

	_ = g.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, n model.Notification) {
	log := d.logger.With().
		Str("notification_id", n.ID.String()).
		Str("user_id", n.UserID.String()).
		Str("type", string(n.Type)).
		Logger()

	if err := d.notifications.Create(ctx, &n); err != nil {
		log.Error().Err(err).Msg("failed to store notification")
	}

	if n.Type.Emailed() {
		if err := d.email(ctx, n); err != nil {
			log.Error().Err(err).Msg("failed to email notification")
		}
	}

	if err := d.publisher.Publish(ctx, n); err != nil {
		log.Error().Err(err).Msg("failed to publish notification")
	}
}

func (d *Dispatcher) email(ctx context.Context, n model.Notification) error {
	user, err := d.users.GetByID(ctx, n.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("recipient %s not found", n.UserID)
	}

	return d.mailer.Send(ctx, Email{
		To:       user.Email,
		Subject:  n.Title,
		TextBody: fmt.Sprintf("Hi %s,\n\n%s\n\nPoultryMarket", user.FullName, n.Message),
		HTMLBody: fmt.Sprintf("<p>Hi %s,</p><p>%s</p><p>PoultryMarket</p>",
			html.EscapeString(user.FullName), html.EscapeString(n.Message)),
	})
}
