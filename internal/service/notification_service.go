package service

import (
	"context"

	"poultrymarket/internal/model"
	"poultrymarket/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type notificationService struct {
	notifications repository.NotificationRepository
	logger        zerolog.Logger
}

// NewNotificationService creates the read side of in-app notifications.
func NewNotificationService(notificationRepo repository.NotificationRepository, logger zerolog.Logger) NotificationService {
	return &notificationService{
		notifications: notificationRepo,
		logger:        logger.With().Str("service", "notification").Logger(),
	}
}

func (s *notificationService) List(ctx context.Context, user *model.User, unreadOnly bool, page model.Page) ([]model.Notification, error) {
	return s.notifications.List(ctx, user.ID, unreadOnly, page)
}

func (s *notificationService) UnreadCount(ctx context.Context, user *model.User) (int, error) {
	return s.notifications.UnreadCount(ctx, user.ID)
}

func (s *notificationService) MarkRead(ctx context.Context, user *model.User, id uuid.UUID) error {
	ok, err := s.notifications.MarkRead(ctx, user.ID, id)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrNotificationMissing
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, user *model.User) (int64, error) {
	n, err := s.notifications.MarkAllRead(ctx, user.ID)
	if err != nil {
		return 0, err
	}
	s.logger.Debug().Str("user_id", user.ID.String()).Int64("count", n).Msg("notifications marked read")
	return n, nil
}
