package service

import (
	"context"
	"strings"
	"time"

	"poultrymarket/internal/model"
	"poultrymarket/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	maxMessageLength = 4000
	previewLength    = 80
)

// chatService implements ChatService.
type chatService struct {
	tx       repository.TxManager
	chats    repository.ChatRepository
	users    repository.UserRepository
	notifier Notifier
	logger   zerolog.Logger
}

// NewChatService creates a new chat service.
func NewChatService(
	tx repository.TxManager,
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	notifier Notifier,
	logger zerolog.Logger,
) ChatService {
	return &chatService{
		tx:       tx,
		chats:    chatRepo,
		users:    userRepo,
		notifier: notifier,
		logger:   logger.With().Str("service", "chat").Logger(),
	}
}

// Start returns the pair's conversation, creating it on first contact.
func (s *chatService) Start(ctx context.Context, user *model.User, participantID uuid.UUID) (*model.Conversation, error) {
	if participantID == uuid.Nil {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "participantId is required")
	}
	if participantID == user.ID {
		return nil, model.Validationf("you cannot start a conversation with yourself")
	}

	other, err := s.users.GetByID(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if other == nil {
		return nil, model.ErrUserNotFound
	}

	return s.chats.GetOrCreateConversation(ctx, user.ID, participantID)
}

func (s *chatService) ListConversations(ctx context.Context, user *model.User) ([]model.Conversation, error) {
	return s.chats.ListConversations(ctx, user.ID)
}

func (s *chatService) ListMessages(ctx context.Context, user *model.User, conversationID uuid.UUID, before *time.Time, limit int) ([]model.Message, error) {
	if _, err := s.conversation(ctx, user, conversationID); err != nil {
		return nil, err
	}
	return s.chats.ListMessages(ctx, conversationID, before, limit)
}

func (s *chatService) Send(ctx context.Context, user *model.User, conversationID uuid.UUID, body string) (*model.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "body is required")
	}
	if len([]rune(body)) > maxMessageLength {
		return nil, model.Validationf("body must be at most %d characters", maxMessageLength)
	}

	c, err := s.conversation(ctx, user, conversationID)
	if err != nil {
		return nil, err
	}

	m := &model.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       user.ID,
		Body:           body,
		CreatedAt:      time.Now(),
	}
	err = s.tx.WithTx(ctx, "send message", func(ctx context.Context, tx pgx.Tx) error {
		return s.chats.AddMessage(ctx, tx, m)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, model.NewNotification(c.Other(user.ID), model.NotifyNewMessage,
		"New message from "+user.FullName, preview(body),
		map[string]string{"conversationId": conversationID.String(), "messageId": m.ID.String()}))

	return m, nil
}

func (s *chatService) MarkRead(ctx context.Context, user *model.User, conversationID uuid.UUID) (int64, error) {
	if _, err := s.conversation(ctx, user, conversationID); err != nil {
		return 0, err
	}
	return s.chats.MarkRead(ctx, conversationID, user.ID)
}

// conversation loads a conversation the user takes part in.
func (s *chatService) conversation(ctx context.Context, user *model.User, id uuid.UUID) (*model.Conversation, error) {
	c, err := s.chats.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil || !c.HasParticipant(user.ID) {
		return nil, model.ErrConversationMissing
	}
	return c, nil
}

func preview(body string) string {
	r := []rune(body)
	if len(r) <= previewLength {
		return body
	}
	return string(r[:previewLength]) + "..."
}
