package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"poultrymarket/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const conversationColumns = `id, user_a, user_b, last_message_at, created_at`

// chatRepository implements the ChatRepository interface using PostgreSQL.
type chatRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewChatRepository creates a new PostgreSQL-backed chat repository.
func NewChatRepository(pool *pgxpool.Pool, logger zerolog.Logger) ChatRepository {
	return &chatRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "chat").Logger(),
	}
}

// GetOrCreateConversation upserts the conversation for a pair of users.
func (r *chatRepository) GetOrCreateConversation(ctx context.Context, userA, userB uuid.UUID) (*model.Conversation, error) {
	userA, userB = model.OrderedPair(userA, userB)

	insert := `
		INSERT INTO conversations (id, user_a, user_b, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_a, user_b) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, insert, uuid.New(), userA, userB); err != nil {
		r.logger.Error().Err(err).Msg("failed to create conversation")
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE user_a = $1 AND user_b = $2`, userA, userB)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query conversation")
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[model.Conversation])
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}

	return c, nil
}

// GetConversation retrieves a conversation by id.
func (r *chatRepository) GetConversation(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("conversation_id", id.String()).Msg("failed to query conversation")
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}

	c, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Conversation])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}

	return c, nil
}

// ListConversations returns a user's conversations, most recently active first.
func (r *chatRepository) ListConversations(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE user_a = $1 OR user_b = $1
		ORDER BY COALESCE(last_message_at, created_at) DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query conversations")
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}

	conversations, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Conversation])
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to scan conversation rows")
		return nil, fmt.Errorf("failed to scan conversations: %w", err)
	}

	return conversations, nil
}

// AddMessage stores a message and touches its conversation.
func (r *chatRepository) AddMessage(ctx context.Context, tx pgx.Tx, m *model.Message) error {
	batch := &pgx.Batch{}
	batch.Queue(
		`INSERT INTO messages (id, conversation_id, sender_id, body, created_at) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.ConversationID, m.SenderID, m.Body, m.CreatedAt,
	)
	batch.Queue(`UPDATE conversations SET last_message_at = $2 WHERE id = $1`, m.ConversationID, m.CreatedAt)

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().Err(err).Str("conversation_id", m.ConversationID.String()).Msg("failed to add message")
			return fmt.Errorf("failed to add message: %w", err)
		}
	}

	return nil
}

// ListMessages pages backwards through a conversation.
func (r *chatRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, before *time.Time, limit int) ([]model.Message, error) {
	limit, _ = pageBounds(model.Page{Limit: limit})

	query := `
		SELECT id, conversation_id, sender_id, body, read_at, created_at
		FROM messages
		WHERE conversation_id = $1
		  AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, conversationID, before, limit)
	if err != nil {
		r.logger.Error().Err(err).Str("conversation_id", conversationID.String()).Msg("failed to query messages")
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	messages, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Message])
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to scan message rows")
		return nil, fmt.Errorf("failed to scan messages: %w", err)
	}

	return messages, nil
}

// MarkRead stamps the other participant's unread messages.
func (r *chatRepository) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	query := `
		UPDATE messages SET read_at = NOW()
		WHERE conversation_id = $1 AND sender_id <> $2 AND read_at IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, conversationID, readerID)
	if err != nil {
		r.logger.Error().Err(err).Str("conversation_id", conversationID.String()).Msg("failed to mark messages read")
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}

	return tag.RowsAffected(), nil
}
