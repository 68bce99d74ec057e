package model

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a two-party chat thread. UserA is always the lower id.
type Conversation struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UserA         uuid.UUID  `json:"userA" db:"user_a"`
	UserB         uuid.UUID  `json:"userB" db:"user_b"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty" db:"last_message_at"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
}

// OrderedPair returns the two ids ordered the way conversations store them.
func OrderedPair(x, y uuid.UUID) (uuid.UUID, uuid.UUID) {
	if x.String() < y.String() {
		return x, y
	}
	return y, x
}

// HasParticipant reports whether userID is part of the conversation.
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.UserA == userID || c.UserB == userID
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID uuid.UUID) uuid.UUID {
	if c.UserA == userID {
		return c.UserB
	}
	return c.UserA
}

// Message is a chat message.
type Message struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	ConversationID uuid.UUID  `json:"conversationId" db:"conversation_id"`
	SenderID       uuid.UUID  `json:"senderId" db:"sender_id"`
	Body           string     `json:"body" db:"body"`
	ReadAt         *time.Time `json:"readAt,omitempty" db:"read_at"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
}

// StartConversationRequest is the payload for POST /api/chat/conversations.
type StartConversationRequest struct {
	ParticipantID uuid.UUID `json:"participantId"`
}

// SendMessageRequest is the payload for POST /api/chat/conversations/{id}/messages.
type SendMessageRequest struct {
	Body string `json:"body"`
}
