package handler

import (
	"net/http"
	"testing"
	"time"

	"poultrymarket/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestChatHandler(t *testing.T) {
	logger := zerolog.Nop()
	user := newUser(model.RoleCustomer)
	conversationID := uuid.New()
	base := "/api/chat/conversations/" + conversationID.String()

	t.Run("start", func(t *testing.T) {
		other := uuid.New()
		mockService := new(MockChatService)
		handler := NewChatHandler(mockService, logger)
		mockService.On("Start", mock.Anything, user, other).Return(&model.Conversation{ID: conversationID}, nil)

		w := call(t, "/api/chat/conversations", handler.Start, http.MethodPost, "/api/chat/conversations",
			model.StartConversationRequest{ParticipantID: other}, user)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, conversationID, decodeBody[model.Conversation](t, w).ID)
		mockService.AssertExpectations(t)
	})

	t.Run("list conversations", func(t *testing.T) {
		mockService := new(MockChatService)
		handler := NewChatHandler(mockService, logger)
		mockService.On("ListConversations", mock.Anything, user).Return([]model.Conversation{{ID: conversationID}}, nil)

		w := call(t, "/api/chat/conversations", handler.ListConversations, http.MethodGet, "/api/chat/conversations", nil, user)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("list messages before a cursor", func(t *testing.T) {
		before := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		mockService := new(MockChatService)
		handler := NewChatHandler(mockService, logger)
		mockService.On("ListMessages", mock.Anything, user, conversationID, mock.MatchedBy(func(ts *time.Time) bool {
			return ts != nil && ts.Equal(before)
		}), 25).Return([]model.Message{}, nil)

		w := call(t, "/api/chat/conversations/{id}/messages", handler.ListMessages, http.MethodGet,
			base+"/messages?limit=25&before=2026-03-01T12:00:00Z", nil, user)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("bad cursor", func(t *testing.T) {
		mockService := new(MockChatService)
		handler := NewChatHandler(mockService, logger)

		w := call(t, "/api/chat/conversations/{id}/messages", handler.ListMessages, http.MethodGet,
			base+"/messages?before=yesterday", nil, user)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("send to a conversation the caller is not in", func(t *testing.T) {
		mockService := new(MockChatService)
		handler := NewChatHandler(mockService, logger)
		mockService.On("Send", mock.Anything, user, conversationID, "habari").Return(nil, model.ErrConversationMissing)

		w := call(t, "/api/chat/conversations/{id}/messages", handler.Send, http.MethodPost, base+"/messages",
			model.SendMessageRequest{Body: "habari"}, user)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("mark read", func(t *testing.T) {
		mockService := new(MockChatService)
		handler := NewChatHandler(mockService, logger)
		mockService.On("MarkRead", mock.Anything, user, conversationID).Return(int64(3), nil)

		w := call(t, "/api/chat/conversations/{id}/read", handler.MarkRead, http.MethodPost, base+"/read", nil, user)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(3), decodeBody[map[string]int64](t, w)["updated"])
		mockService.AssertExpectations(t)
	})
}
