package handler

import (
	"net/http"
	"testing"

	"poultrymarket/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestDeliveryHandler_Assign(t *testing.T) {
	logger := zerolog.Nop()
	seller := newUser(model.RoleSeller)
	orderID := uuid.New()
	agentID := uuid.New()
	path := "/api/orders/" + orderID.String() + "/delivery"

	tests := []struct {
		name           string
		mockReturn     *model.Delivery
		mockError      error
		expectedStatus int
	}{
		{
			name:           "Assigned",
			mockReturn:     &model.Delivery{ID: uuid.New(), OrderID: orderID, AgentID: agentID, Status: model.DeliveryAssigned},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Order not confirmed",
			mockError:      model.ErrInvalidTransition,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Already assigned",
			mockError:      model.ErrDuplicate,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "Not a seller on the order",
			mockError:      model.ErrForbidden,
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockDeliveryService)
			handler := NewDeliveryHandler(mockService, logger)
			mockService.On("Assign", mock.Anything, seller, orderID, mock.MatchedBy(func(r *model.AssignDeliveryRequest) bool {
				return r.AgentID == agentID && r.PickupAddress == "Farm gate"
			})).Return(tt.mockReturn, tt.mockError)

			w := call(t, "/api/orders/{id}/delivery", handler.Assign, http.MethodPost, path,
				model.AssignDeliveryRequest{AgentID: agentID, PickupAddress: "Farm gate"}, seller)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestDeliveryHandler_AddUpdate(t *testing.T) {
	agent := newUser(model.RoleDeliveryAgent)
	deliveryID := uuid.New()
	lat, lng := -1.2921, 36.8219

	mockService := new(MockDeliveryService)
	handler := NewDeliveryHandler(mockService, zerolog.Nop())
	mockService.On("AddUpdate", mock.Anything, agent, deliveryID, mock.MatchedBy(func(r *model.DeliveryUpdateRequest) bool {
		return r.Status == model.DeliveryInTransit && r.Latitude != nil && *r.Latitude == lat
	})).Return(&model.Delivery{ID: deliveryID, Status: model.DeliveryInTransit}, nil)

	w := call(t, "/api/deliveries/{id}/updates", handler.AddUpdate, http.MethodPost,
		"/api/deliveries/"+deliveryID.String()+"/updates",
		model.DeliveryUpdateRequest{Status: model.DeliveryInTransit, Latitude: &lat, Longitude: &lng}, agent)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.DeliveryInTransit, decodeBody[model.Delivery](t, w).Status)
	mockService.AssertExpectations(t)
}

func TestDeliveryHandler_Reads(t *testing.T) {
	logger := zerolog.Nop()
	agent := newUser(model.RoleDeliveryAgent)
	deliveryID := uuid.New()
	orderID := uuid.New()

	t.Run("list", func(t *testing.T) {
		mockService := new(MockDeliveryService)
		handler := NewDeliveryHandler(mockService, logger)
		mockService.On("List", mock.Anything, agent, model.Page{Limit: 20}).Return([]model.Delivery{{ID: deliveryID}}, nil)

		w := call(t, "/api/deliveries", handler.List, http.MethodGet, "/api/deliveries?limit=20", nil, agent)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decodeBody[[]model.Delivery](t, w), 1)
		mockService.AssertExpectations(t)
	})

	t.Run("get someone else's delivery", func(t *testing.T) {
		mockService := new(MockDeliveryService)
		handler := NewDeliveryHandler(mockService, logger)
		mockService.On("Get", mock.Anything, agent, deliveryID).Return(nil, model.ErrDeliveryNotFound)

		w := call(t, "/api/deliveries/{id}", handler.Get, http.MethodGet, "/api/deliveries/"+deliveryID.String(), nil, agent)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("tracking", func(t *testing.T) {
		customer := newUser(model.RoleCustomer)
		mockService := new(MockDeliveryService)
		handler := NewDeliveryHandler(mockService, logger)
		mockService.On("Tracking", mock.Anything, customer, orderID).
			Return(&model.Delivery{ID: deliveryID, OrderID: orderID, Status: model.DeliveryPickedUp}, nil)

		w := call(t, "/api/orders/{id}/tracking", handler.Tracking, http.MethodGet,
			"/api/orders/"+orderID.String()+"/tracking", nil, customer)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, model.DeliveryPickedUp, decodeBody[model.Delivery](t, w).Status)
		mockService.AssertExpectations(t)
	})
}
