package handler

import (
	"errors"
	"net/http"
	"testing"

	"poultrymarket/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestProductHandler_List(t *testing.T) {
	logger := zerolog.Nop()
	sellerID := uuid.New()

	testProducts := []model.Product{
		{ID: uuid.New(), SellerID: sellerID, Name: "Kienyeji eggs (tray)", Category: "eggs", Price: decimal.RequireFromString("450"), IsActive: true},
		{ID: uuid.New(), SellerID: sellerID, Name: "Broiler (whole)", Category: "meat", Price: decimal.RequireFromString("700"), IsActive: true},
	}

	tests := []struct {
		name           string
		query          string
		expectedFilter model.ProductFilter
		mockReturn     []model.Product
		mockError      error
		expectedStatus int
		expectedCount  int
		expectService  bool
	}{
		{
			name:           "Default paging",
			query:          "",
			expectedFilter: model.ProductFilter{},
			mockReturn:     testProducts,
			expectedStatus: http.StatusOK,
			expectedCount:  2,
			expectService:  true,
		},
		{
			name:  "All filters",
			query: "?category=eggs&search=tray&sellerId=" + sellerID.String() + "&limit=5&offset=10",
			expectedFilter: model.ProductFilter{
				Category: "eggs",
				Search:   "tray",
				SellerID: &sellerID,
				Page:     model.Page{Limit: 5, Offset: 10},
			},
			mockReturn:     testProducts[:1],
			expectedStatus: http.StatusOK,
			expectedCount:  1,
			expectService:  true,
		},
		{
			name:           "Invalid limit",
			query:          "?limit=invalid",
			expectedStatus: http.StatusBadRequest,
			expectService:  false,
		},
		{
			name:           "Negative offset",
			query:          "?offset=-1",
			expectedStatus: http.StatusBadRequest,
			expectService:  false,
		},
		{
			name:           "Invalid seller id",
			query:          "?sellerId=nope",
			expectedStatus: http.StatusBadRequest,
			expectService:  false,
		},
		{
			name:           "Service error",
			query:          "",
			expectedFilter: model.ProductFilter{},
			mockError:      errors.New("database error"),
			expectedStatus: http.StatusInternalServerError,
			expectService:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockProductService)
			handler := NewProductHandler(mockService, logger)

			if tt.expectService {
				mockService.On("List", mock.Anything, tt.expectedFilter).Return(tt.mockReturn, tt.mockError)
			}

			w := call(t, "/api/products", handler.List, http.MethodGet, "/api/products"+tt.query, nil, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Len(t, decodeBody[[]model.Product](t, w), tt.expectedCount)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestProductHandler_Get(t *testing.T) {
	logger := zerolog.Nop()
	productID := uuid.New()

	tests := []struct {
		name           string
		path           string
		viewer         *model.User
		mockReturn     *model.Product
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Anonymous viewer",
			path:           "/api/products/" + productID.String(),
			mockReturn:     &model.Product{ID: productID, Name: "Eggs", IsActive: true},
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Inactive product",
			path:           "/api/products/" + productID.String(),
			mockError:      model.ErrProductUnavailable,
			expectedStatus: http.StatusGone,
			expectService:  true,
		},
		{
			name:           "Not found",
			path:           "/api/products/" + productID.String(),
			mockError:      model.NotFound("product"),
			expectedStatus: http.StatusNotFound,
			expectService:  true,
		},
		{
			name:           "Invalid UUID format",
			path:           "/api/products/abc",
			expectedStatus: http.StatusBadRequest,
			expectService:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockProductService)
			handler := NewProductHandler(mockService, logger)

			if tt.expectService {
				mockService.On("Get", mock.Anything, tt.viewer, productID).Return(tt.mockReturn, tt.mockError)
			}

			w := call(t, "/api/products/{id}", handler.Get, http.MethodGet, tt.path, nil, tt.viewer)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestProductHandler_Mutations(t *testing.T) {
	logger := zerolog.Nop()
	seller := newUser(model.RoleSeller)
	productID := uuid.New()
	req := model.ProductRequest{Name: "Eggs", Category: "eggs", Price: decimal.RequireFromString("450"), Unit: "tray", Stock: 10}

	t.Run("create", func(t *testing.T) {
		mockService := new(MockProductService)
		handler := NewProductHandler(mockService, logger)
		mockService.On("Create", mock.Anything, seller, mock.MatchedBy(func(r *model.ProductRequest) bool {
			return r.Name == "Eggs" && r.Price.Equal(decimal.RequireFromString("450")) && r.Stock == 10
		})).Return(&model.Product{ID: productID, SellerID: seller.ID, Name: "Eggs"}, nil)

		w := call(t, "/api/products", handler.Create, http.MethodPost, "/api/products", req, seller)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, productID, decodeBody[model.Product](t, w).ID)
		mockService.AssertExpectations(t)
	})

	t.Run("update by non-owner", func(t *testing.T) {
		mockService := new(MockProductService)
		handler := NewProductHandler(mockService, logger)
		mockService.On("Update", mock.Anything, seller, productID, mock.AnythingOfType("*model.ProductRequest")).
			Return(nil, model.ErrForbidden)

		w := call(t, "/api/products/{id}", handler.Update, http.MethodPut, "/api/products/"+productID.String(), req, seller)

		assert.Equal(t, http.StatusForbidden, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("delete", func(t *testing.T) {
		mockService := new(MockProductService)
		handler := NewProductHandler(mockService, logger)
		mockService.On("Delete", mock.Anything, seller, productID).Return(nil)

		w := call(t, "/api/products/{id}", handler.Delete, http.MethodDelete, "/api/products/"+productID.String(), nil, seller)

		assert.Equal(t, http.StatusNoContent, w.Code)
		mockService.AssertExpectations(t)
	})
}
