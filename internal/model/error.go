package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodeMissingField       = "MISSING_FIELD"
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeInvalidPromoCode   = "INVALID_PROMO_CODE"
	ErrCodeInvalidQuantity    = "INVALID_QUANTITY"
	ErrCodeInsufficientStock  = "INSUFFICIENT_STOCK"
	ErrCodeInvalidPhone       = "INVALID_PHONE"
	ErrCodeInvalidTransition  = "INVALID_STATUS_TRANSITION"
	ErrCodeProductNotFound    = "PRODUCT_NOT_FOUND"
	ErrCodeProductUnavailable = "PRODUCT_UNAVAILABLE"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeUnauthorised       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeAccountSuspended   = "ACCOUNT_SUSPENDED"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeGatewayError       = "PAYMENT_GATEWAY_ERROR"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// DomainError is a business-rule failure that is safe to show to API clients.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Validationf builds a VALIDATION_FAILED error with a formatted message.
func Validationf(format string, args ...any) *DomainError {
	return NewDomainError(ErrCodeValidation, fmt.Sprintf(format, args...))
}

// NotFound builds a NOT_FOUND error for the named resource.
func NotFound(resource string) *DomainError {
	return NewDomainError(ErrCodeNotFound, resource+" not found")
}

// ErrorCode extracts the domain code from err, or ErrCodeInternalError.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternalError
}

// Common domain errors
var (
	ErrInvalidPromoCode    = NewDomainError(ErrCodeInvalidPromoCode, "Promo code is not valid")
	ErrProductNotFound     = NewDomainError(ErrCodeProductNotFound, "One or more products not found")
	ErrProductUnavailable  = NewDomainError(ErrCodeProductUnavailable, "Product is no longer available")
	ErrInvalidQuantity     = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInsufficientStock   = NewDomainError(ErrCodeInsufficientStock, "Not enough stock for one or more products")
	ErrInvalidPhone        = NewDomainError(ErrCodeInvalidPhone, "Phone number must be a valid Kenyan mobile number")
	ErrInvalidTransition   = NewDomainError(ErrCodeInvalidTransition, "Status change is not allowed from the current state")
	ErrUnauthorised        = NewDomainError(ErrCodeUnauthorised, "Authentication required")
	ErrInvalidCredentials  = NewDomainError(ErrCodeInvalidCredentials, "Invalid email or password")
	ErrTokenExpired        = NewDomainError(ErrCodeTokenExpired, "Session has expired")
	ErrForbidden           = NewDomainError(ErrCodeForbidden, "You are not allowed to perform this action")
	ErrAccountSuspended    = NewDomainError(ErrCodeAccountSuspended, "Account is suspended")
	ErrEmailTaken          = NewDomainError(ErrCodeConflict, "Email is already registered")
	ErrDuplicate           = NewDomainError(ErrCodeConflict, "Resource already exists")
	ErrGateway             = NewDomainError(ErrCodeGatewayError, "Payment provider request failed")
	ErrOrderNotFound       = NotFound("order")
	ErrPaymentNotFound     = NotFound("payment")
	ErrDeliveryNotFound    = NotFound("delivery")
	ErrUserNotFound        = NotFound("user")
	ErrPostNotFound        = NotFound("post")
	ErrAuthorNotFound      = NotFound("author")
	ErrConversationMissing = NotFound("conversation")
	ErrNotificationMissing = NotFound("notification")
)

// HTTPStatus maps a domain error code to the response status.
func HTTPStatus(code string) int {
	switch code {
	case ErrCodeInvalidJSON, ErrCodeMissingField, ErrCodeValidation, ErrCodeInvalidPromoCode,
		ErrCodeInvalidQuantity, ErrCodeInsufficientStock, ErrCodeInvalidPhone, ErrCodeInvalidTransition:
		return http.StatusBadRequest
	case ErrCodeUnauthorised, ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeAccountSuspended:
		return http.StatusForbidden
	case ErrCodeNotFound, ErrCodeProductNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeProductUnavailable, ErrCodeTokenExpired:
		return http.StatusGone
	case ErrCodeGatewayError:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
