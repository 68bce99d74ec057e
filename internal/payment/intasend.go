package payment

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"poultrymarket/internal/config"
	"poultrymarket/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// IntaSendClient talks to the IntaSend collection API.
type IntaSendClient struct {
	client
	baseURL    string
	challenge  string
	feePercent float64
}

// NewIntaSendClient creates an IntaSend gateway.
func NewIntaSendClient(cfg config.IntaSendConfig, httpClient *http.Client, logger zerolog.Logger) *IntaSendClient {
	return &IntaSendClient{
		client: client{
			http:   httpClient,
			bearer: cfg.SecretKey,
			logger: logger.With().Str("component", "intasend").Logger(),
		},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		challenge:  cfg.WebhookChallenge,
		feePercent: cfg.FeePercent,
	}
}

type intaSendPushRequest struct {
	Amount      string `json:"amount"`
	PhoneNumber string `json:"phone_number"`
	APIRef      string `json:"api_ref"`
	Currency    string `json:"currency"`
}

// intaSendInvoice appears nested in API responses and flat in webhooks.
type intaSendInvoice struct {
	InvoiceID      string          `json:"invoice_id"`
	State          string          `json:"state"`
	Value          decimal.Decimal `json:"value"`
	APIRef         string          `json:"api_ref"`
	MpesaReference string          `json:"mpesa_reference"`
	FailedReason   string          `json:"failed_reason"`
}

type intaSendInvoiceResponse struct {
	Invoice intaSendInvoice `json:"invoice"`
}

func (c *IntaSendClient) Provider() model.Provider { return model.ProviderIntaSend }

func (c *IntaSendClient) FeePercent() float64 { return c.feePercent }

// InitiateSTKPush creates an M-Pesa STK invoice.
func (c *IntaSendClient) InitiateSTKPush(ctx context.Context, req STKPush) (*model.GatewayResult, error) {
	body := intaSendPushRequest{
		Amount:      req.Amount.StringFixed(2),
		PhoneNumber: req.Phone,
		APIRef:      req.PaymentID,
		Currency:    "KES",
	}

	var resp intaSendInvoiceResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/api/v1/payment/mpesa-stk-push/", body, &resp); err != nil {
		return nil, err
	}
	if resp.Invoice.InvoiceID == "" {
		c.logger.Error().Str("payment_id", req.PaymentID).Msg("stk push response has no invoice id")
		return nil, model.ErrGateway
	}

	c.logger.Info().
		Str("payment_id", req.PaymentID).
		Str("invoice_id", resp.Invoice.InvoiceID).
		Msg("stk push sent")

	res := resp.Invoice.result()
	if res.Amount.IsZero() {
		res.Amount = req.Amount
	}
	return res, nil
}

// QueryStatus fetches the invoice state.
func (c *IntaSendClient) QueryStatus(ctx context.Context, reference string) (*model.GatewayResult, error) {
	var resp intaSendInvoiceResponse
	body := map[string]string{"invoice_id": reference}
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/api/v1/payment/status/", body, &resp); err != nil {
		return nil, err
	}
	if resp.Invoice.InvoiceID == "" {
		resp.Invoice.InvoiceID = reference
	}
	return resp.Invoice.result(), nil
}

// ParseCallback verifies the webhook challenge and decodes the body. Without a
// configured challenge every webhook is refused.
func (c *IntaSendClient) ParseCallback(body []byte) (*model.GatewayResult, error) {
	var payload struct {
		intaSendInvoice
		Challenge string `json:"challenge"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, model.NewDomainError(model.ErrCodeInvalidJSON, "Invalid webhook body")
	}

	if c.challenge == "" {
		c.logger.Warn().Str("invoice_id", payload.InvoiceID).Msg("webhook rejected, no challenge configured")
		return nil, model.ErrUnauthorised
	}
	if subtle.ConstantTimeCompare([]byte(payload.Challenge), []byte(c.challenge)) != 1 {
		c.logger.Warn().Str("invoice_id", payload.InvoiceID).Msg("webhook challenge mismatch")
		return nil, model.ErrUnauthorised
	}
	if payload.InvoiceID == "" {
		return nil, model.Validationf("webhook is missing invoice_id")
	}

	return payload.intaSendInvoice.result(), nil
}

func (inv intaSendInvoice) result() *model.GatewayResult {
	res := &model.GatewayResult{
		Provider:   model.ProviderIntaSend,
		ExternalID: inv.InvoiceID + ":" + strings.ToUpper(inv.State),
		Reference:  inv.InvoiceID,
		AccountRef: inv.APIRef,
		Receipt:    inv.MpesaReference,
		Amount:     inv.Value,
		Reason:     inv.FailedReason,
	}

	switch strings.ToUpper(inv.State) {
	case "COMPLETE":
		res.State = model.GatewaySucceeded
	case "FAILED":
		res.State = model.GatewayFailed
	default:
		res.State = model.GatewayPending
	}

	return res
}
