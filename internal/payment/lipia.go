package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"poultrymarket/internal/config"
	"poultrymarket/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LipiaClient talks to the Lipia Online STK push API.
type LipiaClient struct {
	client
	baseURL     string
	callbackURL string
	feePercent  float64
}

// NewLipiaClient creates a Lipia gateway.
func NewLipiaClient(cfg config.LipiaConfig, httpClient *http.Client, logger zerolog.Logger) *LipiaClient {
	return &LipiaClient{
		client: client{
			http:   httpClient,
			bearer: cfg.APIKey,
			logger: logger.With().Str("component", "lipia").Logger(),
		},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		callbackURL: cfg.CallbackURL,
		feePercent:  cfg.FeePercent,
	}
}

type lipiaPushRequest struct {
	PhoneNumber       string `json:"phone_number"`
	Amount            int64  `json:"amount"`
	ExternalReference string `json:"external_reference"`
	CallbackURL       string `json:"callback_url,omitempty"`
}

type lipiaPushResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		TransactionReference string `json:"TransactionReference"`
		ResponseCode         int    `json:"ResponseCode"`
		ResponseDescription  string `json:"ResponseDescription"`
	} `json:"data"`
}

// lipiaTransaction is the shape of both the status response data and the callback body.
type lipiaTransaction struct {
	ExternalReference    string          `json:"ExternalReference"`
	MpesaReceiptNumber   string          `json:"MpesaReceiptNumber"`
	Amount               decimal.Decimal `json:"Amount"`
	Phone                string          `json:"Phone"`
	Status               string          `json:"Status"`
	ResultDesc           string          `json:"ResultDesc"`
	TransactionReference string          `json:"TransactionReference"`
}

func (c *LipiaClient) Provider() model.Provider { return model.ProviderLipia }

func (c *LipiaClient) FeePercent() float64 { return c.feePercent }

// InitiateSTKPush requests an M-Pesa prompt for a whole-shilling amount.
func (c *LipiaClient) InitiateSTKPush(ctx context.Context, req STKPush) (*model.GatewayResult, error) {
	body := lipiaPushRequest{
		PhoneNumber:       req.Phone,
		Amount:            req.Amount.Ceil().IntPart(),
		ExternalReference: req.PaymentID,
		CallbackURL:       c.callbackURL,
	}

	var resp lipiaPushResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/payments/stk-push", body, &resp); err != nil {
		return nil, err
	}

	if !resp.Success || resp.Data.TransactionReference == "" {
		c.logger.Warn().
			Str("payment_id", req.PaymentID).
			Str("message", resp.Message).
			Str("description", resp.Data.ResponseDescription).
			Msg("lipia rejected stk push")
		return nil, model.ErrGateway
	}

	c.logger.Info().
		Str("payment_id", req.PaymentID).
		Str("reference", resp.Data.TransactionReference).
		Msg("stk push sent")

	return &model.GatewayResult{
		Provider:   model.ProviderLipia,
		Reference:  resp.Data.TransactionReference,
		AccountRef: req.PaymentID,
		Amount:     req.Amount,
		State:      model.GatewayPending,
	}, nil
}

// QueryStatus fetches the transaction state for reference.
func (c *LipiaClient) QueryStatus(ctx context.Context, reference string) (*model.GatewayResult, error) {
	var resp struct {
		Success bool             `json:"success"`
		Message string           `json:"message"`
		Data    lipiaTransaction `json:"data"`
	}

	endpoint := c.baseURL + "/payments/status?reference=" + url.QueryEscape(reference)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		c.logger.Warn().Str("reference", reference).Str("message", resp.Message).Msg("lipia status query failed")
		return nil, model.ErrGateway
	}

	if resp.Data.TransactionReference == "" {
		resp.Data.TransactionReference = reference
	}

	return resp.Data.result(), nil
}

// ParseCallback decodes a Lipia callback body.
func (c *LipiaClient) ParseCallback(body []byte) (*model.GatewayResult, error) {
	var payload struct {
		Response lipiaTransaction `json:"response"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, model.NewDomainError(model.ErrCodeInvalidJSON, "Invalid callback body")
	}
	if payload.Response.TransactionReference == "" {
		return nil, model.Validationf("callback is missing TransactionReference")
	}

	return payload.Response.result(), nil
}

func (t lipiaTransaction) result() *model.GatewayResult {
	res := &model.GatewayResult{
		Provider:   model.ProviderLipia,
		ExternalID: t.TransactionReference + ":" + strings.ToUpper(t.Status),
		Reference:  t.TransactionReference,
		AccountRef: t.ExternalReference,
		Receipt:    t.MpesaReceiptNumber,
		Amount:     t.Amount,
		Reason:     t.ResultDesc,
	}

	switch strings.ToLower(t.Status) {
	case "success", "successful", "completed":
		res.State = model.GatewaySucceeded
	case "failed", "cancelled", "canceled":
		res.State = model.GatewayFailed
	default:
		res.State = model.GatewayPending
	}

	return res
}
