package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"poultrymarket/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// maxResponseBytes caps how much of a gateway response is read.
const maxResponseBytes = 1 << 20

// STKPush is a request to prompt a customer's phone for payment.
type STKPush struct {
	PaymentID string
	Phone     string
	Amount    decimal.Decimal
}

// Gateway is an M-Pesa STK push provider.
type Gateway interface {
	Provider() model.Provider

	// FeePercent is the share of the charge the provider keeps.
	FeePercent() float64

	// InitiateSTKPush sends the prompt. The returned result carries the
	// provider reference used to match later callbacks.
	InitiateSTKPush(ctx context.Context, req STKPush) (*model.GatewayResult, error)

	// QueryStatus asks the provider for the current state of a reference.
	QueryStatus(ctx context.Context, reference string) (*model.GatewayResult, error)

	// ParseCallback authenticates and decodes a provider notification.
	ParseCallback(body []byte) (*model.GatewayResult, error)
}

// Gateways looks providers up by name.
type Gateways map[model.Provider]Gateway

// NewGateways indexes the given gateways by provider.
func NewGateways(gateways ...Gateway) Gateways {
	out := make(Gateways, len(gateways))
	for _, g := range gateways {
		out[g.Provider()] = g
	}
	return out
}

// Get returns the gateway for provider or a validation error.
func (g Gateways) Get(provider model.Provider) (Gateway, error) {
	gw, ok := g[provider]
	if !ok {
		return nil, model.Validationf("unsupported payment provider: %s", provider)
	}
	return gw, nil
}

// client is the JSON-over-HTTP plumbing shared by gateway implementations.
type client struct {
	http   *http.Client
	bearer string
	logger zerolog.Logger
}

// do sends body (if any) as JSON and decodes a 2xx response into out.
// Transport failures and non-2xx replies are logged with their detail and
// reported as the bare model.ErrGateway.
func (c *client) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode gateway request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", url).Msg("gateway request failed")
		return model.ErrGateway
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.logger.Error().Err(err).Str("url", url).Msg("failed to read gateway response")
		return model.ErrGateway
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("url", url).
			Bytes("body", raw).
			Msg("gateway returned an error status")
		return model.ErrGateway
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Error().Err(err).Str("url", url).Msg("failed to decode gateway response")
		return model.ErrGateway
	}

	return nil
}
