// Package payments creates payment orders for pending bookings.
package payments

import (
	"context"
	"fmt"
	"wanderlust/pkg/client"
	"wanderlust/pkg/config"
	"wanderlust/pkg/model"
)

type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*model.PaymentOrder, error)
}

// NewGateway returns the live gateway when API keys are configured and the
// demo gateway otherwise.
func NewGateway(cfg *config.Config) Gateway {
	if !cfg.PaymentsLive() {
		cfg.Log.Warn("Payment keys not configured, using demo payment gateway")
		return NewDemoGateway(cfg.RazorpayKeyID)
	}
	httpClient := client.NewHttpClient(cfg.RazorpayBaseURL, cfg.PaymentRequestTimeout).
		WithBasicAuth(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	return NewRazorpayGateway(httpClient, cfg.RazorpayKeyID)
}

type RazorpayGateway struct {
	client *client.HttpClient
	keyID  string
}

func NewRazorpayGateway(httpClient *client.HttpClient, keyID string) *RazorpayGateway {
	return &RazorpayGateway{client: httpClient, keyID: keyID}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*model.PaymentOrder, error) {
	resp, err := g.client.POST(ctx, "/v1/orders", createOrderRequest{
		Amount:   amountMinor,
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment order: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("payment gateway rejected order (status %d): %s", resp.StatusCode, client.GetErrorMessage(resp))
	}

	var order orderResponse
	if err := resp.DecodeJSON(&order); err != nil {
		return nil, fmt.Errorf("failed to decode payment order: %w", err)
	}

	return &model.PaymentOrder{
		ID:       order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Receipt:  order.Receipt,
		KeyID:    g.keyID,
	}, nil
}

// DemoGateway issues orders without an ID; the client completes payment
// without a hosted checkout.
type DemoGateway struct {
	keyID string
}

func NewDemoGateway(keyID string) *DemoGateway {
	return &DemoGateway{keyID: keyID}
}

func (g *DemoGateway) CreateOrder(_ context.Context, amountMinor int64, currency, receipt string) (*model.PaymentOrder, error) {
	return &model.PaymentOrder{
		Amount:   amountMinor,
		Currency: currency,
		Receipt:  receipt,
		KeyID:    g.keyID,
	}, nil
}

func Receipt(bookingID string) string {
	return "booking_" + bookingID
}
