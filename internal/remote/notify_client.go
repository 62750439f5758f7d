package remote

import (
	"context"
	"net/http"
	"time"

	"github.com/fairyhunter13/hosting-checkout/internal/model"
)

// OrderNotification is the wire payload sent to the order-notification sink.
type OrderNotification struct {
	ServerName   string          `json:"server_name"`
	CustomerName string          `json:"customer_name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone,omitempty"`
	Discord      string          `json:"discord,omitempty"`
	PlanID       string          `json:"plan_id"`
	PlanName     string          `json:"plan_name"`
	Total        int             `json:"total"`
	Discount     *model.Discount `json:"discount,omitempty"`
	BillingCycle string          `json:"billing_cycle"`
	Timestamp    time.Time       `json:"timestamp"`
}

// NotifyResult is the sink's acknowledgement.
type NotifyResult struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id,omitempty"`
}

// NotifyClient talks to the order-notification sink.
type NotifyClient struct {
	url    string
	client *http.Client
}

// NewNotifyClient creates a client for the notification sink at url.
func NewNotifyClient(url string, timeout time.Duration) *NotifyClient {
	return &NotifyClient{url: url, client: newHTTPClient(timeout)}
}

// Notify sends one order notification. Transport errors and non-success
// acknowledgements are equivalent to the dispatcher: both are retryable.
func (c *NotifyClient) Notify(ctx context.Context, n *OrderNotification) (*NotifyResult, error) {
	var result NotifyResult
	if err := postJSON(ctx, c.client, c.url, n, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
