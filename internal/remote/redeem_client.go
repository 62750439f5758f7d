package remote

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// RedeemResult is the authority's verdict on one code.
type RedeemResult struct {
	Success        bool   `json:"success"`
	DiscountAmount int    `json:"discountAmount"`
	DiscountType   string `json:"discountType"`
	Message        string `json:"message,omitempty"`
}

// RedeemClient talks to the redeem-code authority.
type RedeemClient struct {
	validateURL string
	consumeURL  string
	client      *http.Client
}

// NewRedeemClient creates a client for the redeem authority.
func NewRedeemClient(validateURL, consumeURL string, timeout time.Duration) *RedeemClient {
	return &RedeemClient{
		validateURL: validateURL,
		consumeURL:  consumeURL,
		client:      newHTTPClient(timeout),
	}
}

type redeemCodeRequest struct {
	Code string `json:"code"`
}

// Validate asks the authority whether code is currently valid. A successful
// response with an unrecognized discount type is treated as malformed, so
// callers never store a descriptor they cannot price.
func (c *RedeemClient) Validate(ctx context.Context, code string) (*RedeemResult, error) {
	var result RedeemResult
	if err := postJSON(ctx, c.client, c.validateURL, redeemCodeRequest{Code: code}, &result); err != nil {
		return nil, err
	}
	if result.Success && result.DiscountType != "percent" && result.DiscountType != "fixed" {
		return nil, fmt.Errorf("unknown discount type %q for code %s", result.DiscountType, code)
	}
	return &result, nil
}

// Consume signals that code was used on a completed order. Best-effort: the
// caller logs failures but never blocks on them.
func (c *RedeemClient) Consume(ctx context.Context, code string) error {
	return postJSON(ctx, c.client, c.consumeURL, redeemCodeRequest{Code: code}, nil)
}
