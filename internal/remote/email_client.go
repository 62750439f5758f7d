package remote

import (
	"context"
	"net/http"
	"time"
)

// EmailResult is the deliverability verdict for one address.
type EmailResult struct {
	IsValid    bool   `json:"is_valid"`
	Message    string `json:"message,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// EmailClient talks to the email-deliverability service.
type EmailClient struct {
	url    string
	client *http.Client
}

// NewEmailClient creates a client for the deliverability service at url.
func NewEmailClient(url string, timeout time.Duration) *EmailClient {
	return &EmailClient{url: url, client: newHTTPClient(timeout)}
}

type emailVerifyRequest struct {
	Email string `json:"email"`
}

// Verify asks the remote service whether email is deliverable. Transport
// failures and malformed bodies surface as errors; the pipeline treats any
// error as an invalid outcome.
func (c *EmailClient) Verify(ctx context.Context, email string) (*EmailResult, error) {
	var result EmailResult
	if err := postJSON(ctx, c.client, c.url, emailVerifyRequest{Email: email}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
