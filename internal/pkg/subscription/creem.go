package subscription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/typix-ai/Typix/internal/pkg/env"
)

const defaultCreemAPIBaseURL = "https://api.creem.io/v1"

// CheckoutClient creates hosted checkout sessions at the payment provider.
type CheckoutClient interface {
	CreateCheckout(ctx context.Context, req CreateCheckoutRequest) (string, error)
}

// CreateCheckoutRequest carries what the provider needs to build a checkout
// page. RequestID is generated when empty so every session can be traced back.
type CreateCheckoutRequest struct {
	ProductID     string
	CustomerEmail string
	SuccessURL    string
	RequestID     string
}

// CreemClient talks to the Creem REST API.
type CreemClient struct {
	APIKey     string
	APIBaseURL string

	HTTPClient *http.Client
}

func NewCreemClientFromEnv() *CreemClient {
	return &CreemClient{
		APIKey:     strings.TrimSpace(env.GetEnv("CREEM_API_KEY", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("CREEM_API_BASE_URL", defaultCreemAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *CreemClient) CreateCheckout(ctx context.Context, req CreateCheckoutRequest) (string, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return "", errors.New("CREEM_API_KEY is not configured")
	}
	if strings.TrimSpace(req.ProductID) == "" {
		return "", errors.New("product id is required")
	}
	requestID := strings.TrimSpace(req.RequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	body := map[string]any{
		"product_id": req.ProductID,
		"request_id": requestID,
		"customer": map[string]any{
			"email": req.CustomerEmail,
		},
	}
	if req.SuccessURL != "" {
		body["success_url"] = req.SuccessURL
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.APIBaseURL, "/")+"/checkouts", bytes.NewReader(encoded))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("creem checkout creation failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var out struct {
		CheckoutURL string `json:"checkout_url"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.CheckoutURL) == "" {
		return "", errors.New("creem checkout response missing checkout_url")
	}
	return out.CheckoutURL, nil
}
