package generate

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

	"github.com/typix-ai/Typix/internal/pkg/env"
)

const (
	defaultFalAPIBaseURL = "https://fal.run"
	defaultFalModelID    = "fal-ai/flux/schnell"
)

// FalClient runs generation jobs against the fal.ai synchronous HTTP API.
type FalClient struct {
	APIKey     string
	APIBaseURL string

	HTTPClient *http.Client
}

func NewFalClientFromEnv() *FalClient {
	return &FalClient{
		APIKey:     strings.TrimSpace(env.GetEnv("FAL_API_KEY", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("FAL_API_BASE_URL", defaultFalAPIBaseURL)),
		HTTPClient: &http.Client{
			// Image models regularly take tens of seconds.
			Timeout: 120 * time.Second,
		},
	}
}

func (c *FalClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("FAL_API_KEY is not configured")
	}
	modelID := strings.TrimSpace(req.ModelID)
	if modelID == "" {
		modelID = defaultFalModelID
	}

	encoded, err := json.Marshal(map[string]any{
		"prompt": req.Prompt,
	})
	if err != nil {
		return nil, err
	}

	url := strings.TrimRight(c.APIBaseURL, "/") + "/" + strings.TrimLeft(modelID, "/")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Key "+c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fal generation failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var out struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	if len(out.Images) == 0 || strings.TrimSpace(out.Images[0].URL) == "" {
		return nil, errors.New("fal response contained no image")
	}
	return &GenerateResult{ImageURL: out.Images[0].URL}, nil
}
