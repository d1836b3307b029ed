package generate

import "context"

// GenerateRequest describes one image generation job.
type GenerateRequest struct {
	ModelID string
	Prompt  string
}

// GenerateResult is what a provider returns for a finished job.
type GenerateResult struct {
	ImageURL string
}

// Provider runs image generation jobs at an inference backend.
type Provider interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}
