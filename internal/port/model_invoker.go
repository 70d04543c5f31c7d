package port

import (
	"context"

	"attrix/internal/domain"
)

// InvokeInput carries everything a provider needs for one vision model call.
type InvokeInput struct {
	Prompt      string
	ImageBytes  []byte
	ContentType string
}

// RawResponse is the unvalidated model output plus usage accounting.
type RawResponse struct {
	Content string
	Model   string
	Usage   domain.TokenUsage
}

// ModelInvoker performs a single model call against an upstream provider.
// Implementations classify failures with the typed errors in internal/invoker;
// retry policy lives outside the provider.
type ModelInvoker interface {
	Invoke(ctx context.Context, input InvokeInput) (*RawResponse, error)
	Name() string
}
