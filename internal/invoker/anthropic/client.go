package anthropic

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"attrix/internal/config"
	"attrix/internal/domain"
	"attrix/internal/invoker"
	"attrix/internal/port"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
)

// Client implements port.ModelInvoker using the Anthropic Messages API.
type Client struct {
	apiKey    string
	model     string
	endpoint  string
	maxTokens int
	client    *http.Client
}

// NewClient creates a Claude-based invoker from a provider config.
func NewClient(cfg *config.ProviderConfig) *Client {
	return newClient(cfg, apiURL)
}

// NewClientWithEndpoint creates an invoker pointing at a custom API endpoint (for testing).
func NewClientWithEndpoint(cfg *config.ProviderConfig, endpoint string) *Client {
	return newClient(cfg, endpoint)
}

func newClient(cfg *config.ProviderConfig, endpoint string) *Client {
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	return &Client{
		apiKey:    cfg.APIKey,
		model:     model,
		endpoint:  endpoint,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: timeout},
	}
}

// Name returns the provider identifier.
func (c *Client) Name() string { return "anthropic" }

// Invoke performs one vision messages call.
func (c *Client) Invoke(ctx context.Context, input port.InvokeInput) (*port.RawResponse, error) {
	contentBlocks, err := buildContentBlocks(input)
	if err != nil {
		return nil, err
	}

	reqBody := map[string]interface{}{
		"model":      c.model,
		"max_tokens": c.maxTokens,
		"messages": []map[string]interface{}{
			{"role": "user", "content": contentBlocks},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, invoker.WrapTransportErr("anthropic", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, invoker.WrapTransportErr("anthropic", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, invoker.ClassifyStatus("anthropic", resp.StatusCode, respBody)
	}

	return parseResponse(respBody, c.model)
}

func buildContentBlocks(input port.InvokeInput) ([]map[string]interface{}, error) {
	if _, ok := domain.AllowedImageTypes[input.ContentType]; !ok {
		return nil, fmt.Errorf("unsupported content type for extraction: %s", input.ContentType)
	}

	encoded := base64.StdEncoding.EncodeToString(input.ImageBytes)

	return []map[string]interface{}{
		{
			"type": "image",
			"source": map[string]interface{}{
				"type":       "base64",
				"media_type": input.ContentType,
				"data":       encoded,
			},
		},
		{
			"type": "text",
			"text": input.Prompt,
		},
	}, nil
}

// apiResponse models the Anthropic Messages API response.
type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func parseResponse(body []byte, model string) (*port.RawResponse, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("empty response from API")
	}

	if resp.StopReason == "max_tokens" {
		return nil, fmt.Errorf("output truncated (stop_reason: max_tokens): response exceeded output token limit")
	}

	return &port.RawResponse{
		Content: resp.Content[0].Text,
		Model:   model,
		Usage: domain.TokenUsage{
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
		},
	}, nil
}

func init() {
	invoker.RegisterProvider("anthropic", func(cfg *config.ProviderConfig) (port.ModelInvoker, error) {
		return NewClient(cfg), nil
	})
}
