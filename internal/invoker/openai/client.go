package openai

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

const apiURL = "https://api.openai.com/v1/chat/completions"

const systemPrompt = "You extract structured product attributes from images and respond with JSON only."

// Client implements port.ModelInvoker using the OpenAI Chat Completions API.
type Client struct {
	apiKey    string
	model     string
	endpoint  string
	maxTokens int
	client    *http.Client
}

// NewClient creates an OpenAI-based invoker from a provider config.
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
		model = "gpt-4o"
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
func (c *Client) Name() string { return "openai" }

// Invoke performs one vision chat-completion call.
func (c *Client) Invoke(ctx context.Context, input port.InvokeInput) (*port.RawResponse, error) {
	contentBlocks, err := buildContentBlocks(input)
	if err != nil {
		return nil, err
	}

	reqBody := map[string]interface{}{
		"model":      c.model,
		"max_tokens": c.maxTokens,
		"messages": []map[string]interface{}{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": contentBlocks},
		},
		"temperature": 0.1,
		"response_format": map[string]interface{}{
			"type": "json_object",
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
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, invoker.WrapTransportErr("openai", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, invoker.WrapTransportErr("openai", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, invoker.ClassifyStatus("openai", resp.StatusCode, respBody)
	}

	return parseResponse(respBody, c.model)
}

func buildContentBlocks(input port.InvokeInput) ([]map[string]interface{}, error) {
	if _, ok := domain.AllowedImageTypes[input.ContentType]; !ok {
		return nil, fmt.Errorf("unsupported content type for extraction: %s", input.ContentType)
	}

	encoded := base64.StdEncoding.EncodeToString(input.ImageBytes)
	dataURI := fmt.Sprintf("data:%s;base64,%s", input.ContentType, encoded)

	return []map[string]interface{}{
		{
			"type": "image_url",
			"image_url": map[string]interface{}{
				"url": dataURI,
			},
		},
		{
			"type": "text",
			"text": input.Prompt,
		},
	}, nil
}

// apiResponse models the OpenAI Chat Completions API response.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens      int `json:"total_tokens"`
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func parseResponse(body []byte, model string) (*port.RawResponse, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from API: no choices")
	}

	if resp.Choices[0].FinishReason == "length" {
		return nil, fmt.Errorf("output truncated (finish_reason: length): response exceeded output token limit")
	}

	return &port.RawResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   model,
		Usage: domain.TokenUsage{
			TotalTokens:      resp.Usage.TotalTokens,
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

func init() {
	invoker.RegisterProvider("openai", func(cfg *config.ProviderConfig) (port.ModelInvoker, error) {
		return NewClient(cfg), nil
	})
}
