package anthropic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attrix/internal/config"
	"attrix/internal/invoker"
	"attrix/internal/invoker/anthropic"
	"attrix/internal/port"
)

func testInput() port.InvokeInput {
	return port.InvokeInput{
		Prompt:      "extract attributes",
		ImageBytes:  []byte{0x89, 0x50, 0x4E, 0x47},
		ContentType: "image/png",
	}
}

func TestInvoke_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content":     []map[string]string{{"type": "text", "text": `{"attributes":{}}`}},
			"stop_reason": "end_turn",
			"usage":       map[string]int{"input_tokens": 90, "output_tokens": 30},
		})
	}))
	defer srv.Close()

	c := anthropic.NewClientWithEndpoint(&config.ProviderConfig{APIKey: "test-key"}, srv.URL)

	resp, err := c.Invoke(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, `{"attributes":{}}`, resp.Content)
	assert.Equal(t, 120, resp.Usage.TotalTokens)
	assert.Equal(t, 90, resp.Usage.PromptTokens)
}

func TestInvoke_AuthFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid key"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c := anthropic.NewClientWithEndpoint(&config.ProviderConfig{APIKey: "bad"}, srv.URL)

	_, err := c.Invoke(context.Background(), testInput())
	var authErr *invoker.AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestInvoke_MaxTokensStopRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content":     []map[string]string{{"type": "text", "text": `{"attr`}},
			"stop_reason": "max_tokens",
		})
	}))
	defer srv.Close()

	c := anthropic.NewClientWithEndpoint(&config.ProviderConfig{APIKey: "k"}, srv.URL)

	_, err := c.Invoke(context.Background(), testInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_tokens")
}
