package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func TestNewGenerationService(t *testing.T) {
	_, err := NewGenerationService(Config{})
	require.Error(t, err)

	svc, err := NewGenerationService(Config{APIKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, svc.ModelName())
}

func TestGenerationService_Generate(t *testing.T) {
	var got messagesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"The capital "},{"type":"text","text":"is Paris."}],"stop_reason":"end_turn"}`))
	}))
	defer server.Close()

	svc, err := NewGenerationService(Config{APIKey: "sk-ant", BaseURL: server.URL})
	require.NoError(t, err)

	out, err := svc.Generate(context.Background(), "prompt", driven.GenerateOptions{})

	require.NoError(t, err)
	assert.Equal(t, "The capital is Paris.", out)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	assert.Equal(t, []message{{Role: "user", Content: "prompt"}}, got.Messages)
}

func TestGenerationService_Generate_NoText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[],"stop_reason":"max_tokens"}`))
	}))
	defer server.Close()

	svc, err := NewGenerationService(Config{APIKey: "sk", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "p", driven.GenerateOptions{MaxTokens: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_tokens")
}

func TestGenerationService_Generate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad model"}}`))
	}))
	defer server.Close()

	svc, err := NewGenerationService(Config{APIKey: "sk", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "p", driven.GenerateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad model")
}
