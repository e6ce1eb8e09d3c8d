package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubClient struct {
	text string
	err  error
}

func (s *stubClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return s.text, s.err
}

func TestAnthropicComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req anthropicRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "summarize this", req.Messages[0].Content)
		assert.Equal(t, DefaultMaxTokens, req.MaxTokens)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{
				{"type": "text", "text": "a short "},
				{"type": "text", "text": "summary"},
			},
			"stop_reason": "end_turn",
		})
	}))
	defer server.Close()

	client := &AnthropicClient{apiKey: "sk-test", baseURL: server.URL, model: "claude-test", client: server.Client()}

	text, err := client.Complete(context.Background(), CompletionRequest{Prompt: "summarize this"})
	assert.NoError(t, err)
	assert.Equal(t, "a short summary", text)
}

func TestAnthropicCompleteUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"type": "rate_limit_error", "message": "overloaded"},
		})
	}))
	defer server.Close()

	client := &AnthropicClient{apiKey: "sk-test", baseURL: server.URL, model: "claude-test", client: server.Client()}

	_, err := client.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestAnthropicCompleteMissingKey(t *testing.T) {
	client := &AnthropicClient{client: http.DefaultClient}

	_, err := client.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	assert.Error(t, err)
}

func TestLocalComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req localChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "system prompt", req.Messages[0].Content)
		assert.Equal(t, "user prompt", req.Messages[1].Content)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "local answer"}},
			},
		})
	}))
	defer server.Close()

	client := &LocalClient{baseURL: server.URL, model: "llama3.1", client: server.Client()}

	text, err := client.Complete(context.Background(), CompletionRequest{System: "system prompt", Prompt: "user prompt"})
	assert.NoError(t, err)
	assert.Equal(t, "local answer", text)
}

func TestFallbackPrefersPrimary(t *testing.T) {
	client := NewFallbackClient(&stubClient{text: "primary"}, &stubClient{text: "secondary"})

	text, err := client.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	assert.NoError(t, err)
	assert.Equal(t, "primary", text)
}

func TestFallbackRecoversFromPrimaryFailure(t *testing.T) {
	client := NewFallbackClient(&stubClient{err: errors.New("offline")}, &stubClient{text: "secondary"})

	text, err := client.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	assert.NoError(t, err)
	assert.Equal(t, "secondary", text)
}

func TestFallbackBothFail(t *testing.T) {
	primaryErr := errors.New("offline")
	client := NewFallbackClient(&stubClient{err: primaryErr}, &stubClient{err: errors.New("no model")})

	_, err := client.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	assert.ErrorIs(t, err, primaryErr)
}

func TestFallbackWithoutSecondary(t *testing.T) {
	primaryErr := errors.New("offline")
	client := NewFallbackClient(&stubClient{err: primaryErr}, nil)

	_, err := client.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	assert.ErrorIs(t, err, primaryErr)
}
