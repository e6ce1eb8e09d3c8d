package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/queryhub/QueryHub/internal/pkg/env"
)

// LocalClient talks to an OpenAI-compatible endpoint on localhost, typically
// an Ollama instance. It serves as the offline recovery path when the hosted
// provider is unreachable.
type LocalClient struct {
	baseURL string
	model   string
	client  *http.Client
}

type localChatRequest struct {
	Model    string             `json:"model"`
	Messages []anthropicMessage `json:"messages"`
	Stream   bool               `json:"stream"`
}

type localChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewLocalClient() *LocalClient {
	return &LocalClient{
		baseURL: env.GetEnv("LOCAL_LLM_URL", "http://localhost:11434/v1/chat/completions"),
		model:   env.GetEnv("LOCAL_LLM_MODEL", "llama3.1"),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *LocalClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]anthropicMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, anthropicMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, anthropicMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(localChatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("local LLM request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("local LLM error (%d): %s", resp.StatusCode, string(respBody))
	}

	var parsed localChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("local LLM response carried no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// FallbackClient tries the primary client and falls back to the secondary
// when the primary fails. The fallback is a recovery path, not an error: the
// primary's failure is logged, not returned, as long as the secondary
// answers.
type FallbackClient struct {
	primary   Client
	secondary Client
}

func NewFallbackClient(primary, secondary Client) *FallbackClient {
	return &FallbackClient{primary: primary, secondary: secondary}
}

func (c *FallbackClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	text, err := c.primary.Complete(ctx, req)
	if err == nil {
		return text, nil
	}
	if c.secondary == nil {
		return "", err
	}

	log.Warnf("[LLM] primary provider failed, trying local fallback: %v", err)
	text, fallbackErr := c.secondary.Complete(ctx, req)
	if fallbackErr != nil {
		// Report the primary failure; it is the actionable one.
		return "", fmt.Errorf("primary: %w (fallback also failed: %v)", err, fallbackErr)
	}
	return text, nil
}
