// OpenAI-compatible provider.
//
// This file implements the Client interface against the OpenAI chat
// completions API (or any endpoint speaking the same wire contract, selected
// via base URL). Structured output uses the json_schema response format so
// the model is constrained to the declared schema server-side.
//
// The client performs no retries: advance-path failures must surface to the
// caller exactly once, and retry policy belongs to the client of the API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cfci-lab/intake-backend/internal/sysutil"
)

// OpenAIConfig carries the settings needed to construct an OpenAI client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string        // e.g. "https://api.openai.com/v1"
	Model   string        // e.g. "gpt-4o"
	Timeout time.Duration // per-request timeout
}

// OpenAI implements Client against the OpenAI chat completions API.
type OpenAI struct {
	cfg  OpenAIConfig
	http *http.Client
}

// NewOpenAI constructs an OpenAI-backed Client. A zero Timeout defaults to 60s.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	cfg.BaseURL = sysutil.FirstNonEmpty(cfg.BaseURL, "https://api.openai.com/v1")
	cfg.Model = sysutil.FirstNonEmpty(cfg.Model, "gpt-4o")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAI{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// APIError reports a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("llm api: status %d: %s", e.StatusCode, e.Body)
}

// --- wire types (chat completions contract) ---

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *jsonSchemaSpec `json:"json_schema,omitempty"`
}

type jsonSchemaSpec struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// ChatComplete implements Client. The system prompt, when non-empty, is
// prepended as the first message.
func (c *OpenAI) ChatComplete(ctx context.Context, messages []ChatMessage, systemPrompt string) (string, error) {
	all := make([]ChatMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		all = append(all, ChatMessage{Role: RoleSystem, Content: systemPrompt})
	}
	all = append(all, messages...)

	temp := 0.7
	req := chatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    all,
		Temperature: &temp,
		MaxTokens:   1000,
	}

	resp, err := c.complete(ctx, req)
	if err != nil {
		return "", err
	}
	return resp, nil
}

// StructuredComplete implements Client. The reply is constrained to the
// declared schema; the raw JSON string of the model message is returned.
func (c *OpenAI) StructuredComplete(ctx context.Context, systemPrompt, userPrompt string, schema ResponseSchema) (json.RawMessage, error) {
	msgs := make([]ChatMessage, 0, 2)
	if systemPrompt != "" {
		msgs = append(msgs, ChatMessage{Role: RoleSystem, Content: systemPrompt})
	}
	msgs = append(msgs, ChatMessage{Role: RoleUser, Content: userPrompt})

	req := chatCompletionRequest{
		Model:    c.cfg.Model,
		Messages: msgs,
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaSpec{
				Name:   schema.Name,
				Strict: true,
				Schema: schema.Schema,
			},
		},
	}

	content, err := c.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	// Sanity-check the payload is JSON before handing it upward.
	if !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("llm api: structured reply is not valid JSON")
	}
	return json.RawMessage(content), nil
}

// complete performs one chat-completions round trip and extracts the first
// choice's message content.
func (c *OpenAI) complete(ctx context.Context, body chatCompletionRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := c.cfg.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().
			Int("status", resp.StatusCode).
			Str("model", c.cfg.Model).
			Msg("llm api returned non-2xx")
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("llm api: empty completion")
	}
	return out.Choices[0].Message.Content, nil
}
