// Package llm defines the capability interface the application uses to talk
// to a hosted language model, plus one provider implementation per backend.
// Nothing above this package knows a provider's request shape; the advancer
// and guest chat depend only on the Client interface, and the backend is
// selected at construction.
package llm

import (
	"context"
	"encoding/json"
)

// Chat roles understood by providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is the provider-neutral message representation used for
// free-form chat completion.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseSchema declares the structured-output contract for a completion:
// a schema name plus a JSON-schema body the model's reply must conform to.
type ResponseSchema struct {
	Name   string
	Schema json.RawMessage
}

// DefaultOutput is the minimal structured reply every schema in this
// application includes: the text of the next agent turn.
type DefaultOutput struct {
	ResponseText string `json:"response_text"`
}

// DefaultOutputSchema is the JSON schema for DefaultOutput.
var DefaultOutputSchema = ResponseSchema{
	Name: "default_output",
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"response_text": {"type": "string"}
		},
		"required": ["response_text"],
		"additionalProperties": false
	}`),
}

// Client is the capability interface for a hosted language model. One
// implementation exists per provider; callers must not assume which.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type Client interface {
	// ChatComplete sends a role-tagged message list (with an optional system
	// prompt prepended) and returns the model's free-form reply text.
	ChatComplete(ctx context.Context, messages []ChatMessage, systemPrompt string) (string, error)

	// StructuredComplete sends a system/user prompt pair and returns the raw
	// JSON of a reply conforming to the declared response schema.
	StructuredComplete(ctx context.Context, systemPrompt, userPrompt string, schema ResponseSchema) (json.RawMessage, error)
}
