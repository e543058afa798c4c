package llm

import (
	"context"
	"encoding/json"
)

// Provider is the language-model collaborator used by the intent interpreter.
// Implementations return the raw structured payload; the interpreter owns
// validation and never trusts the response shape.
type Provider interface {
	Interpret(ctx context.Context, req InterpretRequest) (InterpretResponse, error)
}

// InterpretRequest carries the user command plus the context the model needs
// to fill defaults: today's date, the known category vocabulary and the home
// currency.
type InterpretRequest struct {
	Command      string   `json:"command"`
	Today        string   `json:"today"` // YYYY-MM-DD
	Categories   []string `json:"categories"`
	HomeCurrency string   `json:"home_currency"`
}

// Response kinds. A reply is conversational text with no side effects.
const (
	KindOperation = "operation"
	KindReply     = "reply"
)

// InterpretResponse is the untrusted model output: either a tagged operation
// with raw JSON arguments, or a plain conversational reply.
type InterpretResponse struct {
	Kind      string          `json:"type"`
	Operation string          `json:"operation,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Reply     string          `json:"reply,omitempty"`
}
