// Package oracle sends suspicious transcripts to an LLM for deep judgement
// and parses the structured verdict it returns.
package oracle

import (
	"context"
	"fmt"
)

// Error kinds. Transport errors cover everything up to receiving a body;
// response errors mean the model answered but the answer was unusable.
const (
	ErrTransport = "transport"
	ErrResponse  = "response"
)

// Error is a failed oracle call. Raw preserves the model output (or error
// body) for the audit trail; callers fall back to the screening verdict
// rather than failing the work order.
type Error struct {
	Kind string
	Raw  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oracle %s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("oracle %s error", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func transportErr(err error) *Error {
	return &Error{Kind: ErrTransport, Err: err}
}

func responseErr(raw string, err error) *Error {
	return &Error{Kind: ErrResponse, Raw: raw, Err: err}
}

// Completion is one model answer plus its token accounting.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Provider abstracts the chat backend. Both implementations take a system
// prompt and a single user turn; conversation history is never needed here.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, system, prompt string) (Completion, error)
}

// NewProvider builds the configured backend. Endpoint is only meaningful
// for the OpenAI-compatible provider.
func NewProvider(name, endpoint, apiKey, model string) (Provider, error) {
	switch name {
	case "openai", "siliconflow", "volcengine":
		return NewOpenAIClient(endpoint, apiKey, model), nil
	case "anthropic":
		return NewAnthropicClient(apiKey, model), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", name)
}
