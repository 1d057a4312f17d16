package model

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentloop/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Request captures the conversation snapshot and advertised tools for one
// model round-trip.
type Request struct {
	Messages []core.Message   `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "scripted", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface the agent loop requires to drive generation.
//
// Generate performs one request/response exchange. Stream issues a fresh
// request and returns a one-shot fragment stream; it can not be replayed.
// Transport failures of either are reported as *RequestError.
type Model interface {
	Generate(ctx context.Context, req Request) (core.Message, error)
	Stream(ctx context.Context, req Request) (Stream, error)

	// Info returns information about the model implementation.
	Info() Info
}

// RequestError reports a network, protocol or authentication failure while
// talking to a model provider.
type RequestError struct {
	Provider string // provider name, e.g. "openai"
	Op       string // "generate" or "stream"
	Err      error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s request failed: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *RequestError) Unwrap() error { return e.Err }

// NewRequestError wraps err as a RequestError unless it already is one.
func NewRequestError(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	if re, ok := err.(*RequestError); ok {
		return re
	}
	return &RequestError{Provider: provider, Op: op, Err: err}
}
