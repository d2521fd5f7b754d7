// Package analysis turns raw error text into a structured explanation by
// calling a caller-selected LLM provider.
package analysis

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupportedProvider is returned for a provider selector outside the
// registered set. It is a configuration error; no network call is made.
var ErrUnsupportedProvider = errors.New("analysis: unsupported provider")

// Completer is the capability all provider adapters share: one prompt in,
// one response string out. Adapters are mutually substitutable; adding a
// provider means adding one adapter and registering its factory.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Factory builds a Completer bound to one credential and model.
type Factory func(apiKey, model string) Completer

// ProviderError wraps a transport or upstream failure from a provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("analysis: %s call failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ParseError reports model output that could not be repaired into the
// expected shape. Raw carries a bounded snippet for diagnostics.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("analysis: unparseable model output: %q", e.Raw)
}
