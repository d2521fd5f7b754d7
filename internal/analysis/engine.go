package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/errsight/errsight/internal/models"
)

// FallbackErrorType is the sentinel stored when analysis fails and the
// ingestion path substitutes a locally-built result.
const FallbackErrorType = "LLM_FAILURE"

// prompt is the single fixed template sent to every provider.
const prompt = `Analyze this error and provide a brief response in JSON format with five fields: "location" (where the error occurred), "reason" (why it happened), "solution" (how to fix it), "status_code" (the likely HTTP status code, or "N/A"), and "error_type" (a short classification such as TypeError or DatabaseError). Keep each field concise and developer-friendly.
Error: %s
Respond only with valid JSON.`

// StatusCode is a string that also accepts bare JSON numbers, since
// models emit both "500" and 500 for the same field.
type StatusCode string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StatusCode) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*s = StatusCode(t)
	case float64:
		*s = StatusCode(strconv.Itoa(int(t)))
	case nil:
		*s = ""
	default:
		return fmt.Errorf("status_code: unexpected type %T", v)
	}
	return nil
}

// Result is the structured explanation of one error.
type Result struct {
	Location   string     `json:"location"`
	Reason     string     `json:"reason"`
	Solution   string     `json:"solution"`
	StatusCode StatusCode `json:"status_code"`
	ErrorType  string     `json:"error_type"`
}

// Fallback builds the deterministic substitute result used when the
// provider call or response parsing fails. The cause is embedded so the
// persisted entry still explains what went wrong.
func Fallback(location string, cause error) *Result {
	if location == "" {
		location = "Unknown"
	}
	return &Result{
		Location:   location,
		Reason:     "LLM analysis failed: " + cause.Error(),
		Solution:   "Review the raw error log.",
		StatusCode: "N/A",
		ErrorType:  FallbackErrorType,
	}
}

// Engine dispatches analysis requests to provider adapters. It performs
// one provider call and one parse attempt per request; retries and
// timeouts belong to the caller.
type Engine struct {
	factories map[string]Factory
}

// NewEngine returns an Engine with the three built-in providers
// registered.
func NewEngine() *Engine {
	e := &Engine{factories: make(map[string]Factory)}
	e.Register(models.ProviderOpenAI, newOpenAICompleter)
	e.Register(models.ProviderAnthropic, newAnthropicCompleter)
	e.Register(models.ProviderGemini, newGeminiCompleter)
	return e
}

// Register adds or replaces a provider factory.
func (e *Engine) Register(provider string, f Factory) {
	e.factories[provider] = f
}

// Supported reports whether a provider selector is registered.
func (e *Engine) Supported(provider string) bool {
	_, ok := e.factories[provider]
	return ok
}

// Analyze asks the selected provider to explain errorText and repairs
// the response into a Result. Failures are typed: ErrUnsupportedProvider
// before any network call, *ProviderError for transport failures, and
// *ParseError when the model's reply cannot be repaired. It never returns
// a partially-populated Result alongside an error.
func (e *Engine) Analyze(ctx context.Context, provider, apiKey, model, errorText string) (*Result, error) {
	factory, ok := e.factories[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}

	raw, err := factory(apiKey, model).Complete(ctx, fmt.Sprintf(prompt, errorText))
	if err != nil {
		return nil, &ProviderError{Provider: provider, Err: err}
	}
	return parseResult(raw)
}
