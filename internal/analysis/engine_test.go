package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeCompleter returns a fixed response or error.
type fakeCompleter struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func newTestEngine(fake *fakeCompleter) *Engine {
	e := &Engine{factories: make(map[string]Factory)}
	e.Register("fake", func(apiKey, model string) Completer { return fake })
	return e
}

func TestAnalyze_Success(t *testing.T) {
	fake := &fakeCompleter{response: `{"location":"srv.go:1","reason":"r","solution":"s","status_code":"500","error_type":"Panic"}`}
	e := newTestEngine(fake)

	result, err := e.Analyze(context.Background(), "fake", "key", "model", "panic: boom")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Location != "srv.go:1" || result.ErrorType != "Panic" {
		t.Errorf("result = %+v", result)
	}
	if len(fake.prompts) != 1 {
		t.Fatalf("provider called %d times, want 1", len(fake.prompts))
	}
}

func TestAnalyze_PromptShape(t *testing.T) {
	fake := &fakeCompleter{response: `{}`}
	e := newTestEngine(fake)

	if _, err := e.Analyze(context.Background(), "fake", "key", "model", "panic: boom"); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	p := fake.prompts[0]
	for _, field := range []string{`"location"`, `"reason"`, `"solution"`, `"status_code"`, `"error_type"`} {
		if !strings.Contains(p, field) {
			t.Errorf("prompt missing field %s", field)
		}
	}
	if !strings.Contains(p, "panic: boom") {
		t.Error("prompt missing the error text")
	}
	if !strings.Contains(p, "Respond only with valid JSON") {
		t.Error("prompt missing the format instruction")
	}
}

func TestAnalyze_UnsupportedProvider(t *testing.T) {
	fake := &fakeCompleter{response: "{}"}
	e := newTestEngine(fake)

	_, err := e.Analyze(context.Background(), "cohere", "key", "model", "boom")
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("err = %v, want ErrUnsupportedProvider", err)
	}
	if len(fake.prompts) != 0 {
		t.Error("provider was called for an unsupported selector")
	}
}

func TestAnalyze_ProviderFailure(t *testing.T) {
	cause := errors.New("status 401: invalid api key")
	e := newTestEngine(&fakeCompleter{err: cause})

	_, err := e.Analyze(context.Background(), "fake", "key", "model", "boom")
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("err = %v, want *ProviderError", err)
	}
	if provErr.Provider != "fake" {
		t.Errorf("Provider = %q, want fake", provErr.Provider)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not wrapped")
	}
}

func TestAnalyze_ParseFailure(t *testing.T) {
	e := newTestEngine(&fakeCompleter{response: "I don't know."})

	result, err := e.Analyze(context.Background(), "fake", "key", "model", "boom")
	if result != nil {
		t.Errorf("result = %+v, want nil", result)
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
}

func TestNewEngine_BuiltinProviders(t *testing.T) {
	e := NewEngine()
	for _, p := range []string{"openai", "anthropic", "gemini"} {
		if !e.Supported(p) {
			t.Errorf("Supported(%q) = false", p)
		}
	}
	if e.Supported("cohere") {
		t.Error("Supported(cohere) = true")
	}
}

func TestFallback(t *testing.T) {
	result := Fallback("app.js:10", errors.New("status 429: rate limited"))
	if result.ErrorType != FallbackErrorType {
		t.Errorf("error_type = %q, want %s", result.ErrorType, FallbackErrorType)
	}
	if result.Location != "app.js:10" {
		t.Errorf("location = %q", result.Location)
	}
	if !strings.Contains(result.Reason, "status 429") {
		t.Errorf("reason does not embed the cause: %q", result.Reason)
	}
	if result.StatusCode != "N/A" {
		t.Errorf("status_code = %q, want N/A", result.StatusCode)
	}

	noLoc := Fallback("", errors.New("x"))
	if noLoc.Location != "Unknown" {
		t.Errorf("empty location = %q, want Unknown", noLoc.Location)
	}
}
