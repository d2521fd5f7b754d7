package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAnthropicCompleter(t *testing.T) {
	var gotPath, gotKey, gotVersion string
	var gotReq anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"text","text":"{\"location\":\"a\"}"}]}`))
	}))
	defer srv.Close()

	c := &anthropicCompleter{apiKey: "sk-ant-1", model: "claude-sonnet-4-20250514", baseURL: srv.URL, client: srv.Client()}
	text, err := c.Complete(context.Background(), "explain this")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != `{"location":"a"}` {
		t.Errorf("text = %q", text)
	}
	if gotPath != "/messages" {
		t.Errorf("path = %q, want /messages", gotPath)
	}
	if gotKey != "sk-ant-1" || gotVersion != anthropicVersion {
		t.Errorf("headers = key %q version %q", gotKey, gotVersion)
	}
	if gotReq.Model != "claude-sonnet-4-20250514" || gotReq.MaxTokens != anthropicMaxTokens {
		t.Errorf("request = %+v", gotReq)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" || gotReq.Messages[0].Content != "explain this" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}

func TestAnthropicCompleter_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"type":"authentication_error"}}`))
	}))
	defer srv.Close()

	c := &anthropicCompleter{apiKey: "bad", model: "m", baseURL: srv.URL, client: srv.Client()}
	_, err := c.Complete(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "status 401") {
		t.Errorf("err = %v, want status 401", err)
	}
}

func TestGeminiCompleter(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"location\""},{"text":":\"a\"}"}]}}]}`))
	}))
	defer srv.Close()

	c := &geminiCompleter{apiKey: "g-key", model: "gemini-2.0-flash", baseURL: srv.URL, client: srv.Client()}
	text, err := c.Complete(context.Background(), "explain this")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	// Multi-part candidates are concatenated.
	if text != `{"location":"a"}` {
		t.Errorf("text = %q", text)
	}
	if gotPath != "/models/gemini-2.0-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "g-key" {
		t.Errorf("api key header = %q", gotKey)
	}
}

func TestGeminiCompleter_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := &geminiCompleter{apiKey: "k", model: "m", baseURL: srv.URL, client: srv.Client()}
	if _, err := c.Complete(context.Background(), "x"); err == nil {
		t.Error("expected error for empty candidates")
	}
}
