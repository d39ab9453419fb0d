package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mediflux/assistant-api/entities"
)

// newCompletionServer fakes an OpenAI-compatible chat endpoint returning
// the given message content.
func newCompletionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Expected bearer auth, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		body := map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"}},
		}
		writeJSON(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func writeJSON(w http.ResponseWriter, body map[string]any) {
	raw, _ := json.Marshal(body)
	w.Write(raw)
}

func newTestInterpreter(t *testing.T, serverURL string) *Interpreter {
	t.Helper()
	interp, err := New(Config{
		BaseURL:       serverURL,
		APIKey:        "test-key",
		Model:         "grok-2-1212",
		Timeout:       2 * time.Second,
		RatePerMinute: 60,
	})
	if err != nil {
		t.Fatalf("Failed to create interpreter: %v", err)
	}
	return interp
}

func TestInterpretValidResponse(t *testing.T) {
	server := newCompletionServer(t, `{"intent": "medication_search", "confidence": 0.85, "entities": [{"kind": "medication", "value": "Doliprane", "confidence": 0.9}]}`)
	interp := newTestInterpreter(t, server.URL)

	got, err := interp.Interpret(context.Background(), "je cherche du doliprane")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.Intent != entities.IntentMedicationSearch {
		t.Errorf("Expected medication_search, got %s", got.Intent)
	}
	if got.Confidence != 0.85 {
		t.Errorf("Expected confidence 0.85, got %v", got.Confidence)
	}
	if len(got.Entities) != 1 {
		t.Fatalf("Expected 1 entity, got %d", len(got.Entities))
	}
	if got.Entities[0].Method != entities.MethodLLM {
		t.Errorf("Expected llm method tag, got %s", got.Entities[0].Method)
	}
}

func TestInterpretCodeFencedResponse(t *testing.T) {
	server := newCompletionServer(t, "Voici l'analyse:\n```json\n{\"intent\": \"care_pathway\", \"confidence\": 0.7}\n```")
	interp := newTestInterpreter(t, server.URL)

	got, err := interp.Interpret(context.Background(), "parcours de soins diabète")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.Intent != entities.IntentCarePathway {
		t.Errorf("Expected care_pathway, got %s", got.Intent)
	}
}

func TestInterpretRejectsUnknownIntent(t *testing.T) {
	server := newCompletionServer(t, `{"intent": "world_domination", "confidence": 0.99}`)
	interp := newTestInterpreter(t, server.URL)

	_, err := interp.Interpret(context.Background(), "test")
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("Expected ErrInvalidResponse, got %v", err)
	}
}

func TestInterpretRejectsProseOnly(t *testing.T) {
	server := newCompletionServer(t, "Je ne peux pas répondre en JSON, désolé.")
	interp := newTestInterpreter(t, server.URL)

	_, err := interp.Interpret(context.Background(), "test")
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("Expected ErrInvalidResponse, got %v", err)
	}
}

func TestInterpretRejectsConfidenceOutOfRange(t *testing.T) {
	server := newCompletionServer(t, `{"intent": "general_query", "confidence": 7}`)
	interp := newTestInterpreter(t, server.URL)

	_, err := interp.Interpret(context.Background(), "test")
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("Expected ErrInvalidResponse, got %v", err)
	}
}

func TestInterpretUpstreamErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "quota exceeded", "type": "insufficient_quota"}}`))
	}))
	t.Cleanup(server.Close)
	interp := newTestInterpreter(t, server.URL)

	_, err := interp.Interpret(context.Background(), "test")
	if err == nil {
		t.Fatal("Expected an error on upstream 429")
	}
}

func TestInterpretDisabledWithoutKey(t *testing.T) {
	interp, err := New(Config{
		BaseURL:       "https://api.x.ai/v1",
		APIKey:        "",
		Model:         "grok-2-1212",
		Timeout:       time.Second,
		RatePerMinute: 60,
	})
	if err != nil {
		t.Fatalf("Failed to create interpreter: %v", err)
	}

	_, err = interp.Interpret(context.Background(), "test")
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("Expected ErrDisabled, got %v", err)
	}
}

func TestInterpretRateLimitExhaustion(t *testing.T) {
	server := newCompletionServer(t, `{"intent": "general_query", "confidence": 0.5}`)
	interp, err := New(Config{
		BaseURL:       server.URL,
		APIKey:        "test-key",
		Model:         "grok-2-1212",
		Timeout:       2 * time.Second,
		RatePerMinute: 1,
	})
	if err != nil {
		t.Fatalf("Failed to create interpreter: %v", err)
	}

	// The single-token budget allows exactly one call
	if _, err := interp.Interpret(context.Background(), "first"); err != nil {
		t.Fatalf("Expected first call to pass, got %v", err)
	}
	_, err = interp.Interpret(context.Background(), "second")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Expected ErrRateLimited, got %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"fenced with tag", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced no tag", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose around", `Here: {"a": 1} done`, `{"a": 1}`},
		{"no json", "nothing here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.content); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
