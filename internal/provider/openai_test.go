package provider

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"salesbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestComplete_SendsTemperatureZero(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "  true  "}},
			},
		})
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "test", APIBase: srv.URL, Logger: testLogger()})
	text, err := o.Complete(context.Background(), domain.CompletionRequest{
		Messages:    []domain.PromptMessage{{Role: "system", Content: "clasifica"}},
		Model:       "gpt-3.5-turbo",
		Temperature: 0,
	})
	if err != nil {
		t.Fatal(err)
	}
	if text != "true" {
		t.Errorf("expected trimmed response, got %q", text)
	}

	// Temperature 0 must be present in the payload, not omitted.
	if temp, ok := got["temperature"]; !ok {
		t.Error("temperature missing from request body")
	} else if temp.(float64) != 0 {
		t.Errorf("expected temperature 0, got %v", temp)
	}
	if got["model"] != "gpt-3.5-turbo" {
		t.Errorf("unexpected model: %v", got["model"])
	}
}

func TestComplete_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limit"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "test", APIBase: srv.URL, Logger: testLogger()})
	_, err := o.Complete(context.Background(), domain.CompletionRequest{Model: "gpt-4-turbo"})
	if err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "test", APIBase: srv.URL, Logger: testLogger()})
	_, err := o.Complete(context.Background(), domain.CompletionRequest{Model: "gpt-4-turbo"})
	if !errors.Is(err, domain.ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	good := NewOpenAI(OpenAIConfig{APIKey: "good", APIBase: srv.URL, Logger: testLogger()})
	if err := good.Healthy(context.Background()); err != nil {
		t.Errorf("expected healthy, got %v", err)
	}

	bad := NewOpenAI(OpenAIConfig{APIKey: "bad", APIBase: srv.URL, Logger: testLogger()})
	if err := bad.Healthy(context.Background()); err == nil {
		t.Error("expected unhealthy with wrong key")
	}
}
