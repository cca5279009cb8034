package pageindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func chatCompletionResponse(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-test",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
		"usage": map[string]int{
			"prompt_tokens":     10,
			"completion_tokens": 5,
			"total_tokens":      15,
		},
	}
}

func TestOpenAIClient_Complete(t *testing.T) {
	t.Run("successful completion", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}

			var req struct {
				Model    string `json:"model"`
				Messages []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			if req.Model != "gpt-test" {
				t.Errorf("model = %q, want gpt-test", req.Model)
			}
			if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "hello" {
				t.Errorf("unexpected messages: %+v", req.Messages)
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(chatCompletionResponse("hi there"))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{
			APIKey:  "test-key",
			Model:   "gpt-test",
			BaseURL: server.URL,
		})

		got, err := client.Complete(context.Background(), "be brief", "hello")
		if err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
		if got != "hi there" {
			t.Errorf("Complete() = %q", got)
		}
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error": {"message": "boom", "type": "server_error"}}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(chatCompletionResponse("recovered"))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{
			APIKey:     "test-key",
			Model:      "gpt-test",
			BaseURL:    server.URL,
			RetryDelay: time.Millisecond,
		})

		got, err := client.Complete(context.Background(), "", "hello")
		if err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
		if got != "recovered" {
			t.Errorf("Complete() = %q", got)
		}
		if calls.Load() != 2 {
			t.Errorf("server called %d times, want 2", calls.Load())
		}
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{
			APIKey:     "wrong",
			BaseURL:    server.URL,
			RetryDelay: time.Millisecond,
		})

		if _, err := client.Complete(context.Background(), "", "hello"); err == nil {
			t.Fatal("expected error")
		}
		if calls.Load() != 1 {
			t.Errorf("server called %d times, want 1", calls.Load())
		}
	})
}

func TestOpenAIClient_Model(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{APIKey: "k"})
	if client.Model() != DefaultOptions().Model {
		t.Errorf("Model() = %q, want default", client.Model())
	}
}
