package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Aryanchhabra/DeepResearchAI/internal/llm"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completion(content string) map[string]interface{} {
	return map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1717000000,
		"model":   "gemini-1.5-pro",
		"choices": []map[string]interface{}{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]interface{}{"role": "assistant", "content": content},
		}},
	}
}

func newClient(t *testing.T, handler http.HandlerFunc) *llm.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := llm.New(llm.Config{APIKey: "test-key", BaseURL: srv.URL + "/", Model: "gemini-1.5-pro", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func TestClient_Generate(t *testing.T) {
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("An answer [1]."))
	})

	out, err := c.Generate(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, "An answer [1].", out)
	assert.Equal(t, "gemini-1.5-pro", body.Model)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "system", body.Messages[0].Role)
	assert.Equal(t, "user prompt", body.Messages[1].Content)
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		code      string
		transient bool
	}{
		{"Unauthorized", http.StatusUnauthorized, "invalid_api_key", false},
		{"BadRequest", http.StatusBadRequest, "", false},
		{"RateLimited", http.StatusTooManyRequests, "rate_limit_exceeded", true},
		{"QuotaExhausted", http.StatusTooManyRequests, "insufficient_quota", false},
		{"ServerError", http.StatusBadGateway, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"error": map[string]interface{}{"message": "boom", "type": "error", "code": tt.code},
				})
			})
			_, err := c.Generate(context.Background(), "s", "u")
			require.Error(t, err)
			assert.Equal(t, tt.transient, pipeline.IsTransient(err))
			var ce *pipeline.CollaboratorError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "llm", ce.Collaborator)
		})
	}
}

func TestClient_NoChoices(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		resp := completion("")
		resp["choices"] = []interface{}{}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	_, err := c.Generate(context.Background(), "s", "u")
	require.Error(t, err)
	assert.False(t, pipeline.IsTransient(err))
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := llm.New(llm.Config{})
	assert.Error(t, err)
}
