package endpoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delta/internal/domain"
)

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-5-nano",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 5, "completion_tokens": 3, "total_tokens": 8},
	})
	return string(b)
}

func newTestOpenAI(t *testing.T, h http.HandlerFunc) *OpenAI {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	o, err := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1/"}, srv.Client(), nil)
	require.NoError(t, err)
	return o
}

func TestOpenAISendReturnsCompletion(t *testing.T) {
	t.Parallel()

	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-5-nano", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "user", body.Messages[1].Role)
		assert.Equal(t, "tell me a joke", body.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion("  Why did the robot blush?  ")))
	})

	reply, err := o.Send(context.Background(), "tell me a joke")
	require.NoError(t, err)
	assert.Equal(t, "Why did the robot blush?", reply)
	assert.NoError(t, o.Logout(context.Background()))
}

func TestOpenAIEmptyCompletion(t *testing.T) {
	t.Parallel()

	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion("")))
	})

	_, err := o.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrEmptyReply)
}

func TestOpenAIErrorIsTransport(t *testing.T) {
	t.Parallel()

	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error"}}`))
	})

	_, err := o.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewOpenAI(OpenAIConfig{}, nil, nil)
	assert.Error(t, err)
}
