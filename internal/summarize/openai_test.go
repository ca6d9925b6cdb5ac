// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_Complete(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "deepseek-chat",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "  A short digest.  "}}]
		}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", srv.URL+"/v1", "deepseek-chat", srv.Client())
	text, err := c.Complete(context.Background(), SystemPrompt, "summarize this")
	require.NoError(t, err)

	assert.Equal(t, "A short digest.", text)
	assert.Equal(t, "deepseek-chat", got.Model)
	assert.InDelta(t, Temperature, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, SystemPrompt, got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "summarize this", got.Messages[1].Content)
}

func TestOpenAIClient_ModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": {"message": "The model does not exist", "type": "invalid_request_error", "param": null, "code": "model_not_found"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", srv.URL+"/v1", "no-such-model", srv.Client())
	_, err := c.Complete(context.Background(), SystemPrompt, "x")

	require.Error(t, err)
	assert.True(t, IsModelNotFound(err))
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "x", "object": "chat.completion", "created": 1, "model": "m", "choices": []}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", srv.URL, "m", srv.Client())
	_, err := c.Complete(context.Background(), SystemPrompt, "x")
	assert.ErrorContains(t, err, "no response")
}

func TestIsModelNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deepseek message", errors.New("Error code: 400 - Model Not Exist"), true},
		{"code in text", errors.New(`{"code":"model_not_found"}`), true},
		{"model_not_exist", errors.New("model_not_exist"), true},
		{"other", errors.New("rate limit exceeded"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsModelNotFound(tt.err))
		})
	}
}

func TestAltBaseURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://api.deepseek.com/v1", "https://api.deepseek.com"},
		{"https://api.deepseek.com/v1/", "https://api.deepseek.com"},
		{"https://api.deepseek.com", ""},
		{"https://example.com/openai/v2", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AltBaseURL(tt.in), tt.in)
	}
}
