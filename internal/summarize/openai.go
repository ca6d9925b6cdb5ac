// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Temperature is the sampling temperature for every summary request.
const Temperature = 0.3

// OpenAIClient completes prompts against an OpenAI-compatible chat endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  openai.ChatModel
}

// NewOpenAIClient returns a client for baseURL. An empty baseURL uses the
// SDK default. httpClient may be nil.
func NewOpenAIClient(apiKey, baseURL, model string, httpClient *http.Client) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	client := openai.NewClient(opts...)
	return &OpenAIClient{
		client: &client,
		model:  openai.ChatModel(model),
	}
}

// Complete sends one system and one user message and returns the reply text.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// IsModelNotFound reports whether err says the requested model does not
// exist on the endpoint. Some compatible providers only put this in the
// message text, so both the error code and the text are checked.
func IsModelNotFound(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "model_not_found", "model_not_exist":
			return true
		}
		if containsModelMissing(apiErr.Message) {
			return true
		}
	}
	return containsModelMissing(err.Error())
}

func containsModelMissing(msg string) bool {
	msg = strings.ToLower(msg)
	for _, s := range []string{"model not exist", "model_not_found", "model_not_exist"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// AltBaseURL returns baseURL without its trailing /v1 segment, or "" when
// there is no such segment. Some providers serve the same API at the root.
func AltBaseURL(baseURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasSuffix(trimmed, "/v1") {
		return ""
	}
	return strings.TrimSuffix(trimmed, "/v1")
}
