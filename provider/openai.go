package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ZaguanLabs/gonote"
)

// OpenAIProvider translates notes with an OpenAI chat model.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string  // OpenAI API key
	Model       string  // Model to use (default: "gpt-4o-mini")
	Temperature float32 // Temperature for generation (default: 0.3)
	BaseURL     string  // Custom base URL (optional)
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
	}
}

// Translate translates one note using OpenAI.
func (p *OpenAIProvider) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", nil
	}

	userMessage, _ := json.Marshal(map[string]string{"text": req.Text})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: string(userMessage)},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		status, retryable := classifyError(err)
		return "", &gonote.ProviderError{
			Provider:   "openai",
			Message:    "API call failed",
			StatusCode: status,
			Cause:      err,
			Retryable:  retryable,
		}
	}

	if len(resp.Choices) == 0 {
		return "", &gonote.ProviderError{
			Provider:  "openai",
			Message:   "no response",
			Retryable: true,
		}
	}

	return p.parseResponse(resp.Choices[0].Message.Content)
}

func (p *OpenAIProvider) buildSystemPrompt(req TranslateRequest) string {
	targetName := gonote.GetLanguageName(req.TargetLang)

	source := "Detect the source language."
	if req.SourceLang != "" {
		source = fmt.Sprintf("The note is written in %s.", gonote.GetLanguageName(req.SourceLang))
	}

	return fmt.Sprintf(`# Role
You translate short social media notes from the Nostr network into %s.

# Task
%s Translate the "text" field into idiomatic %s.

# Rules
- Keep the author's tone, slang and emoji.
- Do NOT translate URLs, hashtags, "nostr:" references, "#[n]" references or lightning invoices. Keep them exactly where they are.
- Preserve line breaks.
- If the note is already in %s, return it unchanged.

# Format
Return a valid JSON object with a single key "translation" holding the translated note.
Example: { "translation": "translated note" }
- Do NOT wrap in Markdown code blocks.`, targetName, source, targetName, targetName)
}

func (p *OpenAIProvider) parseResponse(content string) (string, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(content), &obj); err == nil {
		if s, ok := obj["translation"].(string); ok {
			return s, nil
		}

		// Fallback: first string value
		for _, v := range obj {
			if s, ok := v.(string); ok {
				return s, nil
			}
		}
	}

	return "", &gonote.ProviderError{
		Provider:  "openai",
		Message:   "invalid response format",
		Retryable: false,
	}
}

func classifyError(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return 0, isRetryableError(err)
}

func isRetryableError(err error) bool {
	// Check for common retryable conditions
	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"rate limit",
		"timeout",
		"connection refused",
		"temporary",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
