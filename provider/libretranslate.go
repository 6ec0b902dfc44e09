package provider

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ZaguanLabs/gonote"
)

// LibreTranslateProvider translates with a self-hosted LibreTranslate
// instance.
type LibreTranslateProvider struct {
	client *resty.Client
	apiKey string
}

// LibreTranslateConfig holds configuration for the LibreTranslate provider.
type LibreTranslateConfig struct {
	URL     string        // Instance URL, e.g. "https://translate.example.com"
	APIKey  string        // Optional API key
	Timeout time.Duration // Request timeout (default: 15s)
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
}

type libreError struct {
	Error string `json:"error"`
}

// NewLibreTranslateProvider creates a new LibreTranslate provider.
func NewLibreTranslateProvider(cfg LibreTranslateConfig) *LibreTranslateProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(timeout).
		SetHeader("User-Agent", gonote.UserAgent())

	return &LibreTranslateProvider{client: client, apiKey: cfg.APIKey}
}

// Translate translates one text.
func (p *LibreTranslateProvider) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	source := req.SourceLang
	if source == "" {
		source = "auto"
	}

	var out libreResponse
	var apiErr libreError
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(libreRequest{
			Q:      req.Text,
			Source: source,
			Target: req.TargetLang,
			Format: "text",
			APIKey: p.apiKey,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/translate")
	if err != nil {
		return "", &gonote.ProviderError{
			Provider:  "libretranslate",
			Message:   "request failed",
			Cause:     err,
			Retryable: ctx.Err() == nil,
		}
	}

	if resp.IsError() {
		return "", statusError("libretranslate", resp.StatusCode(), apiErr.Error)
	}
	if out.TranslatedText == "" {
		return "", &gonote.ProviderError{Provider: "libretranslate", Message: "empty translation"}
	}

	return out.TranslatedText, nil
}

// Verify LibreTranslateProvider implements Provider
var _ Provider = (*LibreTranslateProvider)(nil)
