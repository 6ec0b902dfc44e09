package provider

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ZaguanLabs/gonote"
)

// DeepL API endpoints.
const (
	DeepLFreeURL = "https://api-free.deepl.com"
	DeepLProURL  = "https://api.deepl.com"
)

// DeepLProvider translates with the DeepL API.
type DeepLProvider struct {
	client *resty.Client
}

// DeepLConfig holds configuration for the DeepL provider.
type DeepLConfig struct {
	APIKey  string
	Free    bool          // Use the free endpoint. Keys ending in ":fx" always do.
	BaseURL string        // Overrides the endpoint (tests, proxies)
	Timeout time.Duration // Request timeout (default: 15s)
}

type deeplRequest struct {
	Text       []string `json:"text"`
	SourceLang string   `json:"source_lang,omitempty"`
	TargetLang string   `json:"target_lang"`
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

type deeplError struct {
	Message string `json:"message"`
}

// statusQuotaExceeded is DeepL's "quota exceeded" status.
const statusQuotaExceeded = 456

// NewDeepLProvider creates a new DeepL provider.
func NewDeepLProvider(cfg DeepLConfig) *DeepLProvider {
	base := cfg.BaseURL
	if base == "" {
		base = DeepLProURL
		if cfg.Free || strings.HasSuffix(cfg.APIKey, ":fx") {
			base = DeepLFreeURL
		}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(base, "/")).
		SetTimeout(timeout).
		SetHeader("Authorization", "DeepL-Auth-Key "+cfg.APIKey).
		SetHeader("User-Agent", gonote.UserAgent())

	return &DeepLProvider{client: client}
}

// Translate translates one text.
func (p *DeepLProvider) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	var out deeplResponse
	var apiErr deeplError
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(deeplRequest{
			Text:       []string{req.Text},
			SourceLang: strings.ToUpper(req.SourceLang),
			TargetLang: strings.ToUpper(req.TargetLang),
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v2/translate")
	if err != nil {
		return "", &gonote.ProviderError{
			Provider:  "deepl",
			Message:   "request failed",
			Cause:     err,
			Retryable: ctx.Err() == nil,
		}
	}

	if resp.IsError() {
		e := statusError("deepl", resp.StatusCode(), apiErr.Message)
		if resp.StatusCode() == statusQuotaExceeded {
			e.Message = "quota exceeded"
			e.Retryable = false
		}
		return "", e
	}
	if len(out.Translations) == 0 || out.Translations[0].Text == "" {
		return "", &gonote.ProviderError{Provider: "deepl", Message: "empty translation"}
	}

	return out.Translations[0].Text, nil
}

// Verify DeepLProvider implements Provider
var _ Provider = (*DeepLProvider)(nil)
