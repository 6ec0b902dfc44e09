// Package provider implements the translation backends.
package provider

import (
	"fmt"
	"net/http"

	"github.com/ZaguanLabs/gonote"
)

// Provider is an alias to the main package interface for convenience.
type Provider = gonote.Provider

// TranslateRequest is an alias to the main package type.
type TranslateRequest = gonote.TranslateRequest

// New returns the backend selected by settings. It fails with
// gonote.ErrNoService when translation is disabled.
func New(settings gonote.Settings) (Provider, error) {
	if settings.Service == gonote.ServiceNone || settings.Service == "" {
		return nil, gonote.ErrNoService
	}
	if !settings.Configured() {
		return nil, fmt.Errorf("translation service %q is missing its endpoint or API key", settings.Service)
	}

	switch settings.Service {
	case gonote.ServiceLibreTranslate:
		return NewLibreTranslateProvider(LibreTranslateConfig{
			URL:    settings.LibreTranslateURL,
			APIKey: settings.LibreTranslateAPIKey,
		}), nil
	case gonote.ServiceDeepL:
		return NewDeepLProvider(DeepLConfig{
			APIKey: settings.DeepLAPIKey,
			Free:   settings.DeepLFree,
		}), nil
	case gonote.ServiceOpenAI:
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:  settings.OpenAIAPIKey,
			Model:   settings.OpenAIModel,
			BaseURL: settings.OpenAIBaseURL,
		}), nil
	default:
		return nil, fmt.Errorf("unknown translation service %q", settings.Service)
	}
}

// statusError maps an HTTP failure to a ProviderError. Throttling and
// server errors are retryable.
func statusError(provider string, status int, message string) *gonote.ProviderError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &gonote.ProviderError{
		Provider:   provider,
		Message:    message,
		StatusCode: status,
		Retryable:  status == http.StatusTooManyRequests || status >= 500,
	}
}
