package gonote

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TranslationService names a translation backend.
type TranslationService string

const (
	// ServiceNone disables translation.
	ServiceNone TranslationService = "none"
	// ServiceLibreTranslate is a self-hosted LibreTranslate instance.
	ServiceLibreTranslate TranslationService = "libretranslate"
	// ServiceDeepL is the DeepL API (API key required).
	ServiceDeepL TranslationService = "deepl"
	// ServiceOpenAI translates with an OpenAI chat model (API key required).
	ServiceOpenAI TranslationService = "openai"
)

// Settings holds the user's translation preferences.
type Settings struct {
	Service              TranslationService `yaml:"translation_service"`
	LibreTranslateURL    string             `yaml:"libretranslate_url"`
	LibreTranslateAPIKey string             `yaml:"libretranslate_api_key"`
	DeepLAPIKey          string             `yaml:"deepl_api_key"`
	DeepLFree            bool               `yaml:"deepl_free"`
	OpenAIAPIKey         string             `yaml:"openai_api_key"`
	OpenAIModel          string             `yaml:"openai_model"`
	OpenAIBaseURL        string             `yaml:"openai_base_url"`
	AutoTranslate        bool               `yaml:"auto_translate"`
}

// DefaultSettings returns settings with translation disabled.
func DefaultSettings() Settings {
	s := Settings{}
	s.applyDefaults()
	return s
}

// LoadSettings reads settings from a YAML file. A missing file yields the
// defaults.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return Settings{}, fmt.Errorf("cannot read settings: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("cannot parse settings: %w", err)
	}
	s.applyDefaults()

	switch s.Service {
	case ServiceNone, ServiceLibreTranslate, ServiceDeepL, ServiceOpenAI:
	default:
		return Settings{}, fmt.Errorf("unknown translation_service %q", s.Service)
	}

	return s, nil
}

// applyDefaults fills in zero values.
func (s *Settings) applyDefaults() {
	s.Service = TranslationService(strings.ToLower(strings.TrimSpace(string(s.Service))))
	if s.Service == "" {
		s.Service = ServiceNone
	}
	if s.OpenAIModel == "" {
		s.OpenAIModel = "gpt-4o-mini"
	}
}

// Configured reports whether the selected service has what it needs to
// run: an endpoint for LibreTranslate, an API key for the paid services.
func (s Settings) Configured() bool {
	switch s.Service {
	case ServiceLibreTranslate:
		return validEndpoint(s.LibreTranslateURL)
	case ServiceDeepL:
		return strings.TrimSpace(s.DeepLAPIKey) != ""
	case ServiceOpenAI:
		return strings.TrimSpace(s.OpenAIAPIKey) != ""
	default:
		return false
	}
}

func validEndpoint(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
