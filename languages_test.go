package gonote

import "testing"

func TestBaseLanguage(t *testing.T) {
	tests := []struct {
		locale   string
		expected string
	}{
		{"en", "en"},
		{"en_US", "en"},
		{"pt-BR", "pt"},
		{"zh-Hant-TW", "zh"},
		{"de_DE.UTF-8", "de"},
		{"fr_FR@euro", "fr"},
		{" JA ", "ja"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			if got := BaseLanguage(tt.locale); got != tt.expected {
				t.Errorf("BaseLanguage(%q) = %q, want %q", tt.locale, got, tt.expected)
			}
		})
	}
}

func TestGetLanguageName(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"es_ES", "Spanish"},
		{"ja_JP", "Japanese"},
		{"en", "English"},
		{"unknown", "unknown"}, // fallback
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			result := GetLanguageName(tt.code)
			if result != tt.expected {
				t.Errorf("GetLanguageName(%q) = %q, want %q", tt.code, result, tt.expected)
			}
		})
	}
}

func TestGetDirection(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"ar_SA", "rtl"},
		{"he_IL", "rtl"},
		{"fa_IR", "rtl"},
		{"ur_PK", "rtl"},
		{"ar", "rtl"}, // short code
		{"es_ES", "ltr"},
		{"en_US", "ltr"},
		{"ja_JP", "ltr"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			result := GetDirection(tt.code)
			if result != tt.expected {
				t.Errorf("GetDirection(%q) = %q, want %q", tt.code, result, tt.expected)
			}
		})
	}
}

func TestIsRTL(t *testing.T) {
	if !IsRTL("ar_SA") {
		t.Error("IsRTL(ar_SA) should be true")
	}
	if IsRTL("en_US") {
		t.Error("IsRTL(en_US) should be false")
	}
}

func TestNormalizeLocale(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"es-ES", "es_ES"},
		{"es_ES", "es_ES"}, // already normalized
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeLocale(tt.input); got != tt.expected {
				t.Errorf("NormalizeLocale(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLanguageSet(t *testing.T) {
	set := NewLanguageSet("en_US", "pt-BR", "")

	if !set.Contains("en") || !set.Contains("en_GB") {
		t.Error("set should contain English in any region")
	}
	if !set.Contains("pt") {
		t.Error("set should contain Portuguese")
	}
	if set.Contains("es") {
		t.Error("set should not contain Spanish")
	}
	if len(set) != 2 {
		t.Errorf("len(set) = %d, want 2", len(set))
	}
}
