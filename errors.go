package gonote

import (
	"errors"
	"fmt"
)

// ErrNoService is returned when a provider is requested for settings that
// do not name a translation service.
var ErrNoService = errors.New("no translation service configured")

// TranslationError is the base error type for translation failures.
type TranslationError struct {
	Message string
	EventID string
	Cause   error
}

func (e *TranslationError) Error() string {
	msg := e.Message
	if e.EventID != "" {
		msg = fmt.Sprintf("%s (event %s)", e.Message, e.EventID)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// ProviderError indicates a translation backend failure (network, auth,
// quota, unsupported language pair).
type ProviderError struct {
	Provider   string
	Message    string
	StatusCode int
	Cause      error
	Retryable  bool // Whether the operation can be retried
}

func (e *ProviderError) Error() string {
	prefix := "provider error"
	if e.Provider != "" {
		prefix = fmt.Sprintf("provider error (%s)", e.Provider)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// CacheError indicates a cache operation failure.
type CacheError struct {
	Message string
	Key     string
	Cause   error
}

func (e *CacheError) Error() string {
	msg := e.Message
	if e.Key != "" {
		msg = fmt.Sprintf("%s [%s]", e.Message, e.Key)
	}
	if e.Cause != nil {
		return fmt.Sprintf("cache error: %s: %v", msg, e.Cause)
	}
	return fmt.Sprintf("cache error: %s", msg)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}

// ProcessorError indicates a content processing failure (decode, render).
type ProcessorError struct {
	Message     string
	Cause       error
	ContentType string // The type of content that failed to process
}

func (e *ProcessorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("processor error (%s): %s: %v", e.ContentType, e.Message, e.Cause)
	}
	return fmt.Sprintf("processor error (%s): %s", e.ContentType, e.Message)
}

func (e *ProcessorError) Unwrap() error {
	return e.Cause
}
