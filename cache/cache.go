// Package cache provides key/value stores backing the per-event language
// and translation cache.
package cache

import "strings"

// Store is the interface for cache backends.
type Store interface {
	// Get retrieves a value. Returns empty string and false if not found or expired.
	Get(key string) (string, bool)

	// Set stores a value, replacing any previous one.
	Set(key string, value string) error

	// SetNX stores a value only if the key is absent. It reports whether
	// the value was written.
	SetNX(key string, value string) (bool, error)

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key string) error
}

// LanguageSuffix ends the keys holding an event's detected language. Those
// keys never expire: a language, once written, only changes through Delete.
const LanguageSuffix = ":lang"

func persistent(key string) bool {
	return strings.HasSuffix(key, LanguageSuffix)
}
