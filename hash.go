package gonote

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/nbd-wtf/go-nostr"

	"github.com/ZaguanLabs/gonote/cache"
)

// HashText computes the SHA-256 hash of the trimmed text.
func HashText(text string) string {
	trimmed := strings.TrimSpace(text)
	hash := sha256.Sum256([]byte(trimmed))
	return hex.EncodeToString(hash[:])
}

// EventKey returns the identity used to key per-event state. Signed events
// use their id; drafts without one are keyed by author and content.
func EventKey(ev *nostr.Event) string {
	if ev.ID != "" {
		return ev.ID
	}
	return "draft:" + HashText(ev.PubKey+"\n"+ev.Content)
}

// CacheKey generates the translation cache key for an event and target language.
func CacheKey(eventKey, targetLang string) string {
	return eventKey + ":" + targetLang
}

// LanguageKey generates the cache key holding an event's detected language.
func LanguageKey(eventKey string) string {
	return eventKey + cache.LanguageSuffix
}
