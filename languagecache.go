package gonote

import "errors"

// CacheStore is the key/value backend of a LanguageCache. cache.InMemoryCache
// and cache.RedisCache implement it.
type CacheStore interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
	SetNX(key string, value string) (bool, error)
	Delete(key string) error
}

// CacheEntry is what is known about an event's language and translation.
type CacheEntry struct {
	Language       string
	Translation    string
	HasTranslation bool
}

// LanguageCache records, per event, the detected language and the
// translation into one target language.
//
// Entries only grow: the language is written once, the translation may be
// added once afterwards. Invalidate is the only way to drop them.
type LanguageCache struct {
	store  CacheStore
	target string
}

// NewLanguageCache creates a cache over store for translations into targetLang.
func NewLanguageCache(store CacheStore, targetLang string) *LanguageCache {
	return &LanguageCache{store: store, target: BaseLanguage(targetLang)}
}

// Get returns the cached entry for an event. ok is false when no language
// has been cached for it yet.
func (c *LanguageCache) Get(eventKey string) (CacheEntry, bool) {
	lang, ok := c.store.Get(LanguageKey(eventKey))
	if !ok {
		return CacheEntry{}, false
	}

	entry := CacheEntry{Language: lang}
	if text, ok := c.store.Get(CacheKey(eventKey, c.target)); ok && text != "" {
		entry.Translation = text
		entry.HasTranslation = true
	}
	return entry, true
}

// PutLanguage caches the event's language if none is cached yet. It
// reports whether the value was written.
func (c *LanguageCache) PutLanguage(eventKey, lang string) (bool, error) {
	if lang == "" {
		return false, errors.New("empty language")
	}
	ok, err := c.store.SetNX(LanguageKey(eventKey), lang)
	if err != nil {
		return false, &CacheError{Message: "storing language", Key: LanguageKey(eventKey), Cause: err}
	}
	return ok, nil
}

// PutTranslation caches the event's translation if none is cached yet.
func (c *LanguageCache) PutTranslation(eventKey, text string) (bool, error) {
	if text == "" {
		return false, errors.New("empty translation")
	}
	key := CacheKey(eventKey, c.target)
	ok, err := c.store.SetNX(key, text)
	if err != nil {
		return false, &CacheError{Message: "storing translation", Key: key, Cause: err}
	}
	return ok, nil
}

// Invalidate drops everything cached for an event.
func (c *LanguageCache) Invalidate(eventKey string) error {
	var errs []error
	for _, key := range []string{LanguageKey(eventKey), CacheKey(eventKey, c.target)} {
		if err := c.store.Delete(key); err != nil {
			errs = append(errs, &CacheError{Message: "invalidating", Key: key, Cause: err})
		}
	}
	return errors.Join(errs...)
}

// TargetLang returns the language translations are cached for.
func (c *LanguageCache) TargetLang() string {
	return c.target
}
