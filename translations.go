package gonote

import (
	"context"
	"sync"

	"github.com/nbd-wtf/go-nostr"
	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/ZaguanLabs/gonote/cache"
)

// Provider is the interface for translation backends.
type Provider interface {
	Translate(ctx context.Context, req TranslateRequest) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req TranslateRequest) (string, error)

// Translate calls f.
func (f ProviderFunc) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	return f(ctx, req)
}

// TranslateRequest contains the parameters for a translation request.
type TranslateRequest struct {
	Text       string
	SourceLang string
	TargetLang string
}

// Parser turns raw note content into blocks.
type Parser interface {
	Parse(content string, tags nostr.Tags) []Block
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(content string, tags nostr.Tags) []Block

// Parse calls f.
func (f ParserFunc) Parse(content string, tags nostr.Tags) []Block {
	return f(content, tags)
}

// Viewer is the identity notes are being shown to.
type Viewer struct {
	PubKey             string
	HasPrivateKey      bool
	Locale             string
	PreferredLanguages []string
}

// Status is the translation status of one event.
type Status int

const (
	StatusNotAttempted Status = iota
	StatusInProgress
	StatusTranslated
	StatusNotNeeded
)

func (s Status) String() string {
	switch s {
	case StatusNotAttempted:
		return "not_attempted"
	case StatusInProgress:
		return "in_progress"
	case StatusTranslated:
		return "translated"
	case StatusNotNeeded:
		return "not_needed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition happens without a Cancel
// or Invalidate.
func (s Status) Terminal() bool {
	return s == StatusTranslated || s == StatusNotNeeded
}

// Translation is a successful translation of a note.
type Translation struct {
	Language string // detected source language
	Text     string
	Artifact *Artifact
}

// TranslationState is the observable state of one event.
type TranslationState struct {
	Status      Status
	Translation *Translation // set when Status is StatusTranslated
}

// StateChange is published to subscribers whenever an event's state moves.
type StateChange struct {
	EventKey string
	State    TranslationState
}

type eventState struct {
	mu          sync.Mutex
	status      Status
	translation *Translation
	detected    *mo.Option[string]
	generation  uint64
	cancel      context.CancelFunc
}

func (s *eventState) snapshot() TranslationState {
	return TranslationState{Status: s.status, Translation: s.translation}
}

// Translations decides which notes to offer a translation for, translates
// them and remembers the outcome.
type Translations struct {
	settings  Settings
	viewer    Viewer
	target    string
	preferred LanguageSet

	provider Provider
	detector Detector
	parser   Parser
	renderer *Renderer
	cache    *LanguageCache
	logger   zerolog.Logger

	warmWorkers int

	mu     sync.Mutex
	events map[string]*eventState

	subMu   sync.RWMutex
	subs    map[int]chan StateChange
	nextSub int
}

// TranslationsOption is a functional option for configuring Translations.
type TranslationsOption func(*Translations)

// WithProvider sets the translation backend.
func WithProvider(p Provider) TranslationsOption {
	return func(t *Translations) {
		t.provider = p
	}
}

// WithDetector sets the language detector.
func WithDetector(d Detector) TranslationsOption {
	return func(t *Translations) {
		t.detector = d
	}
}

// WithParser sets the content parser used for detection and for
// re-parsing translated text.
func WithParser(p Parser) TranslationsOption {
	return func(t *Translations) {
		t.parser = p
	}
}

// WithRenderer sets the renderer for translated text.
func WithRenderer(r *Renderer) TranslationsOption {
	return func(t *Translations) {
		t.renderer = r
	}
}

// WithStore sets the backing store of the language cache.
func WithStore(s CacheStore) TranslationsOption {
	return func(t *Translations) {
		t.cache = NewLanguageCache(s, t.target)
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) TranslationsOption {
	return func(t *Translations) {
		t.logger = l
	}
}

// WithWarmConcurrency sets how many detections Warm runs at once.
func WithWarmConcurrency(n int) TranslationsOption {
	return func(t *Translations) {
		if n > 0 {
			t.warmWorkers = n
		}
	}
}

// NewTranslations creates the translation service for a viewer.
func NewTranslations(settings Settings, viewer Viewer, opts ...TranslationsOption) *Translations {
	target := BaseLanguage(viewer.Locale)
	if target == "" {
		target = "en"
	}

	preferred := NewLanguageSet(viewer.PreferredLanguages...)
	if len(preferred) == 0 {
		preferred = NewLanguageSet(target)
	}

	t := &Translations{
		settings:    settings,
		viewer:      viewer,
		target:      target,
		preferred:   preferred,
		renderer:    NewRenderer(),
		logger:      zerolog.Nop(),
		warmWorkers: 4,
		events:      make(map[string]*eventState),
		subs:        make(map[int]chan StateChange),
	}
	t.cache = NewLanguageCache(cache.NewInMemoryCache(0), target)

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// TargetLanguage returns the language notes are translated into.
func (t *Translations) TargetLanguage() string {
	return t.target
}

// Cache returns the language cache.
func (t *Translations) Cache() *LanguageCache {
	return t.cache
}

// ShouldTranslate reports whether a translation should be offered for ev.
func (t *Translations) ShouldTranslate(ev *nostr.Event) bool {
	if t.ownNote(ev) {
		return false
	}
	if !t.configured() {
		return false
	}

	key := EventKey(ev)
	if entry, ok := t.cache.Get(key); ok {
		return entry.HasTranslation
	}

	lang, ok := t.detect(key, ev).Get()
	if !ok {
		return false
	}
	return !t.preferred.Contains(lang)
}

// Translate translates ev into the target language. ok is false when no
// translation is available: the viewer wrote the note or reads its
// language, the backend failed, the result was trivial, another call for
// the same event is in flight, or the event was already found not to need
// one. If ctx ends before the backend answers, the event goes back to not
// attempted.
func (t *Translations) Translate(ctx context.Context, ev *nostr.Event) (Translation, bool) {
	if !t.configured() {
		return Translation{}, false
	}

	key := EventKey(ev)
	skip := t.skip(key, ev)
	st := t.state(key)

	st.mu.Lock()
	switch st.status {
	case StatusInProgress, StatusNotNeeded:
		st.mu.Unlock()
		return Translation{}, false
	case StatusTranslated:
		tr := *st.translation
		st.mu.Unlock()
		return tr, true
	}

	if skip {
		change := t.finish(key, st, nil)
		st.mu.Unlock()
		t.publish(change)
		return Translation{}, false
	}

	if entry, ok := t.cache.Get(key); ok {
		var tr *Translation
		if entry.HasTranslation {
			built := t.build(ev, entry.Language, entry.Translation)
			tr = &built
		}
		change := t.finish(key, st, tr)
		st.mu.Unlock()
		t.publish(change)
		if tr == nil {
			return Translation{}, false
		}
		return *tr, true
	}

	st.generation++
	gen := st.generation
	cctx, cancel := context.WithCancel(ctx)
	st.status = StatusInProgress
	st.cancel = cancel
	change := StateChange{EventKey: key, State: st.snapshot()}
	st.mu.Unlock()
	t.publish(change)

	tr, ok := t.run(cctx, key, ev)
	cancel()

	st.mu.Lock()
	if st.generation != gen {
		// cancelled or invalidated while the backend was working
		st.mu.Unlock()
		return Translation{}, false
	}
	st.cancel = nil
	switch {
	case ok:
		change = t.finish(key, st, &tr)
	case ctx.Err() != nil:
		// the caller went away; nothing was learned about the note
		st.status = StatusNotAttempted
		change = StateChange{EventKey: key, State: st.snapshot()}
	default:
		change = t.finish(key, st, nil)
	}
	st.mu.Unlock()
	t.publish(change)

	return tr, ok
}

// skip reports whether ev is never translated for this viewer: they wrote
// it, or it is in one of their preferred languages. Cached outcomes are left
// to Translate.
func (t *Translations) skip(key string, ev *nostr.Event) bool {
	if t.ownNote(ev) {
		return true
	}
	if _, ok := t.cache.Get(key); ok {
		return false
	}
	lang, ok := t.detect(key, ev).Get()
	return ok && t.preferred.Contains(lang)
}

func (t *Translations) ownNote(ev *nostr.Event) bool {
	return t.viewer.HasPrivateKey && ev.PubKey == t.viewer.PubKey
}

// run detects, calls the backend and caches the outcome. It does not touch
// the event state.
func (t *Translations) run(ctx context.Context, key string, ev *nostr.Event) (Translation, bool) {
	lang, ok := t.detect(key, ev).Get()
	if !ok {
		t.logger.Debug().Str("event", key).Msg("no language detected")
		return Translation{}, false
	}
	if lang == t.target {
		t.putLanguage(key, lang)
		return Translation{}, false
	}

	text, err := t.provider.Translate(ctx, TranslateRequest{
		Text:       ev.Content,
		SourceLang: lang,
		TargetLang: t.target,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Translation{}, false
		}
		t.logger.Debug().Str("event", key).Str("from", lang).Str("to", t.target).Err(err).Msg("translation failed")
		return Translation{}, false
	}
	if ctx.Err() != nil {
		return Translation{}, false
	}

	if SameAsOriginal(ev.Content, text) || !DistinctEnough(ev.Content, text, MinUniqueChars) {
		t.logger.Debug().Str("event", key).Str("from", lang).Msg("translation not needed")
		t.putLanguage(key, lang)
		return Translation{}, false
	}

	// translation before language: a cached language without a cached
	// translation reads as "not needed"
	if _, err := t.cache.PutTranslation(key, text); err != nil {
		t.logger.Warn().Err(err).Msg("caching translation")
	}
	t.putLanguage(key, lang)

	return t.build(ev, lang, text), true
}

func (t *Translations) putLanguage(key, lang string) {
	if _, err := t.cache.PutLanguage(key, lang); err != nil {
		t.logger.Warn().Err(err).Msg("caching language")
	}
}

// finish moves st to its terminal state. Callers hold st.mu.
func (t *Translations) finish(key string, st *eventState, tr *Translation) StateChange {
	if tr != nil {
		st.status = StatusTranslated
		st.translation = tr
	} else {
		st.status = StatusNotNeeded
		st.translation = nil
	}
	return StateChange{EventKey: key, State: st.snapshot()}
}

// Cancel abandons an in-flight translation of the event and resets it to
// not attempted. It is a no-op otherwise.
func (t *Translations) Cancel(eventKey string) {
	st, ok := t.lookup(eventKey)
	if !ok {
		return
	}

	st.mu.Lock()
	if st.status != StatusInProgress {
		st.mu.Unlock()
		return
	}
	st.generation++
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
	st.status = StatusNotAttempted
	change := StateChange{EventKey: eventKey, State: st.snapshot()}
	st.mu.Unlock()

	t.publish(change)
}

// Invalidate forgets everything known about the event, cancelling any
// in-flight translation.
func (t *Translations) Invalidate(eventKey string) error {
	t.mu.Lock()
	st, ok := t.events[eventKey]
	delete(t.events, eventKey)
	t.mu.Unlock()

	if ok {
		st.mu.Lock()
		st.generation++
		if st.cancel != nil {
			st.cancel()
			st.cancel = nil
		}
		st.mu.Unlock()
	}

	err := t.cache.Invalidate(eventKey)
	t.publish(StateChange{EventKey: eventKey, State: TranslationState{Status: StatusNotAttempted}})
	return err
}

// State returns the current state of the event.
func (t *Translations) State(eventKey string) TranslationState {
	st, ok := t.lookup(eventKey)
	if !ok {
		return TranslationState{Status: StatusNotAttempted}
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.snapshot()
}

// CachedTranslation returns the translation of ev if one is known, without
// calling the backend.
func (t *Translations) CachedTranslation(ev *nostr.Event) mo.Option[Translation] {
	key := EventKey(ev)
	if st, ok := t.lookup(key); ok {
		st.mu.Lock()
		tr := st.translation
		st.mu.Unlock()
		if tr != nil {
			return mo.Some(*tr)
		}
	}

	entry, ok := t.cache.Get(key)
	if !ok || !entry.HasTranslation {
		return mo.None[Translation]()
	}
	return mo.Some(t.build(ev, entry.Language, entry.Translation))
}

// Subscribe returns a channel receiving every state change and a function
// that unsubscribes. Changes are dropped for subscribers whose buffer is
// full.
func (t *Translations) Subscribe(buffer int) (<-chan StateChange, func()) {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan StateChange, buffer)

	t.subMu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = ch
	t.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.subMu.Lock()
			delete(t.subs, id)
			t.subMu.Unlock()
			close(ch)
		})
	}
}

func (t *Translations) publish(change StateChange) {
	t.subMu.RLock()
	defer t.subMu.RUnlock()
	for _, ch := range t.subs {
		select {
		case ch <- change:
		default:
		}
	}
}

func (t *Translations) configured() bool {
	return t.provider != nil && t.settings.Configured()
}

func (t *Translations) state(key string) *eventState {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.events[key]
	if !ok {
		st = &eventState{}
		t.events[key] = st
	}
	return st
}

func (t *Translations) lookup(key string) (*eventState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.events[key]
	return st, ok
}

// detect returns the memoised language of ev, running the detector on the
// first call.
func (t *Translations) detect(key string, ev *nostr.Event) mo.Option[string] {
	st := t.state(key)

	st.mu.Lock()
	if st.detected != nil {
		lang := *st.detected
		st.mu.Unlock()
		return lang
	}
	st.mu.Unlock()

	lang := DetectLanguage(t.detector, t.parse(ev.Content, ev.Tags))

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.detected == nil {
		st.detected = &lang
	}
	return *st.detected
}

func (t *Translations) parse(content string, tags nostr.Tags) []Block {
	if t.parser == nil {
		return []Block{Text{Text: content}}
	}
	return t.parser.Parse(content, tags)
}

func (t *Translations) build(ev *nostr.Event, lang, text string) Translation {
	blocks := t.parse(text, ev.Tags)
	return Translation{
		Language: lang,
		Text:     text,
		Artifact: t.renderer.ForKind(ev.Kind).Render(blocks),
	}
}
