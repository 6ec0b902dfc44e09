package gonote

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/ZaguanLabs/gonote/cache"
)

// stubDetector returns a fixed hypothesis per text and counts calls.
type stubDetector struct {
	results map[string]Hypothesis
	calls   int64
}

func (d *stubDetector) Detect(text string) (Hypothesis, bool) {
	atomic.AddInt64(&d.calls, 1)
	h, ok := d.results[text]
	return h, ok
}

// stubProvider returns a fixed response or error and counts calls. When
// release is set, calls block until it is closed or the context ends.
type stubProvider struct {
	response string
	err      error
	release  chan struct{}
	calls    int64
}

func (p *stubProvider) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	atomic.AddInt64(&p.calls, 1)
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return p.response, p.err
}

func (p *stubProvider) Calls() int {
	return int(atomic.LoadInt64(&p.calls))
}

var libreSettings = Settings{
	Service:           ServiceLibreTranslate,
	LibreTranslateURL: "http://localhost:5000",
}

var english = Viewer{PubKey: "viewer", HasPrivateKey: true, Locale: "en_US"}

func spanishNote() *nostr.Event {
	return &nostr.Event{ID: "e1", PubKey: "author", Kind: nostr.KindTextNote, Content: "Hola mundo"}
}

func newDetector() *stubDetector {
	return &stubDetector{results: map[string]Hypothesis{
		"Hola mundo":    {Language: "es", Confidence: 0.9},
		"Hello there":   {Language: "en-US", Confidence: 0.9},
		"quizás maybe":  {Language: "es", Confidence: 0.3},
		"Guten Morgen!": {Language: "de", Confidence: 0.8},
	}}
}

func newTestTranslations(p Provider, d Detector, opts ...TranslationsOption) *Translations {
	opts = append([]TranslationsOption{WithProvider(p), WithDetector(d)}, opts...)
	return NewTranslations(libreSettings, english, opts...)
}

func TestShouldTranslate_NoService(t *testing.T) {
	settings := libreSettings
	settings.Service = ServiceNone

	tr := NewTranslations(settings, english,
		WithProvider(&stubProvider{response: "Hello world"}),
		WithDetector(newDetector()),
	)

	if tr.ShouldTranslate(spanishNote()) {
		t.Error("ShouldTranslate should be false without a translation service")
	}
}

func TestShouldTranslate_Misconfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
	}{
		{"libretranslate without url", Settings{Service: ServiceLibreTranslate}},
		{"libretranslate bad scheme", Settings{Service: ServiceLibreTranslate, LibreTranslateURL: "ftp://host"}},
		{"deepl without key", Settings{Service: ServiceDeepL, DeepLAPIKey: "  "}},
		{"openai without key", Settings{Service: ServiceOpenAI}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTranslations(tt.settings, english,
				WithProvider(&stubProvider{response: "Hello world"}),
				WithDetector(newDetector()),
			)
			if tr.ShouldTranslate(spanishNote()) {
				t.Error("ShouldTranslate should be false for a misconfigured service")
			}
		})
	}
}

func TestShouldTranslate_SelfAuthored(t *testing.T) {
	ev := spanishNote()
	ev.PubKey = english.PubKey

	tr := newTestTranslations(&stubProvider{response: "Hello world"}, newDetector())
	if tr.ShouldTranslate(ev) {
		t.Error("own notes should not be translated when the viewer can sign")
	}

	readOnly := english
	readOnly.HasPrivateKey = false
	tr = NewTranslations(libreSettings, readOnly,
		WithProvider(&stubProvider{response: "Hello world"}),
		WithDetector(newDetector()),
	)
	if !tr.ShouldTranslate(ev) {
		t.Error("a read-only viewer should be offered a translation of their own foreign note")
	}
}

func TestShouldTranslate_Detection(t *testing.T) {
	tests := []struct {
		content  string
		expected bool
	}{
		{"Hola mundo", true},
		{"Hello there", false},   // preferred language, region ignored
		{"quizás maybe", false},  // low confidence
		{"unknown text", false},  // no hypothesis
		{"Guten Morgen!", false}, // preferred below
	}

	viewer := english
	viewer.PreferredLanguages = []string{"en", "de_AT"}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			tr := NewTranslations(libreSettings, viewer,
				WithProvider(&stubProvider{response: "x"}),
				WithDetector(newDetector()),
			)
			ev := &nostr.Event{ID: tt.content, PubKey: "author", Content: tt.content}
			if got := tr.ShouldTranslate(ev); got != tt.expected {
				t.Errorf("ShouldTranslate(%q) = %v, want %v", tt.content, got, tt.expected)
			}
		})
	}
}

func TestShouldTranslate_MemoisesDetection(t *testing.T) {
	d := newDetector()
	tr := newTestTranslations(&stubProvider{response: "Hello world"}, d)

	ev := spanishNote()
	tr.ShouldTranslate(ev)
	tr.ShouldTranslate(ev)

	if n := atomic.LoadInt64(&d.calls); n != 1 {
		t.Errorf("detector called %d times, want 1", n)
	}
}

func TestTranslate_Success(t *testing.T) {
	p := &stubProvider{response: "Hello world"}
	store := cache.NewInMemoryCache(0)
	tr := newTestTranslations(p, newDetector(), WithStore(store))

	ev := spanishNote()
	got, ok := tr.Translate(context.Background(), ev)
	if !ok {
		t.Fatal("Translate should succeed")
	}

	if got.Language != "es" || got.Text != "Hello world" {
		t.Errorf("Translate() = %+v", got)
	}
	if got.Artifact == nil || got.Artifact.Text() != "Hello world" {
		t.Errorf("artifact not rendered from translated text: %+v", got.Artifact)
	}

	if st := tr.State(ev.ID); st.Status != StatusTranslated || st.Translation == nil {
		t.Errorf("State() = %+v, want translated", st)
	}

	if lang, _ := store.Get(LanguageKey(ev.ID)); lang != "es" {
		t.Errorf("cached language = %q, want es", lang)
	}
	if text, _ := store.Get(CacheKey(ev.ID, "en")); text != "Hello world" {
		t.Errorf("cached translation = %q", text)
	}

	// A second call is served from state
	if _, ok := tr.Translate(context.Background(), ev); !ok {
		t.Error("second Translate should return the translation")
	}
	if p.Calls() != 1 {
		t.Errorf("backend called %d times, want 1", p.Calls())
	}

	if !tr.ShouldTranslate(ev) {
		t.Error("ShouldTranslate should be true once a translation is cached")
	}
	if tr.CachedTranslation(ev).IsAbsent() {
		t.Error("CachedTranslation should be present")
	}
}

func TestTranslate_RequestLanguages(t *testing.T) {
	var got TranslateRequest
	p := ProviderFunc(func(ctx context.Context, req TranslateRequest) (string, error) {
		got = req
		return "Hello world", nil
	})
	viewer := english
	viewer.Locale = "en_GB.UTF-8"
	tr := NewTranslations(libreSettings, viewer, WithProvider(p), WithDetector(newDetector()))

	tr.Translate(context.Background(), spanishNote())

	want := TranslateRequest{Text: "Hola mundo", SourceLang: "es", TargetLang: "en"}
	if got != want {
		t.Errorf("request = %+v, want %+v", got, want)
	}
}

func TestTranslate_NotNeeded(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"identical", "Hola mundo"},
		{"identical after trimming", "  Hola mundo\n"},
		{"one edit", "Hola mundo!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubProvider{response: tt.response}
			store := cache.NewInMemoryCache(0)
			tr := newTestTranslations(p, newDetector(), WithStore(store))
			ev := spanishNote()

			if _, ok := tr.Translate(context.Background(), ev); ok {
				t.Fatal("trivial translation should be discarded")
			}
			if st := tr.State(ev.ID); st.Status != StatusNotNeeded {
				t.Errorf("State() = %v, want not_needed", st.Status)
			}
			if lang, ok := store.Get(LanguageKey(ev.ID)); !ok || lang != "es" {
				t.Errorf("language should still be cached, got %q", lang)
			}
			if _, ok := store.Get(CacheKey(ev.ID, "en")); ok {
				t.Error("no translation should be cached")
			}

			// Same service: state short-circuits
			tr.Translate(context.Background(), ev)
			// Fresh service over the same store: cache short-circuits
			fresh := newTestTranslations(p, newDetector(), WithStore(store))
			if _, ok := fresh.Translate(context.Background(), ev); ok {
				t.Error("cached not-needed entry should not produce a translation")
			}
			if fresh.ShouldTranslate(ev) {
				t.Error("ShouldTranslate should be false for a cached not-needed entry")
			}

			if p.Calls() != 1 {
				t.Errorf("backend called %d times, want 1", p.Calls())
			}
		})
	}
}

func TestTranslate_BackendError(t *testing.T) {
	p := &stubProvider{err: &ProviderError{Provider: "libretranslate", Message: "quota", StatusCode: 429}}
	store := cache.NewInMemoryCache(0)
	tr := newTestTranslations(p, newDetector(), WithStore(store))
	ev := spanishNote()

	if _, ok := tr.Translate(context.Background(), ev); ok {
		t.Fatal("Translate should fail quietly")
	}
	if st := tr.State(ev.ID); st.Status != StatusNotNeeded {
		t.Errorf("State() = %v, want not_needed", st.Status)
	}
	if store.Len() != 0 {
		t.Errorf("nothing should be cached after a backend error, got %d entries", store.Len())
	}
}

func TestTranslate_TargetLanguageSkipsBackend(t *testing.T) {
	p := &stubProvider{response: "Hi there"}
	tr := newTestTranslations(p, newDetector())
	ev := &nostr.Event{ID: "e2", PubKey: "author", Content: "Hello there"}

	if _, ok := tr.Translate(context.Background(), ev); ok {
		t.Error("a note already in the target language needs no translation")
	}
	if p.Calls() != 0 {
		t.Errorf("backend called %d times, want 0", p.Calls())
	}
}

func TestTranslate_Ineligible(t *testing.T) {
	tests := []struct {
		name   string
		viewer Viewer
		ev     *nostr.Event
	}{
		{
			name:   "own note with a private key",
			viewer: english,
			ev:     &nostr.Event{ID: "e3", PubKey: english.PubKey, Content: "Hola mundo"},
		},
		{
			name:   "preferred language",
			viewer: Viewer{PubKey: "viewer", Locale: "en_US", PreferredLanguages: []string{"en", "es"}},
			ev:     spanishNote(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubProvider{response: "Hello world"}
			store := cache.NewInMemoryCache(0)
			tr := NewTranslations(libreSettings, tt.viewer,
				WithProvider(p),
				WithDetector(newDetector()),
				WithStore(store),
			)

			if tr.ShouldTranslate(tt.ev) {
				t.Fatal("ShouldTranslate() = true, want false")
			}
			if _, ok := tr.Translate(context.Background(), tt.ev); ok {
				t.Error("Translate() ok = true, want false")
			}
			if p.Calls() != 0 {
				t.Errorf("backend called %d times, want 0", p.Calls())
			}
			if st := tr.State(EventKey(tt.ev)); st.Status != StatusNotNeeded {
				t.Errorf("State() = %v, want not_needed", st.Status)
			}
			if store.Len() != 0 {
				t.Errorf("nothing should be cached, got %d entries", store.Len())
			}
		})
	}
}

func TestTranslate_ConcurrentCallsNoOp(t *testing.T) {
	p := &stubProvider{response: "Hello world", release: make(chan struct{})}
	tr := newTestTranslations(p, newDetector())
	ev := spanishNote()

	changes, unsubscribe := tr.Subscribe(8)
	defer unsubscribe()

	var wg sync.WaitGroup
	var first bool
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, first = tr.Translate(context.Background(), ev)
	}()

	waitForStatus(t, changes, StatusInProgress)

	if _, ok := tr.Translate(context.Background(), ev); ok {
		t.Error("a concurrent call should no-op while a translation is in flight")
	}

	close(p.release)
	wg.Wait()

	if !first {
		t.Error("the first call should complete the translation")
	}
	if p.Calls() != 1 {
		t.Errorf("backend called %d times, want 1", p.Calls())
	}
	waitForStatus(t, changes, StatusTranslated)
}

func TestTranslate_Cancel(t *testing.T) {
	p := &stubProvider{response: "Hello world", release: make(chan struct{})}
	store := cache.NewInMemoryCache(0)
	tr := newTestTranslations(p, newDetector(), WithStore(store))
	ev := spanishNote()

	changes, unsubscribe := tr.Subscribe(8)
	defer unsubscribe()

	done := make(chan bool)
	go func() {
		_, ok := tr.Translate(context.Background(), ev)
		done <- ok
	}()

	waitForStatus(t, changes, StatusInProgress)
	tr.Cancel(ev.ID)

	select {
	case ok := <-done:
		if ok {
			t.Error("a cancelled translation should not succeed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Translate did not return after Cancel")
	}

	if st := tr.State(ev.ID); st.Status != StatusNotAttempted {
		t.Errorf("State() = %v, want not_attempted", st.Status)
	}
	if store.Len() != 0 {
		t.Errorf("a cancelled translation should cache nothing, got %d entries", store.Len())
	}

	// A later attempt runs again
	close(p.release)
	if _, ok := tr.Translate(context.Background(), ev); !ok {
		t.Error("Translate after Cancel should run")
	}
}

func TestTranslate_CallerContextCancelled(t *testing.T) {
	p := &stubProvider{response: "Hello world", release: make(chan struct{})}
	store := cache.NewInMemoryCache(0)
	tr := newTestTranslations(p, newDetector(), WithStore(store))
	ev := spanishNote()

	changes, unsubscribe := tr.Subscribe(8)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool)
	go func() {
		_, ok := tr.Translate(ctx, ev)
		done <- ok
	}()

	waitForStatus(t, changes, StatusInProgress)
	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Error("Translate should fail once its context is cancelled")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Translate did not return after its context was cancelled")
	}

	waitForStatus(t, changes, StatusNotAttempted)
	if st := tr.State(ev.ID); st.Status != StatusNotAttempted {
		t.Errorf("State() = %v, want not_attempted", st.Status)
	}
	if store.Len() != 0 {
		t.Errorf("nothing should be cached, got %d entries", store.Len())
	}

	close(p.release)
	got, ok := tr.Translate(context.Background(), ev)
	if !ok {
		t.Fatal("Translate with a fresh context should run again")
	}
	if got.Text != "Hello world" {
		t.Errorf("Text = %q, want %q", got.Text, "Hello world")
	}
	if p.Calls() != 2 {
		t.Errorf("backend called %d times, want 2", p.Calls())
	}
}

func TestTranslations_Invalidate(t *testing.T) {
	p := &stubProvider{response: "Hello world"}
	store := cache.NewInMemoryCache(0)
	tr := newTestTranslations(p, newDetector(), WithStore(store))
	ev := spanishNote()

	tr.Translate(context.Background(), ev)
	if err := tr.Invalidate(ev.ID); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}

	if st := tr.State(ev.ID); st.Status != StatusNotAttempted {
		t.Errorf("State() = %v, want not_attempted", st.Status)
	}
	if store.Len() != 0 {
		t.Errorf("cache should be empty, got %d entries", store.Len())
	}

	tr.Translate(context.Background(), ev)
	if p.Calls() != 2 {
		t.Errorf("backend called %d times, want 2", p.Calls())
	}
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	tr := newTestTranslations(&stubProvider{response: "Hello world"}, newDetector())

	changes, unsubscribe := tr.Subscribe(1)
	unsubscribe()
	unsubscribe()

	if _, ok := <-changes; ok {
		t.Error("channel should be closed after unsubscribe")
	}

	// Publishing with no subscribers must not block
	tr.Translate(context.Background(), spanishNote())
}

func TestStatusString(t *testing.T) {
	tests := map[Status]string{
		StatusNotAttempted: "not_attempted",
		StatusInProgress:   "in_progress",
		StatusTranslated:   "translated",
		StatusNotNeeded:    "not_needed",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
	if StatusInProgress.Terminal() || !StatusNotNeeded.Terminal() {
		t.Error("only translated and not_needed are terminal")
	}
}

func waitForStatus(t *testing.T, changes <-chan StateChange, want Status) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.State.Status == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %v", want)
		}
	}
}

func TestTranslationsDefaults(t *testing.T) {
	tr := NewTranslations(libreSettings, Viewer{})
	if tr.TargetLanguage() != "en" {
		t.Errorf("TargetLanguage() = %q, want en", tr.TargetLanguage())
	}
	// No provider: never eligible
	if tr.ShouldTranslate(spanishNote()) {
		t.Error("ShouldTranslate should be false without a provider")
	}
	if _, ok := tr.Translate(context.Background(), spanishNote()); ok {
		t.Error("Translate should fail without a provider")
	}
}
