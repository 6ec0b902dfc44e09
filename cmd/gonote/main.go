// Command gonote renders Nostr notes and translates them when the reader
// does not understand the note's language.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/rs/zerolog"

	"github.com/ZaguanLabs/gonote"
	"github.com/ZaguanLabs/gonote/cache"
	"github.com/ZaguanLabs/gonote/detector"
	"github.com/ZaguanLabs/gonote/processor"
	"github.com/ZaguanLabs/gonote/provider"
)

// Build-time variables (can be overridden with ldflags)
var (
	version   = gonote.Version
	commit    = gonote.GitCommit
	buildDate = gonote.BuildDate
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath      string
	service         string
	libreURL        string
	apiKey          string
	model           string
	lang            string
	preferred       string
	pubkey          string
	hasKey          bool
	format          string
	translate       bool
	suppressMention bool
	directMessage   bool
	profilesPath    string
	cacheFile       string
	cacheTTL        int
	redisURL        string
	linkBase        string
	logLevel        string
	timeout         time.Duration
	workers         int
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("gonote", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.configPath, "config", "", "YAML settings file")
	fs.StringVar(&o.service, "service", "", "Translation service: none, libretranslate, deepl, openai")
	fs.StringVar(&o.libreURL, "libretranslate-url", "", "LibreTranslate endpoint (default: LIBRETRANSLATE_URL env)")
	fs.StringVar(&o.apiKey, "api-key", "", "API key for the selected service (default: DEEPL_API_KEY / OPENAI_API_KEY env)")
	fs.StringVar(&o.model, "model", "", "OpenAI model to use")
	fs.StringVar(&o.lang, "lang", "", "Reader locale, e.g. en_US (default: LANG env, then en)")
	fs.StringVar(&o.preferred, "preferred", "", "Comma-separated languages the reader understands")
	fs.StringVar(&o.pubkey, "pubkey", "", "Reader's hex pubkey")
	fs.BoolVar(&o.hasKey, "has-key", false, "Reader holds the private key for --pubkey")
	fs.StringVar(&o.format, "format", "text", "Output format: text, json, html")
	fs.BoolVar(&o.translate, "translate", false, "Translate eligible notes (default: auto_translate setting)")
	fs.BoolVar(&o.suppressMention, "suppress-note-mention", false, "Hide a note's only quoted-note mention")
	fs.BoolVar(&o.directMessage, "dm", false, "Render with direct message link style")
	fs.StringVar(&o.profilesPath, "profiles", "", "JSON file of kind-0 metadata events")
	fs.StringVar(&o.cacheFile, "cache-file", "", "Import the cache from and export it to this file")
	fs.IntVar(&o.cacheTTL, "cache-ttl", 0, "Translation cache TTL in seconds (0 = no expiry); detected languages never expire")
	fs.StringVar(&o.redisURL, "redis-url", "", "Use a Redis cache (default: REDIS_URL env)")
	fs.StringVar(&o.linkBase, "link-base", "", "Web gateway for nostr links in HTML output")
	fs.StringVar(&o.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	fs.DurationVar(&o.timeout, "timeout", 30*time.Second, "Timeout per translation")
	fs.IntVar(&o.workers, "workers", 4, "Concurrent language detections")
	showVersion := fs.Bool("version", false, "Show version")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Fprintf(stdout, "%s %s\n", gonote.Name, version)
		if commit != "unknown" && commit != "" {
			fmt.Fprintf(stdout, "  commit:  %s\n", commit)
		}
		if buildDate != "unknown" && buildDate != "" {
			fmt.Fprintf(stdout, "  built:   %s\n", buildDate)
		}
		return nil
	}

	switch o.format {
	case "text", "json", "html":
	default:
		return fmt.Errorf("unknown --format %q", o.format)
	}

	logger, err := newLogger(stderr, o.logLevel)
	if err != nil {
		return err
	}

	// Get input
	var data []byte
	if fs.NArg() == 0 {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(fs.Arg(0)) // #nosec G304 - CLI tool reads user-specified files
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}
	}

	events, err := parseEvents(data)
	if err != nil {
		return err
	}

	settings, err := loadSettings(o, fs)
	if err != nil {
		return err
	}

	profiles := gonote.ProfileMap{}
	if o.profilesPath != "" {
		if profiles, err = loadProfiles(o.profilesPath); err != nil {
			return err
		}
	}

	renderer := gonote.NewRenderer(
		gonote.WithProfiles(profiles),
		gonote.WithSuppressSingleNoteMention(o.suppressMention),
		gonote.WithDirectMessageStyle(o.directMessage),
	)
	parser := processor.NewContentParser()

	store, finish, err := openStore(o, logger)
	if err != nil {
		return err
	}

	opts := []gonote.TranslationsOption{
		gonote.WithDetector(detector.NewLingua()),
		gonote.WithParser(parser),
		gonote.WithRenderer(renderer),
		gonote.WithStore(store),
		gonote.WithLogger(logger),
		gonote.WithWarmConcurrency(o.workers),
	}

	if settings.Service != gonote.ServiceNone {
		p, err := provider.New(settings)
		if err != nil {
			logger.Warn().Err(err).Str("service", string(settings.Service)).Msg("translation disabled")
		} else {
			retry := gonote.DefaultRetryConfig()
			retry.OnRetry = func(attempt int, delay time.Duration, err error) {
				logger.Info().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("retrying translation")
			}
			limited := gonote.NewRateLimitedProvider(p, gonote.RateLimitConfigFor(settings.Service))
			opts = append(opts, gonote.WithProvider(gonote.NewRetryableProvider(limited, retry)))
		}
	}

	viewer := gonote.Viewer{
		PubKey:        o.pubkey,
		HasPrivateKey: o.hasKey,
		Locale:        readerLocale(o.lang),
	}
	if o.preferred != "" {
		viewer.PreferredLanguages = splitList(o.preferred)
	}

	t := gonote.NewTranslations(settings, viewer, opts...)

	changes, unsubscribe := t.Subscribe(len(events) * 4)
	defer unsubscribe()

	ctx := context.Background()
	detected := t.Warm(ctx, events)

	notes := make([]noteOutput, 0, len(events))
	for _, ev := range events {
		key := gonote.EventKey(ev)

		note := noteOutput{
			ID:              ev.ID,
			Kind:            ev.Kind,
			Language:        detected[key],
			ShouldTranslate: t.ShouldTranslate(ev),
			Artifact:        renderer.ForKind(ev.Kind).Render(parser.Parse(ev.Content, ev.Tags)),
		}
		if entry, ok := t.Cache().Get(key); ok && note.Language == "" {
			note.Language = entry.Language
		}

		if settings.AutoTranslate && note.ShouldTranslate {
			tctx, cancel := context.WithTimeout(ctx, o.timeout)
			if tr, ok := t.Translate(tctx, ev); ok {
				note.Translation = &translationOutput{
					Language: tr.Language,
					Text:     tr.Text,
					Artifact: tr.Artifact,
				}
			}
			cancel()
		}

		notes = append(notes, note)
	}

	drainChanges(changes, logger)

	if err := writeNotes(stdout, notes, o, t.TargetLanguage()); err != nil {
		return err
	}

	return finish()
}

type translationOutput struct {
	Language string           `json:"language"`
	Text     string           `json:"text"`
	Artifact *gonote.Artifact `json:"artifact"`
}

type noteOutput struct {
	ID              string             `json:"id"`
	Kind            int                `json:"kind"`
	Language        string             `json:"language,omitempty"`
	ShouldTranslate bool               `json:"should_translate"`
	Artifact        *gonote.Artifact   `json:"artifact"`
	Translation     *translationOutput `json:"translation,omitempty"`
}

func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid --log-level: %w", err)
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().Timestamp().Logger(), nil
}

// parseEvents accepts a single event object or an array of events.
func parseEvents(data []byte) ([]*nostr.Event, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("no input events")
	}

	var events []*nostr.Event
	if data[0] == '[' {
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("parsing events: %w", err)
		}
	} else {
		var ev nostr.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("parsing event: %w", err)
		}
		events = append(events, &ev)
	}

	out := events[:0]
	for _, ev := range events {
		if ev != nil {
			out = append(out, ev)
		}
	}
	return out, nil
}

// loadSettings reads the settings file and applies flag and environment
// overrides on top.
func loadSettings(o options, fs *flag.FlagSet) (gonote.Settings, error) {
	settings := gonote.DefaultSettings()
	if o.configPath != "" {
		s, err := gonote.LoadSettings(o.configPath)
		if err != nil {
			return gonote.Settings{}, err
		}
		settings = s
	}

	if o.service != "" {
		settings.Service = gonote.TranslationService(strings.ToLower(o.service))
	}
	if o.model != "" {
		settings.OpenAIModel = o.model
	}

	libreURL := firstNonEmpty(o.libreURL, settings.LibreTranslateURL, os.Getenv("LIBRETRANSLATE_URL"))
	settings.LibreTranslateURL = libreURL

	switch settings.Service {
	case gonote.ServiceNone:
	case gonote.ServiceLibreTranslate:
		settings.LibreTranslateAPIKey = firstNonEmpty(o.apiKey, settings.LibreTranslateAPIKey, os.Getenv("LIBRETRANSLATE_API_KEY"))
	case gonote.ServiceDeepL:
		settings.DeepLAPIKey = firstNonEmpty(o.apiKey, settings.DeepLAPIKey, os.Getenv("DEEPL_API_KEY"))
	case gonote.ServiceOpenAI:
		settings.OpenAIAPIKey = firstNonEmpty(o.apiKey, settings.OpenAIAPIKey, os.Getenv("OPENAI_API_KEY"))
	default:
		return gonote.Settings{}, fmt.Errorf("unknown translation service %q", settings.Service)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "translate" {
			settings.AutoTranslate = o.translate
		}
	})

	return settings, nil
}

func loadProfiles(path string) (gonote.ProfileMap, error) {
	data, err := os.ReadFile(path) // #nosec G304 - CLI tool reads user-specified files
	if err != nil {
		return nil, fmt.Errorf("reading profiles: %w", err)
	}

	events, err := parseEvents(data)
	if err != nil {
		return nil, fmt.Errorf("profiles: %w", err)
	}

	profiles := make(gonote.ProfileMap, len(events))
	for _, ev := range events {
		if ev.Kind != nostr.KindProfileMetadata {
			continue
		}
		var p gonote.Profile
		if err := json.Unmarshal([]byte(ev.Content), &p); err != nil {
			continue
		}
		profiles[ev.PubKey] = p
	}
	return profiles, nil
}

// openStore picks Redis when configured and the in-memory cache otherwise.
// The returned function exports the in-memory cache and closes Redis.
func openStore(o options, logger zerolog.Logger) (gonote.CacheStore, func() error, error) {
	redisURL := firstNonEmpty(o.redisURL, os.Getenv("REDIS_URL"))
	if redisURL != "" {
		rc, err := cache.NewRedisCache(cache.RedisConfig{URL: redisURL, TTL: o.cacheTTL})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		if o.cacheFile != "" {
			if err := importCache(rc, o.cacheFile, logger); err != nil {
				_ = rc.Close()
				return nil, nil, err
			}
		}
		return rc, rc.Close, nil
	}

	mem := cache.NewInMemoryCache(o.cacheTTL)
	if o.cacheFile == "" {
		return mem, func() error { return nil }, nil
	}

	if err := importCache(mem, o.cacheFile, logger); err != nil {
		return nil, nil, err
	}

	export := func() error {
		meta := map[string]string{"generator": gonote.UserAgent()}
		if err := cache.NewExporter(mem).ExportToFile(o.cacheFile, meta); err != nil {
			return fmt.Errorf("exporting cache: %w", err)
		}
		logger.Info().Int("entries", mem.Len()).Str("file", o.cacheFile).Msg("cache exported")
		return nil
	}
	return mem, export, nil
}

func importCache(store cache.Store, path string, logger zerolog.Logger) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	res, err := cache.NewImporter(store).ImportFromFile(path)
	if err != nil {
		return fmt.Errorf("importing cache: %w", err)
	}
	logger.Info().
		Int("imported", res.Imported).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("cache imported")
	return nil
}

// drainChanges logs the state changes published so far.
func drainChanges(changes <-chan gonote.StateChange, logger zerolog.Logger) {
	for {
		select {
		case c, ok := <-changes:
			if !ok {
				return
			}
			logger.Debug().Str("event", c.EventKey).Stringer("status", c.State.Status).Msg("translation state")
		default:
			return
		}
	}
}

func writeNotes(w io.Writer, notes []noteOutput, o options, target string) error {
	switch o.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(notes)
	case "html":
		f := processor.NewHTMLFormatter(processor.WithLinkBase(o.linkBase))
		for _, n := range notes {
			out, err := f.Format(n.Artifact, n.Language)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, out)
			if n.Translation != nil {
				out, err := f.Format(n.Translation.Artifact, target)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, out)
			}
		}
		return nil
	}

	for i, n := range notes {
		if i > 0 {
			fmt.Fprintln(w)
		}
		lang := n.Language
		if lang == "" {
			lang = "unknown"
		}
		fmt.Fprintf(w, "note %s [%s]\n", gonote.Abbreviate(n.ID), lang)
		fmt.Fprintln(w, n.Artifact.Text())
		for _, img := range n.Artifact.Images {
			fmt.Fprintf(w, "  image: %s\n", img)
		}
		for _, inv := range n.Artifact.Invoices {
			fmt.Fprintf(w, "  invoice: %s %s\n", inv.Amount, inv.Description)
		}
		if n.Translation != nil {
			fmt.Fprintf(w, "-- translated from %s:\n", gonote.GetLanguageName(n.Translation.Language))
			fmt.Fprintln(w, n.Translation.Artifact.Text())
		} else if n.ShouldTranslate {
			fmt.Fprintln(w, "-- translation available (--translate)")
		}
	}
	return nil
}

func readerLocale(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	// LANG is usually "en_US.UTF-8"
	locale, _, _ := strings.Cut(os.Getenv("LANG"), ".")
	if locale == "C" || locale == "POSIX" {
		return ""
	}
	return locale
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
