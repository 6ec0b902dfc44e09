package gonote

import (
	"context"

	"github.com/gammazero/workerpool"
	"github.com/nbd-wtf/go-nostr"
)

// Warm runs language detection for many events concurrently, so later
// ShouldTranslate calls for a timeline are served from memory. Events whose
// language is already cached are skipped. It returns the detected language
// by event key; events with no confident detection are left out.
func (t *Translations) Warm(ctx context.Context, events []*nostr.Event) map[string]string {
	type detection struct {
		key  string
		lang string
		ok   bool
	}

	// Deduplicate by key first
	pending := make(map[string]*nostr.Event)
	for _, ev := range events {
		if ev == nil {
			continue
		}
		key := EventKey(ev)
		if _, ok := pending[key]; ok {
			continue
		}
		if _, cached := t.cache.Get(key); cached {
			continue
		}
		pending[key] = ev
	}

	results := make(chan detection, len(pending))
	wp := workerpool.New(t.warmWorkers)

	for key, ev := range pending {
		key, ev := key, ev
		wp.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			lang, ok := t.detect(key, ev).Get()
			results <- detection{key: key, lang: lang, ok: ok}
		})
	}

	wp.StopWait()
	close(results)

	detected := make(map[string]string)
	for r := range results {
		if r.ok {
			detected[r.key] = r.lang
		}
	}

	t.logger.Debug().Int("events", len(pending)).Int("detected", len(detected)).Msg("warmed timeline")
	return detected
}
