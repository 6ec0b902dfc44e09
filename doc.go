// Package gonote renders Nostr note content and decides when to offer a
// translation for it.
//
// A note is parsed into blocks (text, mentions, hashtags, URLs, invoices),
// folded by a Renderer into an Artifact for display, and checked by
// Translations against the viewer's languages and the configured backend.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/gonote"
//	    "github.com/ZaguanLabs/gonote/detector"
//	    "github.com/ZaguanLabs/gonote/processor"
//	    "github.com/ZaguanLabs/gonote/provider"
//	)
//
//	func main() {
//	    settings, _ := gonote.LoadSettings("settings.yaml")
//	    p, _ := provider.New(settings)
//
//	    tr := gonote.NewTranslations(settings, gonote.Viewer{Locale: "en_US"},
//	        gonote.WithProvider(p),
//	        gonote.WithDetector(detector.NewLingua()),
//	        gonote.WithParser(processor.NewContentParser()),
//	    )
//
//	    if tr.ShouldTranslate(ev) {
//	        if t, ok := tr.Translate(context.Background(), ev); ok {
//	            fmt.Println(t.Artifact.Text())
//	        }
//	    }
//	}
package gonote
