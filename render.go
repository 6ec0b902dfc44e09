package gonote

import (
	"net/url"
	"path"
	"strings"
	"unicode"

	"github.com/nbd-wtf/go-nostr"
	"github.com/samber/mo"
)

// imageExtensions are the file suffixes treated as inline images.
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif"}

// Profile is the subset of kind-0 metadata needed to render mentions.
type Profile struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Profiles resolves pubkeys to profiles.
type Profiles interface {
	Lookup(pubkey string) mo.Option[Profile]
}

// ProfileMap is a Profiles backed by a map keyed by hex pubkey.
type ProfileMap map[string]Profile

// Lookup implements Profiles.
func (m ProfileMap) Lookup(pubkey string) mo.Option[Profile] {
	if p, ok := m[pubkey]; ok {
		return mo.Some(p)
	}
	return mo.None[Profile]()
}

// Renderer turns block sequences into artifacts.
type Renderer struct {
	profiles                  Profiles
	suppressSingleNoteMention bool
	directMessage             bool
}

// RendererOption is a functional option for configuring the Renderer.
type RendererOption func(*Renderer)

// WithProfiles sets the profile lookup used for mention display names.
func WithProfiles(p Profiles) RendererOption {
	return func(r *Renderer) {
		r.profiles = p
	}
}

// WithSuppressSingleNoteMention drops the inline text of a note mention
// when it is the only note mention in the content. Clients that show the
// mentioned note as an embedded card enable this.
func WithSuppressSingleNoteMention(enabled bool) RendererOption {
	return func(r *Renderer) {
		r.suppressSingleNoteMention = enabled
	}
}

// WithDirectMessageStyle underlines links instead of coloring them.
func WithDirectMessageStyle(enabled bool) RendererOption {
	return func(r *Renderer) {
		r.directMessage = enabled
	}
}

// NewRenderer creates a Renderer.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ForKind returns a copy of the renderer styled for the given event kind.
func (r *Renderer) ForKind(kind int) *Renderer {
	c := *r
	c.directMessage = kind == nostr.KindEncryptedDirectMessage
	return &c
}

// Render folds blocks into an artifact. It is pure: the same blocks and
// profile lookups always give the same artifact.
func (r *Renderer) Render(blocks []Block) *Artifact {
	a := &Artifact{
		Content:  StyledText{},
		Images:   []string{},
		Invoices: []Invoice{},
		Links:    []string{},
	}

	oneNoteRef := false
	if r.suppressSingleNoteMention {
		count := 0
		for _, b := range blocks {
			if IsNoteMention(b) {
				count++
			}
		}
		oneNoteRef = count == 1
	}

	for i, block := range blocks {
		switch b := block.(type) {
		case Text:
			text := b.Text
			if i > 0 && isImageBlock(blocks[i-1]) {
				text = " " + strings.TrimLeftFunc(text, unicode.IsSpace)
			}
			if i+1 < len(blocks) && isImageBlock(blocks[i+1]) {
				text = strings.TrimRightFunc(text, unicode.IsSpace)
			}
			a.Content = append(a.Content, Span{Text: text})
		case Mention:
			if oneNoteRef && b.Ref.Type == MentionNote {
				continue
			}
			a.Content = append(a.Content, r.mentionSpan(b))
		case Hashtag:
			a.Content = append(a.Content, Span{
				Text:     "#" + b.Tag,
				Link:     b.Tag,
				LinkKind: LinkHashtag,
				Style:    r.linkStyle(),
			})
		case URL:
			if IsImageURL(b.URL) {
				a.Images = append(a.Images, b.URL)
				continue
			}
			a.Links = append(a.Links, b.URL)
			a.Content = append(a.Content, Span{
				Text:     b.URL,
				Link:     b.URL,
				LinkKind: LinkURL,
				Style:    r.linkStyle(),
			})
		case Invoice:
			a.Invoices = append(a.Invoices, b)
		case Relay:
			a.Content = append(a.Content, Span{Text: b.URL})
		}
	}

	return a
}

func (r *Renderer) linkStyle() Style {
	if r.directMessage {
		return StyleUnderline
	}
	return StyleAccent
}

func (r *Renderer) mentionSpan(m Mention) Span {
	bech := m.Ref.Bech32()
	span := Span{
		Link:  "nostr:" + bech,
		Style: r.linkStyle(),
	}

	if m.Ref.Type == MentionNote {
		span.Text = "@" + Abbreviate(bech)
		span.LinkKind = LinkNote
		return span
	}

	span.LinkKind = LinkProfile
	span.Text = "@" + Abbreviate(bech)
	if r.profiles != nil {
		if p, ok := r.profiles.Lookup(m.Ref.ID).Get(); ok {
			if name := p.displayName(); name != "" {
				span.Text = "@" + name
			}
		}
	}
	return span
}

func (p Profile) displayName() string {
	if name := strings.TrimSpace(p.DisplayName); name != "" {
		return name
	}
	return strings.TrimSpace(p.Name)
}

// Abbreviate shortens a bech32 id to its first and last eight characters.
func Abbreviate(id string) string {
	const n = 8
	if len(id) <= 2*n+1 {
		return id
	}
	return id[:n] + ":" + id[len(id)-n:]
}

// IsImageURL reports whether the URL's last path segment ends with an
// image extension, ignoring case.
func IsImageURL(raw string) bool {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	last := strings.ToLower(path.Base(p))
	for _, ext := range imageExtensions {
		if strings.HasSuffix(last, ext) {
			return true
		}
	}
	return false
}

func isImageBlock(b Block) bool {
	u, ok := b.(URL)
	return ok && IsImageURL(u.URL)
}
