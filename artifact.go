package gonote

import "strings"

// LinkKind tells presentation layers what a span's link points at.
type LinkKind int

const (
	LinkNone LinkKind = iota
	LinkURL
	LinkHashtag
	LinkProfile
	LinkNote
)

func (k LinkKind) String() string {
	switch k {
	case LinkURL:
		return "url"
	case LinkHashtag:
		return "hashtag"
	case LinkProfile:
		return "profile"
	case LinkNote:
		return "note"
	default:
		return "none"
	}
}

// Style is the visual treatment of a span.
type Style int

const (
	// StylePlain is unstyled text.
	StylePlain Style = iota
	// StyleAccent uses the accent color.
	StyleAccent
	// StyleUnderline underlines the span. Used inside direct message
	// bubbles where the accent color is not readable.
	StyleUnderline
)

func (s Style) String() string {
	switch s {
	case StyleAccent:
		return "accent"
	case StyleUnderline:
		return "underline"
	default:
		return "plain"
	}
}

// Span is a styled piece of inline text.
type Span struct {
	Text     string   `json:"text"`
	Link     string   `json:"link,omitempty"`
	LinkKind LinkKind `json:"link_kind,omitempty"`
	Style    Style    `json:"style,omitempty"`
}

// StyledText is an ordered sequence of spans.
type StyledText []Span

// String returns the inline text without styling.
func (s StyledText) String() string {
	var sb strings.Builder
	for _, span := range s {
		sb.WriteString(span.Text)
	}
	return sb.String()
}

// Artifact is the rendered form of a block sequence. Images and invoices
// are pulled out of the inline text; links stay inline and are also listed.
type Artifact struct {
	Content  StyledText `json:"content"`
	Images   []string   `json:"images"`
	Invoices []Invoice  `json:"invoices"`
	Links    []string   `json:"links"`
}

// JustContent wraps plain text in an artifact with no extracted media.
func JustContent(content string) *Artifact {
	return &Artifact{Content: StyledText{{Text: content}}}
}

// Text returns the artifact's inline text.
func (a *Artifact) Text() string {
	return a.Content.String()
}
