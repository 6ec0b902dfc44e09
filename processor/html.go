package processor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ZaguanLabs/gonote"
)

// HTMLFormatter turns a rendered artifact into an HTML fragment.
type HTMLFormatter struct {
	linkBase string
}

// HTMLOption configures an HTMLFormatter.
type HTMLOption func(*HTMLFormatter)

// WithLinkBase points profile, note and hashtag links at a web gateway
// (for example "https://njump.me/") instead of nostr: URIs.
func WithLinkBase(base string) HTMLOption {
	return func(f *HTMLFormatter) {
		if base != "" && !strings.HasSuffix(base, "/") {
			base += "/"
		}
		f.linkBase = base
	}
}

// NewHTMLFormatter creates a new HTML formatter.
func NewHTMLFormatter(opts ...HTMLOption) *HTMLFormatter {
	f := &HTMLFormatter{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format renders a as a <div class="note"> fragment. lang, when set, is
// written to the lang and dir attributes.
func (f *HTMLFormatter) Format(a *gonote.Artifact, lang string) (string, error) {
	if a == nil {
		return "", &gonote.ProcessorError{Message: "nil artifact", ContentType: "html"}
	}

	root := element(atom.Div, "class", "note")
	if lang != "" {
		root.Attr = append(root.Attr,
			html.Attribute{Key: "lang", Val: gonote.ToHTMLLang(lang)},
			html.Attribute{Key: "dir", Val: gonote.GetDirection(lang)},
		)
	}

	content := element(atom.P, "class", "content")
	for _, span := range a.Content {
		f.appendSpan(content, span)
	}
	root.AppendChild(content)

	if len(a.Images) > 0 {
		images := element(atom.Div, "class", "images")
		for _, src := range a.Images {
			images.AppendChild(element(atom.Img, "src", src, "loading", "lazy"))
		}
		root.AppendChild(images)
	}

	for _, inv := range a.Invoices {
		root.AppendChild(invoiceNode(inv))
	}

	out, err := goquery.OuterHtml(goquery.NewDocumentFromNode(root).Selection)
	if err != nil {
		return "", &gonote.ProcessorError{Message: "failed to render HTML", Cause: err, ContentType: "html"}
	}
	return out, nil
}

func (f *HTMLFormatter) appendSpan(parent *html.Node, span gonote.Span) {
	if span.Link == "" && span.Style == gonote.StylePlain {
		appendText(parent, span.Text)
		return
	}

	var n *html.Node
	if span.Link != "" {
		n = element(atom.A,
			"href", f.href(span),
			"class", "link-"+span.LinkKind.String()+" style-"+span.Style.String())
		if span.LinkKind == gonote.LinkURL {
			n.Attr = append(n.Attr, html.Attribute{Key: "rel", Val: "noopener nofollow"})
		}
	} else {
		n = element(atom.Span, "class", "style-"+span.Style.String())
	}
	appendText(n, span.Text)
	parent.AppendChild(n)
}

func (f *HTMLFormatter) href(span gonote.Span) string {
	switch span.LinkKind {
	case gonote.LinkHashtag:
		if f.linkBase != "" {
			return f.linkBase + "t/" + span.Link
		}
		return "#" + span.Link
	case gonote.LinkProfile, gonote.LinkNote:
		if f.linkBase != "" {
			return f.linkBase + strings.TrimPrefix(span.Link, "nostr:")
		}
	}
	return span.Link
}

func invoiceNode(inv gonote.Invoice) *html.Node {
	n := element(atom.Div, "class", "invoice")
	if inv.PaymentHash != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "data-payment-hash", Val: inv.PaymentHash})
	}

	amount := element(atom.Span, "class", "amount")
	appendText(amount, inv.Amount.String())
	n.AppendChild(amount)

	if inv.Description != "" {
		desc := element(atom.Span, "class", "description")
		appendText(desc, inv.Description)
		n.AppendChild(desc)
	}

	pay := element(atom.A, "href", "lightning:"+strings.TrimPrefix(strings.ToLower(inv.Raw), "lightning:"), "class", "pay")
	appendText(pay, "Pay")
	n.AppendChild(pay)
	return n
}

// appendText adds text to parent, turning newlines into <br> elements.
func appendText(parent *html.Node, text string) {
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			parent.AppendChild(element(atom.Br))
		}
		if line != "" {
			parent.AppendChild(&html.Node{Type: html.TextNode, Data: line})
		}
	}
}

func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}
