package processor

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"

	"github.com/ZaguanLabs/gonote"
)

// ContentParser splits note content into blocks.
type ContentParser struct {
	decodeInvoices bool
}

// NewContentParser creates a parser that recognizes index mentions,
// nostr: references, hashtags, URLs and lightning invoices.
func NewContentParser() *ContentParser {
	return &ContentParser{decodeInvoices: true}
}

// Parse tokenizes content. Unrecognized or undecodable tokens stay in the
// surrounding text, so Content(Parse(s)) reproduces s except for resolved
// nostr: prefixes.
func (p *ContentParser) Parse(content string, tags nostr.Tags) []gonote.Block {
	var (
		blocks []gonote.Block
		text   strings.Builder
	)

	flush := func() {
		if text.Len() > 0 {
			blocks = append(blocks, gonote.Text{Text: text.String()})
			text.Reset()
		}
	}

	i := 0
	for i < len(content) {
		boundary := i == 0 || isBoundary(lastRune(content[:i]))

		if b, n := p.match(content[i:], tags, boundary); n > 0 {
			if t, ok := b.(gonote.Text); ok {
				text.WriteString(t.Text)
			} else {
				flush()
				blocks = append(blocks, b)
			}
			i += n
			continue
		}

		_, size := utf8.DecodeRuneInString(content[i:])
		text.WriteString(content[i : i+size])
		i += size
	}
	flush()

	return blocks
}

// match tries every token kind at the start of s and returns the block and
// the number of bytes it consumed.
func (p *ContentParser) match(s string, tags nostr.Tags, boundary bool) (gonote.Block, int) {
	switch {
	case strings.HasPrefix(s, "#["):
		return matchIndexMention(s, tags)
	case strings.HasPrefix(s, "#"):
		if boundary {
			return matchHashtag(s)
		}
	case strings.HasPrefix(s, "nostr:"), strings.HasPrefix(s, "@nostr:"):
		return matchBech32(s)
	case hasPrefixFold(s, "http://"), hasPrefixFold(s, "https://"):
		if boundary {
			return matchURL(s)
		}
	case hasPrefixFold(s, "lightning:"), hasPrefixFold(s, "lnbc"), hasPrefixFold(s, "lntb"):
		if boundary && p.decodeInvoices {
			return matchInvoice(s)
		}
	}
	return nil, 0
}

func matchIndexMention(s string, tags nostr.Tags) (gonote.Block, int) {
	end := strings.IndexByte(s, ']')
	if end < 3 {
		return nil, 0
	}
	digits := s[2:end]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return nil, 0
		}
	}
	index, err := strconv.Atoi(digits)
	if err != nil {
		return nil, 0
	}
	return gonote.MentionFromIndex(index, tags), end + 1
}

func matchHashtag(s string) (gonote.Block, int) {
	n := 1
	for n < len(s) {
		r, size := utf8.DecodeRuneInString(s[n:])
		if !isHashtagRune(r) {
			break
		}
		n += size
	}
	if n == 1 {
		return nil, 0
	}
	return gonote.Hashtag{Tag: s[1:n]}, n
}

func matchBech32(s string) (gonote.Block, int) {
	prefix := len("nostr:")
	if s[0] == '@' {
		prefix++
	}

	n := prefix
	for n < len(s) && isBech32Char(s[n]) {
		n++
	}
	entity := s[prefix:n]
	if entity == "" {
		return nil, 0
	}

	b, ok := decodeEntity(strings.ToLower(entity))
	if !ok {
		return nil, 0
	}
	return b, n
}

// decodeEntity maps a NIP-19 entity to a block.
func decodeEntity(entity string) (gonote.Block, bool) {
	if strings.HasPrefix(entity, "nrelay1") {
		url, err := decodeRelay(entity)
		if err != nil {
			return nil, false
		}
		return gonote.Relay{URL: url}, true
	}

	prefix, value, err := nip19.Decode(entity)
	if err != nil {
		return nil, false
	}

	pubkey := func(id string) gonote.Block {
		return gonote.Mention{Ref: gonote.MentionRef{Type: gonote.MentionPubkey, ID: id}}
	}
	note := func(id string) gonote.Block {
		return gonote.Mention{Ref: gonote.MentionRef{Type: gonote.MentionNote, ID: id}}
	}

	switch v := value.(type) {
	case string:
		switch prefix {
		case "npub":
			return pubkey(v), true
		case "note":
			return note(v), true
		case "nsec":
			pk, err := nostr.GetPublicKey(v)
			if err != nil {
				return nil, false
			}
			return pubkey(pk), true
		}
	case nostr.ProfilePointer:
		return pubkey(v.PublicKey), true
	case *nostr.ProfilePointer:
		return pubkey(v.PublicKey), true
	case nostr.EventPointer:
		return note(v.ID), true
	case *nostr.EventPointer:
		return note(v.ID), true
	}

	// naddr and anything newer stay as text
	return gonote.Text{Text: "nostr:" + entity}, true
}

func matchURL(s string) (gonote.Block, int) {
	n := strings.IndexFunc(s, unicode.IsSpace)
	if n < 0 {
		n = len(s)
	}
	n = trimURLEnd(s[:n])

	scheme := strings.Index(s, "://") + 3
	if n <= scheme {
		return nil, 0
	}
	return gonote.URL{URL: s[:n]}, n
}

// trimURLEnd drops trailing punctuation that more likely belongs to the
// sentence than to the URL. A closing parenthesis is kept when the URL
// opened one.
func trimURLEnd(u string) int {
	n := len(u)
	for n > 0 {
		c := u[n-1]
		switch {
		case strings.IndexByte(".,;:!?'\"", c) >= 0:
			n--
		case c == ')' && strings.Count(u[:n], "(") < strings.Count(u[:n], ")"):
			n--
		default:
			return n
		}
	}
	return n
}

func matchInvoice(s string) (gonote.Block, int) {
	start := 0
	if hasPrefixFold(s, "lightning:") {
		start = len("lightning:")
	}

	n := start
	for n < len(s) && isBech32Char(s[n]|0x20) {
		n++
	}

	inv, err := DecodeInvoice(s[start:n])
	if err != nil {
		return nil, 0
	}
	return inv, n
}

// decodeRelay reads the relay URL (TLV type 0) from an nrelay entity.
func decodeRelay(entity string) (string, error) {
	hrp, data, err := bech32.DecodeNoLimit(entity)
	if err != nil {
		return "", err
	}
	if hrp != "nrelay" {
		return "", errors.New("not an nrelay: " + hrp)
	}
	b, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", err
	}

	for len(b) >= 2 {
		typ, n := b[0], int(b[1])
		b = b[2:]
		if n > len(b) {
			return "", errors.New("truncated tlv")
		}
		if typ == 0 {
			return string(b[:n]), nil
		}
		b = b[n:]
	}
	return "", errors.New("no relay in nrelay")
}

func isBoundary(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '/'
}

func isHashtagRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.Is(unicode.Mn, r)
}

func isBech32Char(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

// Verify ContentParser implements Parser
var _ gonote.Parser = (*ContentParser)(nil)
