package gonote

import (
	"strconv"
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/shopspring/decimal"
)

// Block is one parsed unit of note content.
//
// The concrete variants are Text, Mention, Hashtag, URL, Invoice and Relay.
// Blocks are values and are never mutated after construction.
type Block interface {
	// String returns the raw content form of the block.
	String() string
	isBlock()
}

// Text is a run of plain text.
type Text struct {
	Text string
}

// MentionType distinguishes profile mentions from note mentions.
type MentionType int

const (
	// MentionPubkey references a user profile.
	MentionPubkey MentionType = iota
	// MentionNote references another note.
	MentionNote
)

// MentionRef identifies the mentioned profile or note by hex id.
type MentionRef struct {
	Type MentionType
	ID   string
}

// Mention is a reference to a user or a note. HasIndex is set when the
// mention came from a tag table reference (#[index]).
type Mention struct {
	Ref      MentionRef
	Index    int
	HasIndex bool
}

// Hashtag is a #topic reference, stored without the leading '#'.
type Hashtag struct {
	Tag string
}

// URL is a link found in the content.
type URL struct {
	URL string
}

// Amount is a lightning invoice amount. Any is set when the invoice lets
// the payer choose the amount.
type Amount struct {
	Msat int64
	Any  bool
}

// Sats returns the amount in satoshis.
func (a Amount) Sats() decimal.Decimal {
	return decimal.NewFromInt(a.Msat).Shift(-3)
}

// BTC returns the amount in bitcoin.
func (a Amount) BTC() decimal.Decimal {
	return decimal.NewFromInt(a.Msat).Shift(-11)
}

func (a Amount) String() string {
	if a.Any {
		return "any"
	}
	return a.Sats().String() + " sats"
}

// Invoice is a BOLT-11 lightning invoice.
type Invoice struct {
	Description string
	Amount      Amount
	PaymentHash string // hex
	Expiry      uint64 // seconds
	CreatedAt   uint64 // unix seconds
	Raw         string
}

// Relay is a relay reference (nrelay).
type Relay struct {
	URL string
}

func (Text) isBlock()    {}
func (Mention) isBlock() {}
func (Hashtag) isBlock() {}
func (URL) isBlock()     {}
func (Invoice) isBlock() {}
func (Relay) isBlock()   {}

func (b Text) String() string    { return b.Text }
func (b Hashtag) String() string { return "#" + b.Tag }
func (b URL) String() string     { return b.URL }
func (b Invoice) String() string { return b.Raw }
func (b Relay) String() string   { return b.URL }

func (b Mention) String() string {
	if b.HasIndex {
		return IndexPlaceholder(b.Index)
	}
	return "nostr:" + b.Ref.Bech32()
}

// Bech32 returns the npub or note encoding of the reference, falling back
// to the hex id when it cannot be encoded.
func (r MentionRef) Bech32() string {
	var (
		enc string
		err error
	)
	switch r.Type {
	case MentionNote:
		enc, err = nip19.EncodeNote(r.ID)
	default:
		enc, err = nip19.EncodePublicKey(r.ID)
	}
	if err != nil {
		return r.ID
	}
	return enc
}

// IndexPlaceholder is the literal rendering of an unresolved #[index] mention.
func IndexPlaceholder(index int) string {
	return "#[" + strconv.Itoa(index) + "]"
}

// MentionFromIndex resolves a #[index] reference against the event's tag
// table. Unresolvable references become the literal "#[index]" text.
func MentionFromIndex(index int, tags nostr.Tags) Block {
	if tags == nil || index < 0 || index >= len(tags) {
		return Text{Text: IndexPlaceholder(index)}
	}

	tag := tags[index]
	if len(tag) < 2 || tag[1] == "" {
		return Text{Text: IndexPlaceholder(index)}
	}

	switch tag[0] {
	case "p":
		return Mention{Ref: MentionRef{Type: MentionPubkey, ID: tag[1]}, Index: index, HasIndex: true}
	case "e":
		return Mention{Ref: MentionRef{Type: MentionNote, ID: tag[1]}, Index: index, HasIndex: true}
	default:
		return Text{Text: IndexPlaceholder(index)}
	}
}

// IsNoteMention reports whether b mentions a note.
func IsNoteMention(b Block) bool {
	m, ok := b.(Mention)
	return ok && m.Ref.Type == MentionNote
}

// PlainText joins the text-only segments of blocks with single spaces.
// URLs, hashtags and mentions are left out.
func PlainText(blocks []Block) string {
	var parts []string
	for _, b := range blocks {
		if t, ok := b.(Text); ok {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, " ")
}

// Content reassembles the raw note content from blocks.
func Content(blocks []Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		sb.WriteString(b.String())
	}
	return sb.String()
}
