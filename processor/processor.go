// Package processor turns raw note content into blocks and rendered
// artifacts into HTML.
//
// ContentParser implements gonote.Parser. DecodeInvoice reads BOLT-11
// lightning invoices found in content. HTMLFormatter writes an artifact as
// an HTML fragment.
package processor

import "github.com/ZaguanLabs/gonote"

// Block is an alias to the main package type.
type Block = gonote.Block

// Parse tokenizes content with a default ContentParser.
func Parse(content string) []Block {
	return NewContentParser().Parse(content, nil)
}
