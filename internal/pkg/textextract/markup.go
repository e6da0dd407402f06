package textextract

import (
	"strings"

	"github.com/jaytaylor/html2text"
	"github.com/muesli/reflow/wordwrap"
)

// wrapColumns is cosmetic only; it keeps prompts readable in logs and does
// not change what the model sees semantically.
const wrapColumns = 130

// FromMarkup converts a rich-text note body to plain text. Plain bodies pass
// through untouched apart from wrapping, so the function is safe to call on
// everything.
func FromMarkup(content string) string {
	text, err := html2text.FromString(content)
	if err != nil {
		text = content
	}
	return strings.TrimSpace(wordwrap.String(text, wrapColumns))
}
