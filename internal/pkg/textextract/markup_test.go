package textextract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromMarkup_StripsTags(t *testing.T) {
	got := FromMarkup("<p>Hello <strong>world</strong></p>")
	require.Contains(t, got, "Hello world")
	require.NotContains(t, got, "<p>")
	require.NotContains(t, got, "<strong>")
}

func TestFromMarkup_WrapsLongLines(t *testing.T) {
	got := FromMarkup("<p>" + strings.Repeat("word ", 60) + "</p>")
	for _, line := range strings.Split(got, "\n") {
		require.LessOrEqual(t, len(line), 130)
	}
}

func TestFromMarkup_PlainTextPassesThrough(t *testing.T) {
	require.Equal(t, "Buy milk", FromMarkup("Buy milk"))
}

func TestFromMarkup_TrimsWhitespace(t *testing.T) {
	got := FromMarkup("  \n<p>content</p>\n  ")
	require.Equal(t, "content", got)
}
