package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tkoenig/gmailcli/internal/gmail"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name  string
		inbox bool
		query string
		want  string
	}{
		{"inbox only", true, "", "in:inbox"},
		{"inbox with query", true, "from:alice@example.com", "in:inbox from:alice@example.com"},
		{"query only", false, "is:unread", "is:unread"},
		{"neither", false, "", ""},
		{"whitespace query ignored", true, "   ", "in:inbox"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildQuery(tt.inbox, tt.query))
		})
	}
}

func TestFormatPreviewTruncates(t *testing.T) {
	long := strings.Repeat("lengthy snippet content ", 20)
	preview := formatPreview(long)

	assert.True(t, strings.HasSuffix(preview, "..."))
	assert.LessOrEqual(t, len([]rune(preview)), previewLimit+3)
}

func TestFormatPreviewDecodesEntities(t *testing.T) {
	preview := formatPreview("I&#39;ve &amp; you&#x27;ve &lt;done&gt; this")
	assert.Equal(t, "I've & you've <done> this", preview)
}

func TestFormatPreviewCompactsWhitespace(t *testing.T) {
	preview := formatPreview("first   line\n\tsecond  line")
	assert.Equal(t, "first line second line", preview)
}

func TestFormatPreviewEmpty(t *testing.T) {
	assert.Equal(t, "(no preview)", formatPreview(""))
}

func TestFormatListEmpty(t *testing.T) {
	assert.Equal(t, []string{"0 messages"}, formatList(nil))
}

func TestFormatListFillsPlaceholders(t *testing.T) {
	lines := formatList([]*gmail.MessageSummary{{ID: "m1"}})

	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "1. m1")
	assert.Contains(t, joined, "(unknown sender)")
	assert.Contains(t, joined, "(no subject)")
	assert.Contains(t, joined, "(no date)")
	assert.Contains(t, joined, "(no preview)")
}
