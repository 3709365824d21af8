package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTMLWrapsDocument(t *testing.T) {
	html, err := RenderHTML("# Title\n\nbody text\n")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(html, "<!doctype html>"))
	assert.Contains(t, html, `<div class="email-body">`)
	assert.Contains(t, html, "<h1>Title</h1>")
	assert.Contains(t, html, "<p>body text</p>")
	assert.NotContains(t, html, "__BODY__")
}

func TestRenderHTMLExtensions(t *testing.T) {
	source := strings.Join([]string{
		"| a | b |",
		"|---|---|",
		"| 1 | 2 |",
		"",
		"~~gone~~",
		"",
		"- [x] done",
		"",
		"text with a note[^1]",
		"",
		"[^1]: the note",
	}, "\n")

	html, err := RenderHTML(source)
	require.NoError(t, err)

	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<del>gone</del>")
	assert.Contains(t, html, `type="checkbox"`)
	assert.Contains(t, html, "footnote")
}

func TestRenderHTMLEmptyBody(t *testing.T) {
	html, err := RenderHTML("")
	require.NoError(t, err)
	assert.Contains(t, html, "<p></p>")
}
