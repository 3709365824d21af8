package mail

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// emailHTMLTemplate wraps the rendered body in a self-contained document so
// the message displays consistently across mail clients.
const emailHTMLTemplate = `<!doctype html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <style>
    body {
      margin: 0;
      padding: 0;
      background: #ffffff;
      color: #202124;
      font-family: Arial, Helvetica, sans-serif;
      font-size: 14px;
      line-height: 1.6;
    }
    .email-body {
      margin: 0;
      padding: 0;
    }
    h1, h2, h3, h4, h5, h6 {
      line-height: 1.3;
      margin-top: 1.2em;
      margin-bottom: 0.5em;
    }
    p, ul, ol, pre, blockquote, table {
      margin-top: 0;
      margin-bottom: 1em;
    }
    a {
      color: #0b57d0;
    }
    img {
      max-width: 100%;
      height: auto;
    }
    pre {
      background: #f1f3f5;
      border-radius: 8px;
      overflow-x: auto;
      padding: 12px;
      white-space: pre-wrap;
      word-break: break-word;
    }
    code {
      font-family: Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace;
    }
    blockquote {
      margin-left: 0;
      padding-left: 12px;
      border-left: 3px solid #d0d7de;
      color: #5f6368;
    }
    table {
      border-collapse: collapse;
      width: 100%;
      display: block;
      overflow-x: auto;
    }
    th, td {
      border: 1px solid #d0d7de;
      padding: 6px 8px;
      text-align: left;
    }
  </style>
</head>
<body>
  <div class="email-body">
__BODY__
  </div>
</body>
</html>
`

var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.Table,
		extension.Strikethrough,
		extension.TaskList,
		extension.Footnote,
	),
)

// RenderHTML converts markdown to a full HTML email document.
func RenderHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "", &ComposeError{Kind: KindUnsupportedEncoding, Reason: "render markdown", Err: err}
	}

	body := buf.String()
	if strings.TrimSpace(body) == "" {
		body = "<p></p>"
	}
	return strings.Replace(emailHTMLTemplate, "__BODY__", body, 1), nil
}
