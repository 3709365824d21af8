package mail

import (
	"bytes"
	"io"
	"mime"
	nmail "net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
)

// Attachment is a file to include in an outgoing message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ThreadContext carries the headers that tie a reply to its parent.
type ThreadContext struct {
	MessageID  string
	References []string
	ThreadID   string
}

// Outgoing describes a message to compose. The markdown body becomes the
// text/plain alternative as-is; the rendered HTML becomes the text/html one.
type Outgoing struct {
	FromName    string
	FromAddress string
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	Markdown    string
	Attachments []Attachment
	Reply       *ThreadContext
}

// Compose renders the outgoing message to RFC 5322 bytes. Without
// attachments the result is multipart/alternative (plain, then HTML); with
// attachments it is multipart/mixed holding that alternative part followed
// by the attachments in input order.
func Compose(out *Outgoing) ([]byte, error) {
	html, err := RenderHTML(out.Markdown)
	if err != nil {
		return nil, err
	}

	header, err := buildHeader(out)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if len(out.Attachments) == 0 {
		iw, err := mail.CreateInlineWriter(&buf, *header)
		if err != nil {
			return nil, encodingError("create message writer", err)
		}
		if err := writeAlternative(iw, out.Markdown, html); err != nil {
			return nil, err
		}
		if err := iw.Close(); err != nil {
			return nil, encodingError("finish message", err)
		}
		return buf.Bytes(), nil
	}

	mw, err := mail.CreateWriter(&buf, *header)
	if err != nil {
		return nil, encodingError("create message writer", err)
	}
	iw, err := mw.CreateInline()
	if err != nil {
		return nil, encodingError("create body part", err)
	}
	if err := writeAlternative(iw, out.Markdown, html); err != nil {
		return nil, err
	}
	if err := iw.Close(); err != nil {
		return nil, encodingError("finish body part", err)
	}

	for _, att := range out.Attachments {
		if err := writeAttachment(mw, att); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, encodingError("finish message", err)
	}
	return buf.Bytes(), nil
}

func buildHeader(out *Outgoing) (*mail.Header, error) {
	var h mail.Header
	h.SetDate(time.Now())

	if out.FromAddress != "" {
		h.SetAddressList("From", []*mail.Address{{
			Name:    SanitizeHeaderValue(out.FromName),
			Address: out.FromAddress,
		}})
	}

	for _, field := range []struct {
		name   string
		values []string
	}{
		{"To", out.To},
		{"Cc", out.Cc},
		{"Bcc", out.Bcc},
	} {
		if len(field.values) == 0 {
			continue
		}
		addrs, err := parseAddresses(field.values)
		if err != nil {
			return nil, err
		}
		h.SetAddressList(field.name, addrs)
	}

	h.SetSubject(out.Subject)

	if out.Reply != nil && out.Reply.MessageID != "" {
		parent := trimMsgID(out.Reply.MessageID)
		h.SetMsgIDList("In-Reply-To", []string{parent})

		refs := MergeReferences(out.Reply.References, out.Reply.MessageID)
		ids := make([]string, 0, len(refs))
		for _, ref := range refs {
			ids = append(ids, trimMsgID(ref))
		}
		h.SetMsgIDList("References", ids)
	}
	return &h, nil
}

// writeAlternative emits the plain and HTML parts, plain first so clients
// that stop at the first supported alternative still show something.
func writeAlternative(iw *mail.InlineWriter, plain, html string) error {
	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	pw, err := iw.CreatePart(th)
	if err != nil {
		return encodingError("create text part", err)
	}
	if _, err := io.WriteString(pw, plain); err != nil {
		return encodingError("write text part", err)
	}
	if err := pw.Close(); err != nil {
		return encodingError("finish text part", err)
	}

	var hh mail.InlineHeader
	hh.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	hw, err := iw.CreatePart(hh)
	if err != nil {
		return encodingError("create html part", err)
	}
	if _, err := io.WriteString(hw, html); err != nil {
		return encodingError("write html part", err)
	}
	if err := hw.Close(); err != nil {
		return encodingError("finish html part", err)
	}
	return nil
}

func writeAttachment(mw *mail.Writer, att Attachment) error {
	ctype := att.ContentType
	if ctype == "" {
		ctype = "application/octet-stream"
	}

	var ah mail.AttachmentHeader
	ah.SetContentType(ctype, nil)
	ah.SetFilename(att.Filename)

	aw, err := mw.CreateAttachment(ah)
	if err != nil {
		return encodingError("create attachment part", err)
	}
	if _, err := aw.Write(att.Data); err != nil {
		return encodingError("write attachment "+att.Filename, err)
	}
	if err := aw.Close(); err != nil {
		return encodingError("finish attachment "+att.Filename, err)
	}
	return nil
}

// LoadAttachment reads a file and infers its content type from the
// extension, falling back to application/octet-stream.
func LoadAttachment(path string) (Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, &ComposeError{
			Kind:   KindInvalidAttachmentPath,
			Reason: "read attachment " + path,
			Err:    err,
		}
	}

	filename := filepath.Base(path)
	if filename == "." || filename == string(filepath.Separator) {
		return Attachment{}, &ComposeError{
			Kind:   KindInvalidAttachmentPath,
			Reason: "invalid attachment path: " + path,
		}
	}

	ctype := "application/octet-stream"
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			ctype = mediaType
		}
	}

	return Attachment{Filename: filename, ContentType: ctype, Data: data}, nil
}

// SanitizeHeaderValue strips characters that would break or forge a header.
func SanitizeHeaderValue(input string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(input) {
		if r == '\r' || r == '\n' || r == '"' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EnsureReplySubject prefixes "Re: " unless the subject already carries it.
func EnsureReplySubject(subject string) string {
	trimmed := strings.TrimSpace(subject)
	if strings.HasPrefix(strings.ToLower(trimmed), "re:") {
		return trimmed
	}
	return "Re: " + trimmed
}

// MergeReferences appends messageID to the reference chain, preserving the
// existing order and dropping duplicates.
func MergeReferences(existing []string, messageID string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, ref := range existing {
		for _, id := range strings.Fields(ref) {
			add(id)
		}
	}
	add(messageID)
	return out
}

// SplitReferences splits a raw References header into individual ids.
func SplitReferences(header string) []string {
	return strings.Fields(header)
}

func trimMsgID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "<")
	return strings.TrimSuffix(id, ">")
}

func parseAddresses(values []string) ([]*mail.Address, error) {
	out := make([]*mail.Address, 0, len(values))
	for _, value := range values {
		parsed, err := nmail.ParseAddress(value)
		if err != nil {
			return nil, &ComposeError{
				Kind:   KindUnsupportedEncoding,
				Reason: "invalid address: " + value,
				Err:    err,
			}
		}
		out = append(out, &mail.Address{Name: parsed.Name, Address: parsed.Address})
	}
	return out, nil
}

func encodingError(step string, err error) error {
	return &ComposeError{Kind: KindUnsupportedEncoding, Reason: step, Err: err}
}
