package gmail

import (
	"encoding/base64"
	"fmt"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// metadataHeaders are the headers fetched for list views and reply threading.
var metadataHeaders = []string{
	"Subject", "From", "To", "Reply-To", "Date",
	"Message-ID", "In-Reply-To", "References",
}

// MessageSummary is the list view of a message.
type MessageSummary struct {
	ID         string `json:"id"`
	ThreadID   string `json:"thread_id"`
	Subject    string `json:"subject"`
	From       string `json:"from"`
	Date       string `json:"date"`
	Snippet    string `json:"snippet"`
	MessageID  string `json:"message_id,omitempty"`
	InReplyTo  string `json:"in_reply_to,omitempty"`
	References string `json:"references,omitempty"`
	ReplyTo    string `json:"reply_to,omitempty"`
}

// Attachment is the metadata of a message part that carries a file.
type Attachment struct {
	AttachmentID string `json:"attachment_id"`
	PartID       string `json:"part_id"`
	Filename     string `json:"filename"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
}

// Message is the full view of a single message: threading headers, decoded
// bodies, and attachment metadata.
type Message struct {
	ID          string       `json:"id"`
	ThreadID    string       `json:"thread_id"`
	LabelIDs    []string     `json:"label_ids,omitempty"`
	Subject     string       `json:"subject"`
	From        string       `json:"from"`
	To          string       `json:"to,omitempty"`
	Cc          string       `json:"cc,omitempty"`
	ReplyTo     string       `json:"reply_to,omitempty"`
	Date        string       `json:"date"`
	MessageID   string       `json:"message_id,omitempty"`
	InReplyTo   string       `json:"in_reply_to,omitempty"`
	References  string       `json:"references,omitempty"`
	Snippet     string       `json:"snippet,omitempty"`
	TextBody    string       `json:"text_body,omitempty"`
	HTMLBody    string       `json:"html_body,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// headerValue returns the first matching header, case-insensitively.
func headerValue(payload *gmail.MessagePart, name string) string {
	if payload == nil {
		return ""
	}
	for _, h := range payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func summaryFromMessage(msg *gmail.Message) *MessageSummary {
	return &MessageSummary{
		ID:         msg.Id,
		ThreadID:   msg.ThreadId,
		Subject:    headerValue(msg.Payload, "Subject"),
		From:       headerValue(msg.Payload, "From"),
		Date:       headerValue(msg.Payload, "Date"),
		Snippet:    msg.Snippet,
		MessageID:  headerValue(msg.Payload, "Message-ID"),
		InReplyTo:  headerValue(msg.Payload, "In-Reply-To"),
		References: headerValue(msg.Payload, "References"),
		ReplyTo:    headerValue(msg.Payload, "Reply-To"),
	}
}

func messageFromFull(msg *gmail.Message) (*Message, error) {
	out := &Message{
		ID:         msg.Id,
		ThreadID:   msg.ThreadId,
		LabelIDs:   msg.LabelIds,
		Subject:    headerValue(msg.Payload, "Subject"),
		From:       headerValue(msg.Payload, "From"),
		To:         headerValue(msg.Payload, "To"),
		Cc:         headerValue(msg.Payload, "Cc"),
		ReplyTo:    headerValue(msg.Payload, "Reply-To"),
		Date:       headerValue(msg.Payload, "Date"),
		MessageID:  headerValue(msg.Payload, "Message-ID"),
		InReplyTo:  headerValue(msg.Payload, "In-Reply-To"),
		References: headerValue(msg.Payload, "References"),
		Snippet:    msg.Snippet,
	}

	var walkErr error
	walkParts(msg.Payload, func(part *gmail.MessagePart) {
		if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
			out.Attachments = append(out.Attachments, Attachment{
				AttachmentID: part.Body.AttachmentId,
				PartID:       part.PartId,
				Filename:     part.Filename,
				MimeType:     part.MimeType,
				Size:         part.Body.Size,
			})
			return
		}
		if part.Body == nil || part.Body.Data == "" {
			return
		}
		switch part.MimeType {
		case "text/plain":
			if out.TextBody == "" {
				decoded, err := decodeBody(part.Body.Data)
				if err != nil {
					walkErr = err
					return
				}
				out.TextBody = decoded
			}
		case "text/html":
			if out.HTMLBody == "" {
				decoded, err := decodeBody(part.Body.Data)
				if err != nil {
					walkErr = err
					return
				}
				out.HTMLBody = decoded
			}
		}
	})
	if walkErr != nil {
		return nil, &APIError{Kind: KindMalformed, Reason: "undecodable message body", Err: walkErr}
	}
	return out, nil
}

// walkParts visits payload and all nested parts depth-first.
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}
	fn(part)
	for _, sub := range part.Parts {
		walkParts(sub, fn)
	}
}

// decodeBody decodes the base64url body data the API returns. Some senders
// produce standard base64, so that is accepted as a fallback.
func decodeBody(data string) (string, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(data)
		if err != nil {
			return "", fmt.Errorf("decode message body: %w", err)
		}
	}
	return string(decoded), nil
}
