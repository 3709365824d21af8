package mail

import "fmt"

// ComposeKind classifies a message-composition failure.
type ComposeKind string

const (
	// KindInvalidAttachmentPath means an attachment path could not be read
	// or does not name a file.
	KindInvalidAttachmentPath ComposeKind = "invalid_attachment_path"

	// KindUnsupportedEncoding means a header or body could not be encoded
	// into a valid MIME message.
	KindUnsupportedEncoding ComposeKind = "unsupported_encoding"
)

// ComposeError is a failure building an outgoing message.
type ComposeError struct {
	Kind   ComposeKind
	Reason string
	Err    error
}

func (e *ComposeError) Error() string {
	return fmt.Sprintf("compose error (%s): %s", e.Kind, e.Reason)
}

func (e *ComposeError) Unwrap() error { return e.Err }
