package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tkoenig/gmailcli/internal/gmail"
	"github.com/tkoenig/gmailcli/internal/mail"
)

func newSendCmd() *cobra.Command {
	var (
		to       []string
		cc       []string
		bcc      []string
		subject  string
		body     string
		bodyFile string
		useStdin bool
		replyID  string
		attach   []string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message with a markdown body",
		Long: `Send a message. The body is markdown: the raw source becomes the
plain-text part and the rendered HTML the alternative. With --reply the
message is threaded under the given parent and the recipient and subject
default from it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			markdown, err := readBody(body, bodyFile, useStdin, cmd.InOrStdin())
			if err != nil {
				return err
			}

			attachments := make([]mail.Attachment, 0, len(attach))
			for _, path := range attach {
				att, err := mail.LoadAttachment(path)
				if err != nil {
					return err
				}
				attachments = append(attachments, att)
			}

			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			client, err := app.gmailClient(cmd.Context())
			if err != nil {
				return err
			}

			fromName, fromAddress := resolveFrom(app)
			out := &mail.Outgoing{
				FromName:    fromName,
				FromAddress: fromAddress,
				To:          to,
				Cc:          cc,
				Bcc:         bcc,
				Subject:     subject,
				Markdown:    markdown,
				Attachments: attachments,
			}

			threadID := ""
			if replyID != "" {
				parent, err := client.Get(cmd.Context(), replyID)
				if err != nil {
					return err
				}
				if err := applyReply(out, parent); err != nil {
					return err
				}
				threadID = parent.ThreadID
			} else {
				if len(out.To) == 0 {
					return fmt.Errorf("--to is required unless --reply is used")
				}
				if out.Subject == "" {
					return fmt.Errorf("--subject is required unless --reply is used")
				}
			}

			raw, err := mail.Compose(out)
			if err != nil {
				return err
			}
			result, err := client.Send(cmd.Context(), raw, threadID)
			if err != nil {
				return err
			}

			return app.printer.Emit("sent message "+result.ID, result)
		},
	}

	cmd.Flags().StringSliceVar(&to, "to", nil, "Recipient address (repeatable)")
	cmd.Flags().StringSliceVar(&cc, "cc", nil, "Cc address (repeatable)")
	cmd.Flags().StringSliceVar(&bcc, "bcc", nil, "Bcc address (repeatable)")
	cmd.Flags().StringVar(&subject, "subject", "", "Message subject")
	cmd.Flags().StringVar(&body, "body", "", "Markdown body")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "Read the markdown body from a file")
	cmd.Flags().BoolVar(&useStdin, "stdin", false, "Read the markdown body from stdin")
	cmd.Flags().StringVar(&replyID, "reply", "", "Reply to the message with this id")
	cmd.Flags().StringSliceVar(&attach, "attach", nil, "Attachment path (repeatable)")
	return cmd
}

// applyReply fills recipient, subject, and threading headers from the parent
// message when they were not given explicitly.
func applyReply(out *mail.Outgoing, parent *gmail.Message) error {
	if len(out.To) == 0 {
		recipient := parent.ReplyTo
		if recipient == "" {
			recipient = parent.From
		}
		if recipient == "" {
			return fmt.Errorf("unable to infer reply recipient; pass --to explicitly")
		}
		out.To = []string{recipient}
	}

	subject := out.Subject
	if subject == "" {
		subject = parent.Subject
		if subject == "" {
			subject = "(no subject)"
		}
	}
	out.Subject = mail.EnsureReplySubject(subject)

	if parent.MessageID != "" {
		out.Reply = &mail.ThreadContext{
			MessageID:  parent.MessageID,
			References: mail.SplitReferences(parent.References),
			ThreadID:   parent.ThreadID,
		}
	}
	return nil
}

// readBody selects exactly one body source.
func readBody(body, bodyFile string, useStdin bool, stdin io.Reader) (string, error) {
	selected := 0
	if body != "" {
		selected++
	}
	if bodyFile != "" {
		selected++
	}
	if useStdin {
		selected++
	}

	if selected == 0 {
		return "", fmt.Errorf("missing body source; pass one of --body, --body-file, or --stdin")
	}
	if selected > 1 {
		return "", fmt.Errorf("pass only one body source: --body, --body-file, or --stdin")
	}

	switch {
	case body != "":
		return body, nil
	case bodyFile != "":
		data, err := os.ReadFile(bodyFile)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

// resolveFrom derives the From header parts: the authenticated address from
// the stored token, and a display name from settings or the name captured at
// login.
func resolveFrom(app *app) (name, address string) {
	rec, err := app.store.Load(app.profile)
	if err != nil || rec == nil {
		return "", ""
	}

	address = strings.TrimSpace(rec.Email)
	name = strings.TrimSpace(app.settings.SenderName)
	if name == "" {
		name = strings.TrimSpace(rec.Name)
	}
	if address == "" {
		return "", ""
	}
	return name, address
}
