package cmd

import (
	"fmt"
	"html"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tkoenig/gmailcli/internal/gmail"
)

// previewLimit is the longest snippet shown in list output.
const previewLimit = 120

func newListCmd() *cobra.Command {
	var (
		limit int64
		inbox bool
		query string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List messages, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be greater than 0")
			}

			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			client, err := app.gmailClient(cmd.Context())
			if err != nil {
				return err
			}

			messages, err := client.List(cmd.Context(), buildQuery(inbox, query), limit)
			if err != nil {
				return err
			}

			if app.printer.JSON() {
				return app.printer.Emit("", messages)
			}
			return app.printer.EmitLines(formatList(messages), messages)
		},
	}

	cmd.Flags().Int64Var(&limit, "limit", 10, "Maximum number of messages to list")
	cmd.Flags().BoolVar(&inbox, "inbox", false, "Restrict to the inbox")
	cmd.Flags().StringVar(&query, "q", "", "Gmail search query")
	return cmd
}

func formatList(messages []*gmail.MessageSummary) []string {
	if len(messages) == 0 {
		return []string{"0 messages"}
	}

	var lines []string
	for i, msg := range messages {
		from := msg.From
		if from == "" {
			from = "(unknown sender)"
		}
		subject := msg.Subject
		if subject == "" {
			subject = "(no subject)"
		}
		date := msg.Date
		if date == "" {
			date = "(no date)"
		}

		lines = append(lines,
			fmt.Sprintf("%d. %s", i+1, msg.ID),
			"   from: "+from,
			"   subject: "+subject,
			"   date: "+date,
			"",
			"   "+formatPreview(msg.Snippet),
		)
		if i+1 < len(messages) {
			lines = append(lines, "")
		}
	}
	return lines
}

// formatPreview decodes HTML entities in a snippet, collapses whitespace,
// and trims it to the preview limit on a rune boundary.
func formatPreview(snippet string) string {
	if snippet == "" {
		return "(no preview)"
	}

	decoded := html.UnescapeString(snippet)
	compact := strings.Join(strings.Fields(decoded), " ")

	runes := []rune(compact)
	if len(runes) <= previewLimit {
		return compact
	}
	return string(runes[:previewLimit]) + "..."
}

func buildQuery(inbox bool, userQuery string) string {
	userQuery = strings.TrimSpace(userQuery)
	switch {
	case inbox && userQuery != "":
		return "in:inbox " + userQuery
	case inbox:
		return "in:inbox"
	default:
		return userQuery
	}
}
