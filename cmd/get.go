package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <message-id>",
		Short: "Fetch a single message with bodies and attachment metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			client, err := app.gmailClient(cmd.Context())
			if err != nil {
				return err
			}

			msg, err := client.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			from := msg.From
			if from == "" {
				from = "(unknown sender)"
			}
			subject := msg.Subject
			if subject == "" {
				subject = "(no subject)"
			}
			text := fmt.Sprintf("%s | %s | %s", msg.ID, from, subject)
			return app.printer.Emit(text, msg)
		},
	}
}
