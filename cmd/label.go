package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLabelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "label",
		Short: "List and modify message labels",
	}
	cmd.AddCommand(newLabelLsCmd())
	cmd.AddCommand(newLabelAddCmd())
	cmd.AddCommand(newLabelRmCmd())
	return cmd
}

func newLabelLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List all labels",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			client, err := app.gmailClient(cmd.Context())
			if err != nil {
				return err
			}

			labels, err := client.Labels(cmd.Context())
			if err != nil {
				return err
			}

			if app.printer.JSON() {
				return app.printer.Emit("", labels)
			}
			lines := []string{fmt.Sprintf("%d labels", len(labels))}
			for _, label := range labels {
				lines = append(lines, fmt.Sprintf("%s\t%s", label.ID, label.Name))
			}
			return app.printer.EmitLines(lines, labels)
		},
	}
}

func newLabelAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <message-id> <label>...",
		Short: "Add labels to a message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLabelMutation(cmd, args[0], args[1:], nil, "labels added on ")
		},
	}
}

func newLabelRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <message-id> <label>...",
		Short: "Remove labels from a message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLabelMutation(cmd, args[0], nil, args[1:], "labels removed on ")
		},
	}
}

func runLabelMutation(cmd *cobra.Command, id string, add, remove []string, prefix string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	client, err := app.gmailClient(cmd.Context())
	if err != nil {
		return err
	}

	result, err := client.ModifyLabels(cmd.Context(), id, add, remove)
	if err != nil {
		return err
	}
	return app.printer.Emit(prefix+result.ID, result)
}
