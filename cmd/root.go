package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tkoenig/gmailcli/internal/logging"
)

var (
	flagProfile string
	flagJSON    bool
	flagVerbose int
)

// rootCmd represents the base command for the gmail application
var rootCmd = &cobra.Command{
	Use:   "gmail",
	Short: "Send and read Gmail from the command line",
	Long: `gmail is a command-line client for Gmail. It authenticates with OAuth
(authorization code + PKCE on a loopback redirect), stores tokens per
profile, and exposes the everyday operations: list, get, send with
markdown bodies and attachments, replies, and label management.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(flagVerbose)
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "gmail version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProfile, "profile", "default", "Configuration profile to use")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Emit results as JSON")
	rootCmd.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")

	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newLabelCmd())
}
