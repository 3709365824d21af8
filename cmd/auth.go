package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tkoenig/gmailcli/internal/auth"
	"github.com/tkoenig/gmailcli/internal/config"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage OAuth credentials",
	}
	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in through the browser and store a token for the profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			if err := ensureOAuthClient(app); err != nil {
				return err
			}

			flow := auth.NewFlow(app.settings, app.store)
			result, err := flow.Login(cmd.Context(), app.profile)
			if err != nil {
				return err
			}

			text := fmt.Sprintf("%s: %s", result.Profile, result.Note)
			if result.Email != "" {
				text = fmt.Sprintf("%s: logged in as %s", result.Profile, result.Email)
			}
			return app.printer.Emit(text, result)
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored credential state without network calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}

			flow := auth.NewFlow(app.settings, app.store)
			status, err := flow.Status(app.profile)
			if err != nil {
				return err
			}
			return app.printer.Emit(formatStatus(status), status)
		},
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the token remotely and remove local credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}

			flow := auth.NewFlow(app.settings, app.store)
			status, err := flow.Logout(cmd.Context(), app.profile)
			if err != nil {
				return err
			}

			text := fmt.Sprintf("%s: logged out", status.Profile)
			return app.printer.Emit(text, status)
		},
	}
}

func formatStatus(status *auth.StatusResult) string {
	if !status.LoggedIn {
		return fmt.Sprintf("%s: logged out", status.Profile)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: logged in", status.Profile)
	if status.Email != "" {
		fmt.Fprintf(&b, " as %s", status.Email)
	}
	if status.HasRefreshToken != nil {
		if *status.HasRefreshToken {
			b.WriteString(" (refresh available)")
		} else {
			b.WriteString(" (no refresh token)")
		}
	}
	return b.String()
}

// ensureOAuthClient fills in the OAuth client configuration interactively
// when it is missing, persisting the answers to the profile settings file.
func ensureOAuthClient(app *app) error {
	missingID := strings.TrimSpace(app.settings.ClientID) == ""
	missingSecret := strings.TrimSpace(app.settings.ClientSecret) == ""
	if !missingID && !missingSecret {
		return nil
	}

	settingsPath := app.paths.SettingsFile(app.profile)
	if !stdinIsTerminal() {
		return &config.Error{
			Field: "client_id",
			Reason: fmt.Sprintf(
				"missing oauth client configuration in %s; run `gmail auth login` in an interactive terminal to be prompted, or add the values manually",
				settingsPath),
		}
	}

	fmt.Printf("OAuth client config is missing for profile %q.\n", app.profile)
	fmt.Printf("Settings will be saved to %s.\n", settingsPath)

	reader := bufio.NewReader(os.Stdin)
	if missingID {
		value, err := promptRequired(reader, "OAuth client_id: ")
		if err != nil {
			return err
		}
		app.settings.ClientID = value
	}
	if missingSecret {
		value, err := promptRequired(reader, "OAuth client_secret: ")
		if err != nil {
			return err
		}
		app.settings.ClientSecret = value
	}

	redirect, err := promptLine(reader, fmt.Sprintf("OAuth redirect_uri [%s]: ", app.settings.RedirectURI))
	if err != nil {
		return err
	}
	if redirect != "" {
		app.settings.RedirectURI = redirect
	}

	if err := config.SaveSettings(app.paths, app.profile, app.settings); err != nil {
		return err
	}
	fmt.Printf("Saved profile settings to %s.\n", settingsPath)
	return nil
}

func promptRequired(reader *bufio.Reader, prompt string) (string, error) {
	for {
		value, err := promptLine(reader, prompt)
		if err != nil {
			return "", err
		}
		if value != "" {
			return value, nil
		}
		fmt.Fprintln(os.Stderr, "value is required")
	}
}

func promptLine(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func stdinIsTerminal() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
