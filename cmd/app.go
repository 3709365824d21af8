package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tkoenig/gmailcli/internal/auth"
	"github.com/tkoenig/gmailcli/internal/config"
	"github.com/tkoenig/gmailcli/internal/gmail"
	"github.com/tkoenig/gmailcli/internal/output"
)

// app bundles the per-invocation collaborators: resolved profile, settings,
// token store, and the output printer.
type app struct {
	profile  string
	paths    *config.Paths
	settings *config.Settings
	store    auth.Store
	printer  *output.Printer
}

func newApp(cmd *cobra.Command) (*app, error) {
	paths, err := config.DiscoverPaths()
	if err != nil {
		return nil, err
	}

	profile := config.ResolveProfile(flagProfile)
	settings, err := config.LoadSettings(paths, profile)
	if err != nil {
		return nil, err
	}

	store, err := auth.NewStore(paths, settings)
	if err != nil {
		return nil, err
	}

	return &app{
		profile:  profile,
		paths:    paths,
		settings: settings,
		store:    store,
		printer:  output.New(cmd.OutOrStdout(), flagJSON),
	}, nil
}

// gmailClient builds an authenticated API client for the resolved profile.
func (a *app) gmailClient(ctx context.Context) (*gmail.Client, error) {
	source := auth.NewSource(a.profile, a.store, a.settings, auth.GoogleEndpoints())
	return gmail.NewClient(ctx, source)
}
