package main

import (
	"fmt"

	"meet_link_bot/internal/infra/config"
	"meet_link_bot/internal/infra/meet"

	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize Google Calendar access and cache the token",
		Long: `auth runs the OAuth consent flow for the calendar link producer.
Open the printed URL in a browser on this machine; the token is cached
in GOOGLE_TOKEN_FILE and refreshed automatically afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithoutToken()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			oauthCfg, err := meet.LoadOAuthConfig(cfg.GoogleCredentialsFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			file := meet.TokenFile{Path: cfg.GoogleTokenFile}
			_, err = meet.Authorize(cmd.Context(), oauthCfg, file, func(url string) {
				fmt.Fprintf(out, "Open this URL to grant calendar access:\n\n%s\n\n", url)
			})
			if err != nil {
				return fmt.Errorf("authorization failed: %w", err)
			}
			fmt.Fprintf(out, "Token saved to %s\n", file.Path)
			return nil
		},
	}
}
