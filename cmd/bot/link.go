package main

import (
	"context"
	"fmt"
	"os"

	"meet_link_bot/internal/infra/config"
	"meet_link_bot/internal/infra/logger"

	"github.com/spf13/cobra"
)

func newLinkCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Produce one Meet link with the configured producer and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithoutToken()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger.Init(cfg)

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.LinkTimeout)
			defer cancel()

			producer, err := newProducer(ctx, cfg)
			if err != nil {
				return err
			}
			link, err := producer.ProduceLink(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)

			if out != "" {
				if err := os.WriteFile(out, []byte(link), 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", out, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "last_meet_link.txt", "file to store the link in, empty to skip")
	return cmd
}
