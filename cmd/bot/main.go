package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "meet-link-bot",
		Short: "Telegram bot that posts Google Meet links on a weekly schedule",
		Long: `meet-link-bot posts Google Meet links into Telegram chats on a weekly
schedule, answers instant link requests and delivers reminders.

Configuration is read from the environment and an optional .env file.`,
		Version:      version,
		SilenceUsage: true,
	}
	runCmd := newRunCmd()
	// A bare invocation starts the bot.
	root.RunE = runCmd.RunE
	root.Args = cobra.NoArgs
	root.AddCommand(runCmd)
	root.AddCommand(newLinkCmd())
	root.AddCommand(newAuthCmd())
	return root
}
