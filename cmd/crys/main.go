package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "crys",
		Short: "Crystalizer - distill AI chat transcripts into a clean hand-off document",
		Long: `Crystalizer captures chats from AI platforms as personas, merges and prunes
their exchanges, and exports a clean markdown transcript plus a short prompt
for continuing the conversation on another platform.

The workflow has four steps:
  1. personas   save, import and manage captured chats
  2. scrape     capture a chat and queue personas for merging
  3. prune      merge the queue and keep only the exchanges that matter
  4. export     write the transcript and copy the hand-off prompt`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/crys/config.toml)")

	rootCmd.AddCommand(personaCmd())
	rootCmd.AddCommand(queueCmd())
	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(mergeCmd())
	rootCmd.AddCommand(pruneCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(stepCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(reindexCmd())
	rootCmd.AddCommand(archiveCmd())
	rootCmd.AddCommand(platformCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(doctorCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
