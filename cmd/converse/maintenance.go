package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/converse-demo/converse/internal/history"
	"github.com/converse-demo/converse/internal/store"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete history left open by interrupted runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		deleted, err := history.NewSweeper(store.NewHistoryRepository(a.repo), a.cfg.HistoryStaleAfter).Sweep(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]int64{"deleted": deleted})
		}
		fmt.Println(passStyle.Render(fmt.Sprintf("Deleted %d stale history records", deleted)))
		return nil
	},
}

var transcriptsCmd = &cobra.Command{
	Use:   "transcripts",
	Short: "Browse archived run transcripts",
}

var transcriptsListCmd = &cobra.Command{
	Use:   "list <channel>",
	Short: "List archived transcripts of a channel, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if a.archive == nil {
			return fmt.Errorf("transcript archive is not configured: set AZURE_STORAGE_ACCOUNT")
		}

		names, err := a.archive.List(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(names)
		}
		if len(names) == 0 {
			fmt.Println(mutedStyle.Render("No transcripts"))
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var transcriptsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one archived transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if a.archive == nil {
			return fmt.Errorf("transcript archive is not configured: set AZURE_STORAGE_ACCOUNT")
		}

		transcript, err := a.archive.Load(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput || transcript.Summary == nil {
			return printJSON(transcript)
		}
		fmt.Println(mutedStyle.Render("Archived " + transcript.ArchivedAt.Format("2006-01-02 15:04 UTC")))
		return printSummary(transcript.Summary)
	},
}

var pruneOlderThan time.Duration

var transcriptsPruneCmd = &cobra.Command{
	Use:   "prune [channel]",
	Short: "Delete archived transcripts older than a retention period",
	Long: `Delete archived transcripts older than a retention period.

Without a channel every channel is pruned.

Examples:
  converse transcripts prune C0123 --older-than 720h
  converse transcripts prune --older-than 2160h`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if a.archive == nil {
			return fmt.Errorf("transcript archive is not configured: set AZURE_STORAGE_ACCOUNT")
		}

		channel := ""
		if len(args) == 1 {
			channel = args[0]
		}
		deleted, err := a.archive.Prune(ctx, channel, time.Now().Add(-pruneOlderThan))
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]int{"deleted": deleted})
		}
		fmt.Println(passStyle.Render(fmt.Sprintf("Deleted %d transcripts", deleted)))
		return nil
	},
}

func init() {
	transcriptsPruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 30*24*time.Hour, "Retention period")

	transcriptsCmd.AddCommand(transcriptsListCmd)
	transcriptsCmd.AddCommand(transcriptsShowCmd)
	transcriptsCmd.AddCommand(transcriptsPruneCmd)
}
