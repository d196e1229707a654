package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/converse-demo/converse/internal/conversation"
	"github.com/converse-demo/converse/internal/models"
)

var (
	channelID    string
	memberID     string
	paramsFile   string
	definitionID uint
	raw          models.RawParameters
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a conversation in a channel",
	Long: `Generate posts and threaded replies in a channel as its members.

Parameters come from flags, or from a JSON file with --params. A stored
definition can be run with --definition instead.

Examples:
  converse generate -c C0123 -u U0456 --participants 3-5 --posts 4 --replies 1-3 --tone casual --emoji few
  converse generate -c C0123 -u U0456 --params launch.json
  converse generate -c C0123 -u U0456 --definition 12`,
	RunE: runGenerate,
}

func init() {
	addTargetFlags(generateCmd)
	generateCmd.Flags().StringVar(&paramsFile, "params", "", "JSON file with generation parameters")
	generateCmd.Flags().UintVar(&definitionID, "definition", 0, "Run a stored conversation definition")

	f := generateCmd.Flags()
	f.StringVar(&raw.Participants, "participants", "", "Participant count or range, e.g. 3-5")
	f.StringVar(&raw.Posts, "posts", "", "Post count or range")
	f.StringVar(&raw.Replies, "replies", "", "Replies per post, count or range")
	f.StringVar(&raw.PostLength, "length", "", "Post length (short, medium, long)")
	f.StringVar(&raw.Tone, "tone", "", "Tone (formal, casual, professional, technical, executive, legal)")
	f.StringVar(&raw.EmojiDensity, "emoji", "", "Emoji density (few, average, many)")
	f.StringVar(&raw.Industry, "industry", "", "Industry of the simulated company")
	f.StringVar(&raw.CompanyName, "company", "", "Name of the simulated company")
	f.StringArrayVar(&raw.Topics, "topic", nil, "Conversation topic (repeatable)")
	f.StringVar(&raw.CustomPrompt, "prompt", "", "Additional instructions for the generator")
	f.StringVar(&raw.ChannelPurpose, "purpose", "", "Set the channel purpose")
	f.StringVar(&raw.ChannelTopic, "channel-topic", "", "Set the channel topic")
	f.BoolVar(&raw.Canvas, "canvas", false, "Also generate the channel canvas")
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&channelID, "channel", "c", "", "Target channel id")
	cmd.Flags().StringVarP(&memberID, "user", "u", "", "Member id of the initiating user")
	_ = cmd.MarkFlagRequired("channel")
	_ = cmd.MarkFlagRequired("user")
}

// signalContext is cancelled on the first interrupt so a run stops between
// messages instead of being killed mid-post
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	params := raw
	if paramsFile != "" {
		data, err := os.ReadFile(paramsFile)
		if err != nil {
			return fmt.Errorf("failed to read parameters: %w", err)
		}
		if err := json.Unmarshal(data, &params); err != nil {
			return fmt.Errorf("failed to parse parameters: %w", err)
		}
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var summary *models.GenerationSummary
	if definitionID != 0 {
		summary, err = a.conversations.RunDefinition(ctx, definitionID, channelID, memberID, printProgress)
	} else {
		summary, err = a.conversations.RunGeneration(ctx, params, channelID, memberID, printProgress)
	}
	if err != nil {
		return err
	}
	return printSummary(summary)
}

func printProgress(p conversation.Progress) {
	if jsonOutput {
		return
	}
	fmt.Fprintln(os.Stderr, mutedStyle.Render(p.String()))
}

func printSummary(summary *models.GenerationSummary) error {
	if jsonOutput {
		return printJSON(summary)
	}

	fmt.Println(boldStyle.Render(fmt.Sprintf("Conversation generated in <#%s>", summary.ChannelID)))
	fmt.Printf("  Posts:        %d of %d\n", summary.PostsSent, summary.PostsPlanned)
	fmt.Printf("  Replies:      %d\n", summary.RepliesSent)
	fmt.Printf("  Participants: %d\n", summary.Participants)
	fmt.Printf("  Duration:     %s\n", summary.FormattedDuration())
	if summary.CanvasStatus != "" {
		fmt.Printf("  Canvas:       %s\n", summary.CanvasStatus)
	}

	for _, item := range summary.Items {
		label := fmt.Sprintf("%s %d", item.Kind, item.PostIndex+1)
		if item.Kind == models.ItemReply {
			label = fmt.Sprintf("%s.%d", label, item.ReplyIndex+1)
		}
		switch item.Status {
		case models.ItemPosted:
			line := fmt.Sprintf("  ✓ %-10s %s", label, item.AuthorToken)
			if len(item.FailedReactions) > 0 {
				fmt.Println(warnStyle.Render(fmt.Sprintf("%s (reactions failed: %v)", line, item.FailedReactions)))
				continue
			}
			fmt.Println(passStyle.Render(line))
		default:
			fmt.Println(failStyle.Render(fmt.Sprintf("  ✗ %-10s %s: %s", label, item.Status, item.Error)))
		}
	}
	return nil
}
