package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/converse-demo/converse/internal/conversation"
)

var canvasCmd = &cobra.Command{
	Use:   "canvas",
	Short: "Generate or replace the canvas of a channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		status, err := a.conversations.GenerateCanvas(ctx, channelID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]string{"channel_id": channelID, "status": status})
		}
		fmt.Println(passStyle.Render(fmt.Sprintf("Canvas %s in <#%s>", status, channelID)))
		return nil
	},
}

var (
	customerName  string
	useCase       string
	createChannel bool
)

var designCmd = &cobra.Command{
	Use:   "design-channels",
	Short: "Suggest a set of channels for a customer use case",
	Long: `Suggest a set of channels for a customer use case and optionally create them.

Examples:
  converse design-channels --customer Contoso --use-case "store rollout"
  converse design-channels --customer Contoso --use-case "store rollout" --create`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		channels, err := a.conversations.DesignChannels(ctx, customerName, useCase, createChannel)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(channels)
		}
		printChannels(channels)
		return nil
	},
}

func printChannels(channels []conversation.DesignedChannel) {
	for _, ch := range channels {
		visibility := "public"
		if ch.Spec.Private() {
			visibility = "private"
		}
		name := conversation.ChannelName(ch.Spec.Name)

		switch {
		case ch.Error != "":
			fmt.Println(failStyle.Render(fmt.Sprintf("✗ #%s: %s", name, ch.Error)))
		case ch.Channel != nil:
			fmt.Println(passStyle.Render(fmt.Sprintf("✓ #%s created (%s, %s)", name, ch.Channel.ID, visibility)))
		default:
			fmt.Println(boldStyle.Render(fmt.Sprintf("#%s", name)) + mutedStyle.Render(" ("+visibility+")"))
		}
		if ch.Spec.Description != "" {
			fmt.Println("  " + ch.Spec.Description)
		}
	}
}

var (
	suggestName        string
	suggestTopic       string
	suggestDescription string
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest generation parameters for a channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		params, err := a.conversations.GenerateChannelDesign(ctx, suggestName, suggestTopic, suggestDescription)
		if err != nil {
			return err
		}
		return printJSON(params)
	},
}

func init() {
	canvasCmd.Flags().StringVarP(&channelID, "channel", "c", "", "Target channel id")
	_ = canvasCmd.MarkFlagRequired("channel")

	designCmd.Flags().StringVar(&customerName, "customer", "", "Customer name")
	designCmd.Flags().StringVar(&useCase, "use-case", "", "Customer use case")
	designCmd.Flags().BoolVar(&createChannel, "create", false, "Create the suggested channels")

	suggestCmd.Flags().StringVar(&suggestName, "name", "", "Channel name")
	suggestCmd.Flags().StringVar(&suggestTopic, "topic", "", "Channel topic")
	suggestCmd.Flags().StringVar(&suggestDescription, "description", "", "Channel description")
	_ = suggestCmd.MarkFlagRequired("name")
}
