package main

import (
	"github.com/spf13/cobra"
)

var threadTS string

var extendCmd = &cobra.Command{
	Use:   "extend",
	Short: "Add generated replies to an existing thread",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.conversations.ExtendThread(ctx, channelID, threadTS, memberID)
		if err != nil {
			return err
		}
		return printSummary(summary)
	},
}

func init() {
	addTargetFlags(extendCmd)
	extendCmd.Flags().StringVar(&threadTS, "thread", "", "Timestamp of the thread root")
	_ = extendCmd.MarkFlagRequired("thread")
}
