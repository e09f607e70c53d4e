package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var limit int
	var before int64

	cmd := &cobra.Command{
		Use:   "history <roomID>",
		Short: "Print message history for a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roomID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid room id %q", args[0])
			}
			client, _, err := apiClient()
			if err != nil {
				return err
			}

			var beforePtr *int64
			if before > 0 {
				beforePtr = &before
			}
			resp, err := client.GetMessages(cmd.Context(), roomID, limit, beforePtr)
			if err != nil {
				return err
			}
			for _, msg := range resp.Messages {
				ts := time.UnixMilli(msg.TS).Format("15:04:05")
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", ts, msg.Username, msg.Content)
			}
			if resp.HasMore && len(resp.Messages) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "(more available before id %d)\n", resp.Messages[0].ID)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum messages to fetch")
	cmd.Flags().Int64Var(&before, "before", 0, "fetch messages older than this message id")
	return cmd
}
