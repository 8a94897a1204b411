package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history [user-id] [channel]",
		Short: "Print the stored messages of a conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}

			ctx, cancel := opts.context(cmd.Context())
			defer cancel()

			messages := client.FetchHistory(ctx, args[0], args[1])

			out, err := json.MarshalIndent(messages, "", "  ")
			if err != nil {
				return fmt.Errorf("encode history: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
