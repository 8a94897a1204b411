package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/j0lvera/pulsai/internal/ai"
	"github.com/spf13/cobra"
)

func newSendCmd(opts *rootOptions) *cobra.Command {
	var (
		stage    string
		metadata string
	)

	cmd := &cobra.Command{
		Use:   "send [user-id] [channel] [text...]",
		Short: "Send a message and print the JSON reply",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}

			req := ai.ChatRequest{
				UserID:  args[0],
				Channel: ai.Channel(args[1]),
				Text:    strings.Join(args[2:], " "),
				Stage:   ai.Stage(stage),
			}
			if metadata != "" {
				if err := json.Unmarshal([]byte(metadata), &req.Metadata); err != nil {
					return fmt.Errorf("parse --metadata: %w", err)
				}
			}

			ctx, cancel := opts.context(cmd.Context())
			defer cancel()

			resp, err := client.SendMessage(ctx, req)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), resp.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&stage, "stage", string(ai.DefaultStage), "conversation stage")
	cmd.Flags().StringVar(&metadata, "metadata", "", "JSON object sent as request metadata")

	return cmd
}
