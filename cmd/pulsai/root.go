package main

import (
	"context"
	"time"

	"github.com/j0lvera/pulsai/internal/ai"
	"github.com/j0lvera/pulsai/internal/config"
	"github.com/spf13/cobra"
)

var version = "dev"

type rootOptions struct {
	apiURL  string
	timeout time.Duration
}

// newRootCmd builds the pulsai command tree.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "pulsai",
		Short: "Talk to a PulsAI backend from the terminal",
		Long: `pulsai sends chat turns to a PulsAI backend and reads conversation
history back. The backend address comes from PULSAI_API_URL unless
--api-url is given.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Disable completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "backend base URL (default from PULSAI_API_URL)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")

	rootCmd.AddCommand(
		newSendCmd(opts),
		newHistoryCmd(opts),
	)

	return rootCmd
}

func (o *rootOptions) client() (*ai.Client, error) {
	baseURL := o.apiURL
	if baseURL == "" {
		cfg, err := config.Config{}.LoadEnv()
		if err != nil {
			return nil, err
		}
		baseURL = cfg.APIURL
	}
	return ai.NewClient(baseURL)
}

func (o *rootOptions) context(parent context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, o.timeout)
}
