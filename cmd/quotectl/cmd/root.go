// Package cmd contains the quotectl commands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/knoguchi/freightquote/internal/app"
	"github.com/knoguchi/freightquote/internal/config"
	"github.com/knoguchi/freightquote/internal/server"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	timeout time.Duration
	logger  *slog.Logger

	// newService is replaced in tests.
	newService = buildService
)

var rootCmd = &cobra.Command{
	Use:   "quotectl",
	Short: "Query freight quotes from the document store",
	Long: `quotectl runs the quote retrieval pipeline directly against the
configured document store, using the same environment as the server.

Example usage:
  quotectl search "quotes from China"     # Search quotes
  quotectl search --limit 5 reefer        # Limit results
  quotectl get 7f3c2a9e                   # Fetch one quote by document id`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
}

func buildService(ctx context.Context) (server.QuoteService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	p, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return p.Service, p.Close, nil
}

func withService(cmd *cobra.Command, fn func(ctx context.Context, svc server.QuoteService) (any, error)) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	svc, closeFn, err := newService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	v, err := fn(ctx, svc)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), v)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
