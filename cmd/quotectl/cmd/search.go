package cmd

import (
	"context"
	"strings"

	"github.com/knoguchi/freightquote/internal/server"
	"github.com/knoguchi/freightquote/internal/service"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search quotes",
	Long: `Search quotes by free text. With no query, or a catch-all query such
as "all" or "recent", quotes are listed unfiltered.`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntP("limit", "n", 0, "maximum number of results (default: server default)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	req := service.SearchRequest{QueryText: strings.Join(args, " "), Limit: limit}

	return withService(cmd, func(ctx context.Context, svc server.QuoteService) (any, error) {
		return svc.Search(ctx, req)
	})
}
