package cmd

import (
	"context"

	"github.com/knoguchi/freightquote/internal/server"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <document-id>",
	Short: "Fetch one quote by document id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc server.QuoteService) (any, error) {
			return svc.Get(ctx, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
