package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReindexCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the full-text search index",
		Long: `Drops every row of the search index and rebuilds it from the notes table.
Locked notes are indexed without their body, as the server does.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(opts)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.Notes().Reindex(cmd.Context())
			if err != nil {
				return err
			}
			okColor.Fprint(cmd.OutOrStdout(), "✓ ")
			fmt.Fprintf(cmd.OutOrStdout(), "reindexed %d notes\n", n)
			return nil
		},
	}
}
