package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/service"
)

func newSummaryCmd(opts *options) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the share analytics summary of one user",
		Example: `  notesctl summary --owner cq3v1m2k8s0a6u1nqg5g
  notesctl summary --owner cq3v1m2k8s0a6u1nqg5g --db data/notebook.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if owner == "" {
				return errors.New("--owner is required")
			}
			db, err := openDB(opts)
			if err != nil {
				return err
			}
			defer db.Close()

			// The CLI acts as the owner: it has the database file, so it
			// already has everything the ownership check protects.
			svc := service.NewAnalyticsService(db.Notes(), db.Analytics(), newLogger(cmd, opts))
			summary, err := svc.UserSummary(cmd.Context(), owner, owner)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "user ID whose shared notes to summarise")
	return cmd
}

func printSummary(w io.Writer, s *model.AnalyticsSummary) {
	keyColor.Fprint(w, "Total views:        ")
	fmt.Fprintln(w, s.TotalViews)
	keyColor.Fprint(w, "Shared notes:       ")
	fmt.Fprintln(w, s.TotalSharedNotes)
	keyColor.Fprint(w, "Most viewed:        ")
	if s.MostViewedNoteID == "" {
		warnColor.Fprintln(w, "none yet")
	} else {
		fmt.Fprintf(w, "%s (%d views)\n", s.MostViewedNoteID, s.MostViewedCount)
	}

	if len(s.RecentViews) == 0 {
		return
	}
	fmt.Fprintln(w)
	keyColor.Fprintln(w, "Recently viewed:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NOTE\tVIEWS\tLAST VIEWED")
	for _, r := range s.RecentViews {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", r.NoteID, r.ViewCount, r.LastViewedAt.UTC().Format(time.RFC3339))
	}
	tw.Flush()
}
