package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sakif/notebook/internal/config"
	"github.com/sakif/notebook/internal/repository/sqlite"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	envFile string
	dbPath  string
	verbose bool
}

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	keyColor  = color.New(color.FgCyan)
)

// NewRootCmd builds the command tree. Tests build a fresh tree per case.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "notesctl",
		Short: "notesctl - maintenance tool for the notebook database",
		Long: `notesctl works directly on the SQLite file the server uses.

Settings are read like the server reads them: environment variables,
optionally seeded from a .env file. --db overrides DB_PATH.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "optional .env file to load")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "database path (overrides DB_PATH)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newMigrateCmd(opts),
		newReindexCmd(opts),
		newSummaryCmd(opts),
	)
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openDB resolves the database path and opens it. Opening runs any pending
// migrations.
func openDB(opts *options) (*sqlite.DB, error) {
	path := opts.dbPath
	if path == "" {
		cfg, err := config.Load(opts.envFile)
		if err != nil {
			return nil, err
		}
		path = cfg.DBPath
	}

	db, err := sqlite.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return db, nil
}

func newLogger(cmd *cobra.Command, opts *options) *slog.Logger {
	if !opts.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}
