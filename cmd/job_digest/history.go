package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-digest/internal/config"
	"github.com/jonathan/job-digest/internal/db"
)

var (
	historyLimit int
	historyDSN   string
)

var historyCommand = &cobra.Command{
	Use:   "history",
	Short: "List recent runs from the run-history store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dsn := historyDSN
		if dsn == "" {
			dsn = os.Getenv(config.KeyHistoryDB)
		}
		if dsn == "" {
			return errors.New(config.KeyHistoryDB + " is not set (or pass --db)")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		store, err := db.Open(ctx, dsn)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		runs, err := store.RecentRuns(ctx, historyLimit)
		if err != nil {
			return err
		}
		return printRuns(cmd.OutOrStdout(), runs)
	},
}

func init() {
	historyCommand.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to show")
	historyCommand.Flags().StringVar(&historyDSN, "db", "", "History store (postgres:// URL or sqlite path); defaults to HISTORY_DB")
	rootCmd.AddCommand(historyCommand)
}

func printRuns(out io.Writer, runs []db.RunSummary) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, "No runs recorded.")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tDURATION\tKEYWORDS\tLOCATION\tJOBS\tCUSTOMIZED\tFAILED\tRUN")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
			r.Keywords, r.Location, r.JobsReported, r.Customized, r.Failed, r.ID)
	}
	return w.Flush()
}
