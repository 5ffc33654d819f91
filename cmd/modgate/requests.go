package main

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/artpar/modgate/adapters/sqlite"
	"github.com/spf13/cobra"
)

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Show the local request log",
	Long: `Show recent module executions recorded by the local request log
(request_log.mode: local) and a summary over the chosen period.

Examples:
  modgate requests
  modgate requests --application=3 --limit=50
  modgate requests --since=24h`,
	RunE: runRequests,
}

var (
	requestsApplicationID int64
	requestsLimit         int
	requestsSince         time.Duration
)

func init() {
	rootCmd.AddCommand(requestsCmd)

	requestsCmd.Flags().Int64Var(&requestsApplicationID, "application", 0, "filter by application ID")
	requestsCmd.Flags().IntVar(&requestsLimit, "limit", 20, "number of recent requests to show")
	requestsCmd.Flags().DurationVar(&requestsSince, "since", 30*24*time.Hour, "summary period")
}

func runRequests(cmd *cobra.Command, args []string) error {
	db, _, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	store := sqlite.NewRequestStore(db)
	out := cmd.OutOrStdout()

	end := time.Now().UTC()
	start := end.Add(-requestsSince)
	summary, err := store.Summary(ctx, requestsApplicationID, start, end)
	if err != nil {
		return fmt.Errorf("failed to summarize requests: %w", err)
	}

	fmt.Fprintf(out, "Period:   %s to %s\n", start.Format(time.RFC3339), end.Format(time.RFC3339))
	fmt.Fprintf(out, "Requests: %d (%d errors)\n", summary.RequestCount, summary.ErrorCount)
	fmt.Fprintf(out, "Bytes:    %d\n", summary.BytesOut)
	fmt.Fprintf(out, "Latency:  %dms avg\n", summary.AvgLatencyMs)

	if len(summary.ByPath) > 0 {
		paths := make([]string, 0, len(summary.ByPath))
		for p := range summary.ByPath {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		fmt.Fprintln(out)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PATH\tREQUESTS")
		for _, p := range paths {
			fmt.Fprintf(w, "%s\t%d\n", p, summary.ByPath[p])
		}
		w.Flush()
	}

	records, err := store.Recent(ctx, requestsApplicationID, requestsLimit)
	if err != nil {
		return fmt.Errorf("failed to list requests: %w", err)
	}

	fmt.Fprintln(out)
	if len(records) == 0 {
		fmt.Fprintln(out, "No requests recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tAPPLICATION\tKEY\tPATH\tCODE\tBYTES\tLATENCY")
	fmt.Fprintln(w, "----\t-----------\t---\t----\t----\t-----\t-------")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%d\t%d\t/%s/%s\t%d\t%d\t%dms\n",
			r.Timestamp.Format(time.RFC3339), r.ApplicationID, r.AccessRecordID,
			r.Version, r.Path, r.ResponseCode, r.ResponseLength, r.ResponseTimeMs())
	}
	return w.Flush()
}
