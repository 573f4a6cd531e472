package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/libris/internal/trash"
)

func newTrashCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trash",
		Short: "Inspect and reclaim trashed versions",
	}

	cmd.PersistentFlags().String("retention", "", "override the retention window (e.g. 15d, 36h)")
	cmd.PersistentFlags().Duration("timeout", 0, "bound the command (defaults to catalog.trash.run_timeout)")

	cmd.AddCommand(newReclaimCommand())
	cmd.AddCommand(newCandidatesCommand())
	return cmd
}

func newReclaimCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reclaim",
		Short: "Permanently delete versions trashed longer than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorker(cmd, func(w trash.System, cmd *cobra.Command) error {
				report, err := w.Run(cmd.Context())
				if err != nil {
					return fmt.Errorf("reclaim: %w", err)
				}
				return printReport(cmd, report)
			})
		},
	}
}

func newCandidatesCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "List versions the next reclamation run would delete",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorker(cmd, func(w trash.System, cmd *cobra.Command) error {
				cs, err := w.Candidates(cmd.Context(), limit)
				if err != nil {
					return fmt.Errorf("list candidates: %w", err)
				}
				return printCandidates(cmd, cs)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "maximum candidates to list")
	return cmd
}

func withWorker(cmd *cobra.Command, fn func(trash.System, *cobra.Command) error) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	retention, _ := cmd.Flags().GetString("retention")
	w, err := e.worker(retention)
	if err != nil {
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := e.context(cmd.Context(), timeout)
	defer cancel()
	cmd.SetContext(ctx)

	return fn(w, cmd)
}

func printReport(cmd *cobra.Command, r trash.Report) error {
	if asJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), r)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "cutoff:     %s\n", r.Cutoff.Format(time.RFC3339))
	fmt.Fprintf(out, "candidates: %d\n", r.Candidates)
	fmt.Fprintf(out, "reclaimed:  %d %v\n", len(r.Reclaimed), r.Reclaimed)
	fmt.Fprintf(out, "failed:     %d %v\n", len(r.Failed), r.Failed)
	fmt.Fprintf(out, "duration:   %s\n", r.Duration.Round(time.Millisecond))
	return nil
}

func printCandidates(cmd *cobra.Command, cs []trash.Candidate) error {
	if asJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), cs)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBOOK\tTRASHED AT\tFILE")
	for _, c := range cs {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", c.ID, c.BookID, c.TrashedAt.Format(time.RFC3339), c.File)
	}
	return tw.Flush()
}

func asJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
