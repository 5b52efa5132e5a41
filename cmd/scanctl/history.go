package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"resumematch/scanner-web/internal/services"
)

func historyCmd(c *cli) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved scans, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireAuth(cmd); err != nil {
				return err
			}

			entries, err := c.tab.History.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if c.wantJSON() {
				return c.printJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved scans yet.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSAVED\tSCORE\tMATCHED\tMISSING\tRESUME")
			for _, e := range entries {
				saved := e.CreatedAtRaw
				if !e.CreatedAt.IsZero() {
					saved = e.CreatedAt.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%s\t%s\t%.0f%%\t%d\t%d\t%s\n",
					e.ID, saved, e.Score*100, e.Matched, e.Missing, e.ResumePreview)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", services.DefaultHistoryLimit, "how many scans to list (max 100)")
	return cmd
}

func loadCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "load <id>",
		Short: "Load a saved scan as the draft for the next `scanctl scan`",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireAuth(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()

			entry, err := c.tab.History.Find(ctx, args[0])
			if err != nil {
				return err
			}

			prefill := services.LoadInScanner(*entry)
			if err := c.putState(ctx, draftKey, prefill); err != nil {
				return err
			}

			if c.wantJSON() {
				return c.printJSON(cmd.OutOrStdout(), prefill)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Loaded %s. Run `scanctl scan` to score it again.\n\n", entry.ID)
			fmt.Fprintf(out, "Resume:\n%s\n\nJob description:\n%s\n", prefill.ResumeText, prefill.JDText)
			return nil
		},
	}
}
