package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AkibDa/Code-Genesis/pkg/metrics"
)

func newStatsCmd(_ *globalOptions) *cobra.Command {
	var prometheusURL string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show run and token totals from a Prometheus server that scrapes codegen",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := metrics.NewQueryService(prometheusURL)
			if err != nil {
				return err //nolint:wrapcheck // already wrapped by metrics
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			stats, err := q.GetStats(ctx)
			if err != nil {
				return err //nolint:wrapcheck // already wrapped by metrics
			}
			return writeStats(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().StringVar(&prometheusURL, "prometheus-url", "http://localhost:9090", "Prometheus server URL")
	return cmd
}

func writeStats(w io.Writer, stats *metrics.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	results := make([]string, 0, len(stats.Runs))
	for result := range stats.Runs {
		results = append(results, result)
	}
	sort.Strings(results)

	fmt.Fprintln(tw, "RESULT\tRUNS")
	for _, result := range results {
		fmt.Fprintf(tw, "%s\t%d\n", result, stats.Runs[result])
	}

	fmt.Fprintln(tw, "\nAGENT\tPROMPT\tCOMPLETION\tTOTAL")
	for _, t := range stats.Tokens {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", t.AgentID, t.PromptTokens, t.CompletionTokens, t.TotalTokens)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write stats: %w", err)
	}
	return nil
}
