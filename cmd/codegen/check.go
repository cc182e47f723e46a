package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/AkibDa/Code-Genesis/pkg/agent"
	"github.com/AkibDa/Code-Genesis/pkg/logx"
)

func newCheckCmd(g *globalOptions) *cobra.Command {
	var models []string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Ping every configured model and report which respond",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(models) == 0 {
				models = g.cfg.ConfiguredModels()
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			factory := agent.NewClientFactory(g.cfg, nil, logx.NewLogger("check"))
			results := factory.CheckModels(ctx, models)
			return writeHealth(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().StringSliceVar(&models, "model", nil, "model to check (repeatable; default every configured model)")
	return cmd
}

// writeHealth prints one line per model and fails when any model is down.
func writeHealth(w io.Writer, results []agent.HealthResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tPROVIDER\tSTATUS\tLATENCY")

	failed := 0
	for _, r := range results {
		status := "OK"
		if !r.OK {
			failed++
			status = fmt.Sprintf("ERROR: %v", r.Err)
		}
		provider := r.Provider
		if provider == "" {
			provider = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Model, provider, status, r.Latency.Round(time.Millisecond))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d models failed", failed, len(results))
	}
	return nil
}
