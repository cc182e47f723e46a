package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AkibDa/Code-Genesis/pkg/persistence"
)

func newRunsCmd(g *globalOptions) *cobra.Command {
	var (
		limit  int
		output string
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List checkpointed runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(output); err != nil {
				return err
			}
			if g.cfg.Workflow.CheckpointDB == "" {
				return errors.New("runs needs workflow.checkpoint_db to be set")
			}
			store, err := persistence.Open(g.cfg.Workflow.CheckpointDB)
			if err != nil {
				return err //nolint:wrapcheck // already wrapped by persistence
			}
			defer func() { _ = store.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			runs, err := store.ListRuns(ctx, limit)
			if err != nil {
				return err //nolint:wrapcheck // already wrapped by persistence
			}
			return writeRuns(cmd.OutOrStdout(), output, runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show (0 for all)")
	cmd.Flags().StringVarP(&output, "output", "o", formatText, "output format: text, yaml or json")
	return cmd
}

func writeRuns(w io.Writer, format string, runs []persistence.Run) error {
	if runs == nil {
		runs = []persistence.Run{}
	}
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(runs); err != nil {
			return fmt.Errorf("failed to encode runs: %w", err)
		}
		return nil
	case formatYAML:
		if err := yaml.NewEncoder(w).Encode(runs); err != nil {
			return fmt.Errorf("failed to encode runs: %w", err)
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTATE\tSTATUS\tSTEPS\tCREATED\tPROMPT")
	for i := range runs {
		r := &runs[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.RunID, r.State, statusOrDash(r.Status), r.Steps,
			r.CreatedAt.Local().Format(time.DateTime), truncate(r.UserPrompt, 60))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	return nil
}

func statusOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
