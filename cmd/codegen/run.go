package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/AkibDa/Code-Genesis/pkg/workflow"
)

type runOptions struct {
	clear          bool
	output         string
	metricsAddr    string
	metricsOut     string
	recursionLimit int
}

func (o *runOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.output, "output", "o", formatText, "report format: text, yaml or json")
	cmd.Flags().StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running, e.g. :9090")
	cmd.Flags().StringVar(&o.metricsOut, "metrics-out", "", "write metrics in Prometheus text format to this file after the run")
	cmd.Flags().IntVar(&o.recursionLimit, "recursion-limit", 0, "maximum transitions (default from config)")
}

func newRunCmd(g *globalOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Generate a project from a prompt",
		Long: `Generate a project from a prompt. The prompt is taken from the arguments,
or read from standard input when no arguments are given and input is piped.`,
		Example: `  codegen run "Build a colourful todo app in html, css and js"
  echo "Build a calculator" | codegen run --output yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(args, os.Stdin)
			if err != nil {
				return err
			}
			return runWorkflow(cmd.Context(), g, opts, cmd.OutOrStdout(), func(a *app, limit int) (string, workflow.WorkflowState, error) {
				runID := uuid.NewString()
				a.logger.Info("Run ID: %s", runID)
				state, err := a.engine.RunWithID(cmd.Context(), runID, prompt, limit)
				return runID, state, err
			})
		},
	}
	cmd.Flags().BoolVar(&opts.clear, "clear", false, "remove the project root before starting")
	opts.addFlags(cmd)
	return cmd
}

func newResumeCmd(g *globalOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "resume <run-id>",
		Short: "Continue a checkpointed run from its last transition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.cfg.Workflow.CheckpointDB == "" {
				return errors.New("resume needs workflow.checkpoint_db to be set")
			}
			runID := args[0]
			return runWorkflow(cmd.Context(), g, opts, cmd.OutOrStdout(), func(a *app, limit int) (string, workflow.WorkflowState, error) {
				state, err := a.engine.Resume(cmd.Context(), runID, limit)
				return runID, state, err
			})
		},
	}
	opts.addFlags(cmd)
	return cmd
}

type driveFunc func(a *app, recursionLimit int) (runID string, state workflow.WorkflowState, err error)

// runWorkflow wires the engine, drives it and prints the report. The report is
// printed on failure too, with the error included.
func runWorkflow(ctx context.Context, g *globalOptions, opts *runOptions, out io.Writer, drive driveFunc) error {
	if err := validateFormat(opts.output); err != nil {
		return err
	}
	limit := opts.recursionLimit
	if limit <= 0 {
		limit = g.cfg.Workflow.RecursionLimit
	}

	a, err := newApp(g.cfg, opts.clear)
	if err != nil {
		return err
	}
	defer a.close()

	stopMetrics, err := a.serveMetrics(ctx, opts.metricsAddr)
	if err != nil {
		return err
	}
	defer stopMetrics()

	runID, state, runErr := drive(a, limit)
	a.dumpMetrics(opts.metricsOut)

	report := newReport(runID, a.workspace.Root(), &state, a.files(), runErr)
	if err := writeReport(out, opts.output, report); err != nil {
		return err
	}
	return runErr
}

// readPrompt joins args, or reads stdin when there are none and it is not a terminal.
func readPrompt(args []string, stdin *os.File) (string, error) {
	if len(args) > 0 {
		prompt := strings.TrimSpace(strings.Join(args, " "))
		if prompt == "" {
			return "", workflow.ErrEmptyPrompt
		}
		return prompt, nil
	}
	if stdin == nil || term.IsTerminal(int(stdin.Fd())) {
		return "", errors.New("a prompt is required: pass it as an argument or pipe it on stdin")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt from stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", workflow.ErrEmptyPrompt
	}
	return prompt, nil
}
