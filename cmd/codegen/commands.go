package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AkibDa/Code-Genesis/pkg/config"
	"github.com/AkibDa/Code-Genesis/pkg/logx"
	"github.com/AkibDa/Code-Genesis/pkg/version"
	"github.com/AkibDa/Code-Genesis/pkg/workflow"
)

// Exit codes.
const (
	exitFailed         = 1
	exitRecursionLimit = 2
	exitCanceled       = 130
)

// globalOptions are the persistent flags shared by every sub-command.
type globalOptions struct {
	configPath string
	logFile    string
	debug      bool

	cfg     *config.Config
	closeFn func()
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "codegen",
		Short:         "Generate a small project from a one-line request",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return opts.load()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if opts.closeFn != nil {
				opts.closeFn()
			}
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file (default ./codegen.yaml when present)")
	root.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "write logs to this file instead of stderr")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newRunCmd(opts),
		newResumeCmd(opts),
		newCheckCmd(opts),
		newRunsCmd(opts),
		newStatsCmd(opts),
	)
	return root
}

// load reads the configuration and sets up logging.
func (o *globalOptions) load() error {
	if o.logFile != "" {
		f, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logx.SetWriter(f)
		o.closeFn = func() {
			logx.SetWriter(os.Stderr)
			_ = f.Close()
		}
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err //nolint:wrapcheck // config errors are already descriptive
	}
	if o.debug {
		cfg.Debug.Enabled = true
	}
	if cfg.Debug.Enabled {
		logx.SetDebugConfig(true, cfg.Debug.Domains)
	}
	o.cfg = cfg
	return nil
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, workflow.ErrRecursionLimit):
		return exitRecursionLimit
	case errors.Is(err, context.Canceled):
		return exitCanceled
	default:
		return exitFailed
	}
}
