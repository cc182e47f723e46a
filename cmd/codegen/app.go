package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AkibDa/Code-Genesis/pkg/agent"
	llmmetrics "github.com/AkibDa/Code-Genesis/pkg/agent/middleware/metrics"
	"github.com/AkibDa/Code-Genesis/pkg/config"
	"github.com/AkibDa/Code-Genesis/pkg/eventlog"
	"github.com/AkibDa/Code-Genesis/pkg/logx"
	"github.com/AkibDa/Code-Genesis/pkg/metrics"
	"github.com/AkibDa/Code-Genesis/pkg/persistence"
	"github.com/AkibDa/Code-Genesis/pkg/tools"
	"github.com/AkibDa/Code-Genesis/pkg/workflow"
)

// app is everything one command needs to drive the engine.
type app struct {
	cfg       *config.Config
	engine    *workflow.Engine
	workspace *tools.Workspace
	registry  *prometheus.Registry
	store     *persistence.Store
	events    *eventlog.Writer
	logger    *logx.Logger
}

// newApp wires the engine from configuration. clearBeforeRun overrides the config when set.
func newApp(cfg *config.Config, clearBeforeRun bool) (*app, error) {
	logger := logx.NewLogger("codegen")

	reviewMatch, err := workflow.ParseReviewMatch(cfg.Workflow.ReviewMatch)
	if err != nil {
		return nil, err //nolint:wrapcheck // names the bad value
	}

	registry := metrics.NewRegistry()
	factory := agent.NewClientFactory(cfg, llmmetrics.NewPrometheusRecorder(registry), logger.WithAgentID("factory"))

	workspace, err := tools.NewWorkspace(cfg.Workflow.ProjectRoot, cfg.Tools.MaxReadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to open project root: %w", err)
	}
	toolset := tools.NewToolset(workspace, nil, cfg.Tools.CommandTimeout)

	planner, err := structuredModel(factory, cfg, config.AgentPlanner)
	if err != nil {
		return nil, err
	}
	architect, err := structuredModel(factory, cfg, config.AgentArchitect)
	if err != nil {
		return nil, err
	}
	// The debugger's fix plan shares the architect's schema and model.
	model := agent.NewSchemaRouter(architect, map[string]workflow.Model{
		workflow.PlanSchema.Name:     planner,
		workflow.TaskPlanSchema.Name: architect,
	})

	coder, err := toolAgent(factory, toolset, cfg, config.AgentCoder)
	if err != nil {
		return nil, err
	}
	debugger, err := toolAgent(factory, toolset, cfg, config.AgentDebugger)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		workspace: workspace,
		registry:  registry,
		logger:    logger,
	}

	deps := workflow.Deps{
		Model:         model,
		CoderAgent:    coder,
		DebuggerAgent: debugger,
		Files:         workspace,
		Logger:        logx.NewLogger("engine"),
	}
	recorders := []workflow.Recorder{metrics.NewWorkflowRecorder(registry)}
	if cfg.Workflow.EventsDir != "" {
		events, err := eventlog.NewWriter(cfg.Workflow.EventsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open event log: %w", err)
		}
		a.events = events
		recorders = append(recorders, events)
	}
	deps.Recorder = workflow.Recorders(recorders...)

	if cfg.Workflow.CheckpointDB != "" {
		store, err := persistence.Open(cfg.Workflow.CheckpointDB)
		if err != nil {
			a.close()
			return nil, err //nolint:wrapcheck // already wrapped by persistence
		}
		a.store = store
		deps.Checkpoints = store
	}

	opts := workflow.DefaultOptions()
	opts.Retry = cfg.Retry
	opts.ReviewMatch = reviewMatch
	opts.ClearBeforeRun = cfg.Workflow.ClearBeforeRun || clearBeforeRun

	engine, err := workflow.NewEngine(deps, opts)
	if err != nil {
		a.close()
		return nil, err //nolint:wrapcheck // names the missing dependency
	}
	a.engine = engine
	return a, nil
}

func structuredModel(factory *agent.ClientFactory, cfg *config.Config, name string) (*agent.StructuredModel, error) {
	client, err := factory.CreateClient(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", name, err)
	}
	ac := cfg.Agent(name)
	return agent.NewStructuredModel(client, ac.MaxTokens, ac.Temperature, logx.NewLogger(name)), nil
}

func toolAgent(factory *agent.ClientFactory, toolset *tools.Toolset, cfg *config.Config, name string) (*agent.ToolAgent, error) {
	client, err := factory.CreateClient(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", name, err)
	}
	ac := cfg.Agent(name)
	return agent.NewToolAgent(client, toolset, agent.ToolAgentConfig{
		MaxIterations: ac.MaxIterations,
		MaxTokens:     ac.MaxTokens,
		Temperature:   ac.Temperature,
		DebugLogging:  logx.IsDebugEnabledForDomain(name),
	}, logx.NewLogger(name)), nil
}

// serveMetrics starts the /metrics endpoint when addr is set. The returned stop
// function waits for the server to shut down.
func (a *app) serveMetrics(ctx context.Context, addr string) (func(), error) {
	if addr == "" {
		return func() {}, nil
	}
	srv, err := metrics.Listen(addr, a.registry, a.logger.WithAgentID("metrics"))
	if err != nil {
		return nil, err //nolint:wrapcheck // names the address
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ctx); err != nil {
			a.logger.Warn("Metrics server stopped: %v", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}, nil
}

// dumpMetrics writes the registry to path when set.
func (a *app) dumpMetrics(path string) {
	if path == "" {
		return
	}
	if err := metrics.WriteTextFile(path, a.registry); err != nil {
		a.logger.Warn("Failed to write metrics: %v", err)
		return
	}
	a.logger.Info("Metrics written to %s", path)
}

// files lists the project root; a missing root lists nothing.
func (a *app) files() []string {
	files, err := a.workspace.List(".")
	if err != nil {
		if !errors.Is(err, tools.ErrNotFound) {
			a.logger.Warn("Failed to list project files: %v", err)
		}
		return nil
	}
	return files
}

func (a *app) close() {
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.logger.Warn("%v", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("%v", err)
		}
	}
}

// commandTimeout bounds commands that do not run the workflow.
const commandTimeout = 2 * time.Minute
