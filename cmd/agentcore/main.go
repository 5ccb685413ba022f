// Command agentcore wires a configuration document to the execution
// engine and runs a single task to completion.
//
// Usage:
//
//	agentcore run --config agentcore.yaml --agent investigator --task "list the TODOs in this repo"
//
// Tool implementations, real LLM wire adapters, session persistence
// backends, and the A2A/HTTP server surface are deliberately out of
// scope for this engine (they are external collaborators); this binary
// demonstrates the wiring, not a production CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	agentcore "github.com/fenwick-labs/agentcore"
	"github.com/fenwick-labs/agentcore/config"
	"github.com/fenwick-labs/agentcore/contextwin"
	"github.com/fenwick-labs/agentcore/core"
	"github.com/fenwick-labs/agentcore/economics"
	"github.com/fenwick-labs/agentcore/llmprovider"
	"github.com/fenwick-labs/agentcore/planmode"
	"github.com/fenwick-labs/agentcore/substrate"
	"github.com/fenwick-labs/agentcore/toolexec"
	"github.com/fenwick-labs/agentcore/tracesink"
)

// CLI defines the command-line interface.
type CLI struct {
	Run      RunCmd      `cmd:"" help:"Run an agent against a task and print its result."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Config string `short:"c" help:"Path to config file." type:"path" default:"agentcore.yaml"`
}

// VersionCmd prints build version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(cli *CLI) error {
	fmt.Println(agentcore.GetVersion().String())
	return nil
}

// RunCmd loads a config, builds one agent, and runs it to completion.
type RunCmd struct {
	Agent string `help:"Agent name within the config to run." default:"default"`
	Task  string `help:"Task text to seed the agent with." required:""`
}

func (c *RunCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	if err := config.LoadEnvFiles(); err != nil {
		slog.Warn("failed to load .env files", "error", err)
	}

	cfg, err := config.LoadConfig(cli.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	initLogger(cfg.Global.Logging)

	agentCfg, ok := cfg.GetAgent(c.Agent)
	if !ok {
		return fmt.Errorf("agent %q not found in %s", c.Agent, cli.Config)
	}

	tp, err := tracesink.InitGlobalTracer(ctx, tracesink.TracerConfig{
		Enabled:      cfg.Global.Tracing.Enabled,
		ExporterType: cfg.Global.Tracing.ExporterType,
		EndpointURL:  cfg.Global.Tracing.EndpointURL,
		SamplingRate: cfg.Global.Tracing.SamplingRate,
		ServiceName:  cfg.Global.Tracing.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("failed to init tracer: %w", err)
	}
	defer func() {
		if shutdowner, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
			_ = shutdowner.Shutdown(context.Background())
		}
	}()

	trace := tracesink.NewMultiSink(tracesink.NewMemorySink())
	if cfg.Global.Tracing.Enabled {
		trace = tracesink.NewMultiSink(tracesink.NewSpanSink(tracesink.GetTracer("agentcore")))
	}

	agent, err := buildAgent(*agentCfg, trace)
	if err != nil {
		return fmt.Errorf("failed to build agent: %w", err)
	}
	agent.Seed(c.Task)

	result, err := agent.Run(ctx)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	fmt.Println(result.Response)
	slog.Info("run complete",
		"success", result.Success,
		"reason", result.Completion.Reason,
		"iterations", result.Metrics.Iterations,
		"tokens", result.Metrics.Tokens,
		"tool_calls", result.Metrics.ToolCalls,
	)
	return nil
}

// ValidateCmd loads and validates a configuration file without running
// anything, for use in CI.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, err := config.LoadConfig(cli.Config)
	if err != nil {
		return err
	}
	fmt.Printf("%s is valid: %d agent(s) defined\n", cli.Config, len(cfg.Agents))
	return nil
}

// buildAgent translates a config.AgentConfig into the engine's Config
// and constructs the root agent, wired to a fresh substrate.
//
// Real tool implementations and LLM wire adapters are out of scope for
// this engine; buildAgent wires an empty tool table and a scripted
// provider whose single final answer is "task received: " followed by
// the agent's system prompt, which is enough to exercise the loop,
// budget engine, and trace sink end to end.
func buildAgent(agentCfg config.AgentConfig, trace tracesink.Sink) (*core.Agent, error) {
	bb := substrate.NewBlackboard(256)
	fc := substrate.NewFileCache(5*time.Minute, 64<<20)
	pool := substrate.NewBudgetPool(agentCfg.Budget.MaxTokens, agentCfg.Subagent.FloorTokens)
	root := substrate.NewRoot(context.Background())

	policy := toolexec.NewPolicyEngine()
	var plan toolexec.PlanInterceptor
	if agentCfg.PlanMode.Enabled {
		plan = planmode.NewManager(func(call toolexec.Call) (any, error) {
			return nil, fmt.Errorf("plan-mode execution requires a concrete tool dispatcher")
		})
	}

	cfg := core.Config{
		AgentID:          agentCfg.Name,
		Provider:         &llmprovider.ScriptedProvider{Responses: []llmprovider.Response{{Content: "task received: " + agentCfg.SystemPrompt, StopReason: llmprovider.StopEndTurn}}},
		Tools:            toolexec.NewTable(),
		Model:            agentCfg.Model,
		MaxIterations:    agentCfg.MaxIterations,
		MaxContextTokens: agentCfg.MaxContextTokens,
		SystemPrompt:     contextwin.PromptSections{StaticPrefix: agentCfg.SystemPrompt},

		Limits: economics.Limits{
			MaxTokens:        agentCfg.Budget.MaxTokens,
			MaxCost:          agentCfg.Budget.MaxCost,
			MaxDuration:      agentCfg.Budget.MaxDuration,
			MaxIterations:    agentCfg.Budget.MaxIterations,
			TargetIterations: agentCfg.Budget.TargetIterations,
		},

		Blackboard: bb,
		FileCache:  fc,
		BudgetPool: pool,
		CancelRoot: root,

		Policy: policy,
		Plan:   plan,

		MaxEmptyRetries:  agentCfg.Resilience.MaxEmptyRetries,
		MaxContinuations: agentCfg.Resilience.MaxContinuations,

		Trace: trace,
	}

	return core.NewAgent(cfg, root), nil
}

func initLogger(cfg config.LoggingConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli, kong.Name("agentcore"), kong.Description("Coding-agent execution engine"))
	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
