// Package config provides configuration types and utilities for the
// execution engine. This file contains the agent-level recognised-options
// record and the logging config shared with the rest of the ambient
// stack.
package config

import (
	"fmt"
	"time"
)

// LoggingConfig configures the structured logger every package writes
// through (log/slog).
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // text, json
	Output string `yaml:"output,omitempty"` // stdout, stderr, file
}

// Validate implements ConfigInterface.Validate for LoggingConfig.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Level)
	}
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Format)
	}
	switch c.Output {
	case "stdout", "stderr", "file":
	default:
		return fmt.Errorf("invalid output destination: %s", c.Output)
	}
	return nil
}

// SetDefaults implements ConfigInterface.SetDefaults for LoggingConfig.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
}

// TracingConfig configures the trace/metrics sink (tracesink package),
// the global equivalent of the teacher's A2A/observability settings.
type TracingConfig struct {
	Enabled        bool    `yaml:"enabled,omitempty"`
	ExporterType   string  `yaml:"exporter_type,omitempty"` // otlp-grpc, none
	EndpointURL    string  `yaml:"endpoint_url,omitempty"`
	SamplingRate   float64 `yaml:"sampling_rate,omitempty"`
	ServiceName    string  `yaml:"service_name,omitempty"`
	MetricsEnabled bool    `yaml:"metrics_enabled,omitempty"`
}

// ============================================================================
// AGENT CONFIGURATION
// ============================================================================

// BudgetConfig is the recognised `budget` option: resource limits handed
// to the economics engine.
type BudgetConfig struct {
	MaxTokens        int           `yaml:"max_tokens,omitempty"`
	MaxCost          float64       `yaml:"max_cost,omitempty"`
	MaxDuration      time.Duration `yaml:"max_duration,omitempty"`
	MaxIterations    int           `yaml:"max_iterations,omitempty"`
	TargetIterations int           `yaml:"target_iterations,omitempty"`
}

// SubagentConfig is the recognised `subagent` option: spawn limits and
// per-role timeout overrides.
type SubagentConfig struct {
	AllocationFraction float64                  `yaml:"allocation_fraction,omitempty"` // default 0.25
	FloorTokens        int                      `yaml:"floor_tokens,omitempty"`        // default 100_000
	WrapupWindow       time.Duration            `yaml:"wrapup_window,omitempty"`       // default 30s
	Timeouts           map[string]time.Duration `yaml:"timeouts,omitempty"`            // per agent-type override
	DedupWindow        time.Duration            `yaml:"dedup_window,omitempty"`
}

// ResilienceConfig is the recognised `resilience` option (LLM call
// retries and continuation behaviour).
type ResilienceConfig struct {
	MaxEmptyRetries  int `yaml:"max_empty_retries,omitempty"` // R1, default 2
	MaxContinuations int `yaml:"max_continuations,omitempty"` // R2, default 3
}

// PlanModeConfig is the recognised `plan_mode` option.
type PlanModeConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
}

// BlackboardConfig is the recognised `blackboard` option: claim TTL for
// the shared substrate.
type BlackboardConfig struct {
	ClaimTTL time.Duration `yaml:"claim_ttl,omitempty"` // default 2m
}

// FeatureToggle is one entry of the optional-capability set: each toggle
// is `false`, `true`, or a nested option map, so it normalises into an
// enabled flag plus whatever options accompanied it.
type FeatureToggle struct {
	Enabled bool
	Options map[string]any
}

// featureToggleKeys enumerates every recognised feature-toggle name. The
// execution loop only consults a capability registry for the ones it
// actually holds; an unrecognised key is simply ignored rather than
// rejected, so new capabilities can be added without a schema change.
var featureToggleKeys = []string{
	"memory", "planning", "reflection", "observability", "sandbox",
	"human_in_loop", "routing", "multi_agent", "react", "execution_policy",
	"threads", "rules", "cancellation", "resources", "lsp", "semantic_cache",
	"skills", "codebase_context", "recursive_context", "learning_store",
	"compaction", "file_change_tracker", "swarm", "verification_criteria",
}

// AgentConfig is the per-agent recognised-options record: the primary
// fields plus the feature-toggle registry.
type AgentConfig struct {
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`

	Provider         string   `yaml:"provider,omitempty"` // LLM provider reference
	Model            string   `yaml:"model,omitempty"`
	Tools            []string `yaml:"tools,omitempty"`
	MaxIterations    int      `yaml:"max_iterations,omitempty"`
	MaxContextTokens int      `yaml:"max_context_tokens,omitempty"`
	SystemPrompt     string   `yaml:"system_prompt,omitempty"`

	Budget     BudgetConfig     `yaml:"budget,omitempty"`
	Subagent   SubagentConfig   `yaml:"subagent,omitempty"`
	Resilience ResilienceConfig `yaml:"resilience,omitempty"`
	PlanMode   PlanModeConfig   `yaml:"plan_mode,omitempty"`
	Blackboard BlackboardConfig `yaml:"blackboard,omitempty"`

	// Raw carries every key decoded for this agent, feature toggles
	// included, exactly as mapstructure saw them; Features is derived
	// from the toggle subset of it by normalizeFeatures.
	Raw map[string]any `yaml:",remain"`

	// Features holds the normalised feature-toggle registry: memory,
	// planning, reflection, observability, sandbox, human_in_loop,
	// routing, multi_agent, react, execution_policy, threads, rules,
	// cancellation, resources, lsp, semantic_cache, skills,
	// codebase_context, recursive_context, learning_store, compaction,
	// file_change_tracker, swarm, verification_criteria. Modelled as a
	// registry rather than one nullable field per optional subsystem, so
	// the execution loop only consults the capabilities it actually has.
	Features map[string]FeatureToggle `yaml:"-"`
}

// Validate implements ConfigInterface.Validate for AgentConfig.
func (c *AgentConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Provider == "" {
		return fmt.Errorf("provider reference is required")
	}
	if c.Budget.MaxCost < 0 {
		return fmt.Errorf("budget.max_cost must not be negative")
	}
	return nil
}

// SetDefaults implements ConfigInterface.SetDefaults for AgentConfig.
func (c *AgentConfig) SetDefaults() {
	if c.Model == "" {
		c.Model = "default"
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = 50
	}
	if c.MaxContextTokens <= 0 {
		c.MaxContextTokens = 128_000
	}
	if c.Budget.MaxIterations <= 0 {
		c.Budget.MaxIterations = c.MaxIterations
	}
	if c.Subagent.AllocationFraction <= 0 {
		c.Subagent.AllocationFraction = 0.25
	}
	if c.Subagent.FloorTokens <= 0 {
		c.Subagent.FloorTokens = 100_000
	}
	if c.Subagent.WrapupWindow <= 0 {
		c.Subagent.WrapupWindow = 30 * time.Second
	}
	if c.Resilience.MaxEmptyRetries <= 0 {
		c.Resilience.MaxEmptyRetries = 2
	}
	if c.Resilience.MaxContinuations <= 0 {
		c.Resilience.MaxContinuations = 3
	}
	if c.Blackboard.ClaimTTL <= 0 {
		c.Blackboard.ClaimTTL = 2 * time.Minute
	}
	c.normalizeFeatures()
}

// normalizeFeatures extracts the feature-toggle keys out of Raw into
// Features, accepting both a bare bool and a nested option map per key.
func (c *AgentConfig) normalizeFeatures() {
	if c.Features == nil {
		c.Features = make(map[string]FeatureToggle, len(featureToggleKeys))
	}
	for _, key := range featureToggleKeys {
		val, ok := c.Raw[key]
		if !ok {
			continue
		}
		switch v := val.(type) {
		case bool:
			c.Features[key] = FeatureToggle{Enabled: v}
		case map[string]any:
			c.Features[key] = FeatureToggle{Enabled: true, Options: v}
		default:
			c.Features[key] = FeatureToggle{Enabled: true}
		}
	}
}

// Feature looks up a toggle by name; absent keys report disabled.
func (c *AgentConfig) Feature(name string) FeatureToggle {
	return c.Features[name]
}
