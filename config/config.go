// Package config provides configuration types and utilities for the
// execution engine. This file contains the main unified configuration
// entry point.
package config

import (
	"context"
	"fmt"

	"github.com/fenwick-labs/agentcore/config/provider"
)

// ============================================================================
// MAIN UNIFIED CONFIGURATION
// ============================================================================

// Config represents the complete configuration: global settings plus a
// named set of agent definitions, the single entry point for everything
// the orchestrator needs to run.
type Config struct {
	// Version and metadata
	Version     string            `yaml:"version,omitempty"`
	Name        string            `yaml:"name,omitempty"`
	Description string            `yaml:"description,omitempty"`
	Metadata    map[string]string `yaml:"metadata,omitempty"`

	// Global settings
	Global GlobalSettings `yaml:"global,omitempty"`

	// Agent definitions
	Agents map[string]AgentConfig `yaml:"agents,omitempty"`
}

// Validate implements ConfigInterface.Validate for Config.
func (c *Config) Validate() error {
	if err := c.Global.Validate(); err != nil {
		return fmt.Errorf("global settings validation failed: %w", err)
	}
	for name, agent := range c.Agents {
		if err := agent.Validate(); err != nil {
			return fmt.Errorf("agent '%s' validation failed: %w", name, err)
		}
	}
	return nil
}

// SetDefaults implements ConfigInterface.SetDefaults for Config.
func (c *Config) SetDefaults() {
	c.Global.SetDefaults()

	if c.Agents == nil {
		c.Agents = make(map[string]AgentConfig)
	}

	// Zero-config: create a default agent if none exist.
	if len(c.Agents) == 0 {
		c.Agents["default"] = AgentConfig{Name: "default", Provider: "default"}
	}

	for name := range c.Agents {
		agent := c.Agents[name]
		agent.SetDefaults()
		c.Agents[name] = agent
	}
}

// ============================================================================
// GLOBAL SETTINGS
// ============================================================================

// GlobalSettings contains global configuration settings shared by every
// agent: logging and the trace/metrics sink wiring.
type GlobalSettings struct {
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Tracing TracingConfig `yaml:"tracing,omitempty"`
}

// Validate implements ConfigInterface.Validate for GlobalSettings.
func (c *GlobalSettings) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config validation failed: %w", err)
	}
	return nil
}

// SetDefaults implements ConfigInterface.SetDefaults for GlobalSettings.
func (c *GlobalSettings) SetDefaults() {
	c.Logging.SetDefaults()
}

// ============================================================================
// CONFIGURATION LOADING
// ============================================================================

// LoadConfig loads the complete configuration from a YAML file. This is
// the main entry point for configuration loading.
func LoadConfig(filePath string) (*Config, error) {
	return LoadConfigWithProvider(context.Background(), provider.ProviderConfig{
		Type: provider.TypeFile,
		Path: filePath,
	})
}

// LoadConfigFromString loads configuration from a YAML string, bypassing
// any provider — useful for tests and embedded documents.
func LoadConfigFromString(yamlContent string) (*Config, error) {
	var cfg Config
	rawMap, err := parseBytes([]byte(yamlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := decodeConfig(expandEnvVarsInMap(rawMap), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to load config from string: %w", err)
	}
	return &cfg, nil
}

// LoadConfigWithProvider loads configuration through an arbitrary source
// provider (file, consul, etcd), going through the full Loader pipeline:
// parse, env-expand, decode, default, validate.
func LoadConfigWithProvider(ctx context.Context, opts provider.ProviderConfig) (*Config, error) {
	p, err := provider.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	defer p.Close()

	loader := NewLoader(p)
	cfg, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// ============================================================================
// HELPER METHODS
// ============================================================================

// GetAgent returns an agent configuration by name.
func (c *Config) GetAgent(name string) (*AgentConfig, bool) {
	agent, exists := c.Agents[name]
	return &agent, exists
}

// ListAgents returns a list of all agent names.
func (c *Config) ListAgents() []string {
	agents := make([]string, 0, len(c.Agents))
	for name := range c.Agents {
		agents = append(agents, name)
	}
	return agents
}
