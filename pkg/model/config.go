package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// AgentConfig holds per agent-type tunables. Only Watermark is mutated by runs.
type AgentConfig struct {
	AgentType           AgentType
	Enabled             bool
	BatchSize           int
	Threshold           float64
	MinGroupSizeCron    int
	MinGroupSizeContext int
	MaxExecution        time.Duration
	OverlapThreshold    int
	Incremental         bool
	Watermark           int64
	Options             map[string]any
}

// DefaultAgentConfig returns built-in tunables for the agent type
func DefaultAgentConfig(agentType AgentType) *AgentConfig {
	cfg := &AgentConfig{
		AgentType:           agentType,
		Enabled:             true,
		BatchSize:           100,
		MinGroupSizeCron:    3,
		MinGroupSizeContext: 2,
		MaxExecution:        25 * time.Second,
		OverlapThreshold:    3,
		Incremental:         true,
		Options:             map[string]any{},
	}

	switch agentType {
	case AgentTimeline:
		cfg.Threshold = 0.25
		cfg.Options["max_gap_minutes"] = 60.0
		cfg.Options["context_window_minutes"] = 120.0
	case AgentCorrelation:
		cfg.Threshold = 0.90
		cfg.Options["context_window_minutes"] = 120.0
	case AgentAnomaly:
		cfg.MinGroupSizeCron = 5
		cfg.MinGroupSizeContext = 3
		cfg.Options["window_minutes"] = 30.0
		cfg.Options["context_window_minutes"] = 60.0
	}

	return cfg
}

// Validate checks the tunables are usable
func (c *AgentConfig) Validate() error {
	if err := c.AgentType.Validate(); err != nil {
		return err
	}
	if c.BatchSize <= 0 {
		return goerr.New("batch size must be positive", goerr.V("agent_type", c.AgentType), goerr.V("batch_size", c.BatchSize))
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return goerr.New("threshold must be in [0, 1]", goerr.V("agent_type", c.AgentType), goerr.V("threshold", c.Threshold))
	}
	if c.MinGroupSizeCron < 1 || c.MinGroupSizeContext < 1 {
		return goerr.New("minimum group sizes must be at least 1", goerr.V("agent_type", c.AgentType))
	}
	if c.MaxExecution <= 0 {
		return goerr.New("max execution must be positive", goerr.V("agent_type", c.AgentType))
	}
	return nil
}

// MinGroupSize returns the minimum group size for the run mode
func (c *AgentConfig) MinGroupSize(mode RunMode) int {
	if mode == RunModeContext {
		return c.MinGroupSizeContext
	}
	return c.MinGroupSizeCron
}

// Float returns a numeric option, accepting the numeric types YAML and Firestore decode into
func (c *AgentConfig) Float(key string, def float64) float64 {
	switch v := c.Options[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// Minutes returns an option expressed in minutes as a duration
func (c *AgentConfig) Minutes(key string, def float64) time.Duration {
	return time.Duration(c.Float(key, def) * float64(time.Minute))
}

// Clone returns a deep copy so run-time mutations never leak into shared state
func (c *AgentConfig) Clone() *AgentConfig {
	out := *c
	out.Options = make(map[string]any, len(c.Options))
	for k, v := range c.Options {
		out.Options[k] = v
	}
	return &out
}
