// Package config loads agent tunables from a YAML file.
package config

import (
	"os"
	"time"

	"github.com/m-mizutani/argus/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// agentOverride holds optional values; unset fields keep the built-in default
type agentOverride struct {
	Enabled             *bool          `yaml:"enabled"`
	BatchSize           *int           `yaml:"batch_size"`
	Threshold           *float64       `yaml:"threshold"`
	MinGroupSizeCron    *int           `yaml:"min_group_size_cron"`
	MinGroupSizeContext *int           `yaml:"min_group_size_context"`
	MaxExecution        string         `yaml:"max_execution"`
	OverlapThreshold    *int           `yaml:"overlap_threshold"`
	Incremental         *bool          `yaml:"incremental"`
	Options             map[string]any `yaml:"options"`
}

type fileConfig struct {
	Agents map[model.AgentType]agentOverride `yaml:"agents"`
}

// Defaults returns built-in tunables for every agent type
func Defaults() map[model.AgentType]*model.AgentConfig {
	out := make(map[model.AgentType]*model.AgentConfig)
	for _, t := range model.AgentTypes() {
		out[t] = model.DefaultAgentConfig(t)
	}
	return out
}

// LoadAgentConfigs reads agent overrides from a YAML file and merges them over the
// built-in defaults. An empty path returns the defaults.
func LoadAgentConfigs(filePath string) (map[model.AgentType]*model.AgentConfig, error) {
	configs := Defaults()
	if filePath == "" {
		return configs, nil
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read agent config file", goerr.V("file", filePath))
	}

	return Parse(content, configs)
}

// Parse merges YAML content over base and validates the result
func Parse(content []byte, base map[model.AgentType]*model.AgentConfig) (map[model.AgentType]*model.AgentConfig, error) {
	var file fileConfig
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse agent config YAML")
	}

	for agentType, o := range file.Agents {
		if err := agentType.Validate(); err != nil {
			return nil, err
		}
		cfg, ok := base[agentType]
		if !ok {
			cfg = model.DefaultAgentConfig(agentType)
			base[agentType] = cfg
		}
		if err := o.apply(cfg); err != nil {
			return nil, goerr.Wrap(err, "invalid agent config", goerr.V("agent_type", agentType))
		}
	}

	for _, cfg := range base {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return base, nil
}

// Marshal renders configs in the file format so the output can be loaded back.
// Watermarks are runtime state and are not rendered.
func Marshal(configs map[model.AgentType]*model.AgentConfig) ([]byte, error) {
	file := fileConfig{Agents: make(map[model.AgentType]agentOverride, len(configs))}
	for agentType, cfg := range configs {
		file.Agents[agentType] = agentOverride{
			Enabled:             &cfg.Enabled,
			BatchSize:           &cfg.BatchSize,
			Threshold:           &cfg.Threshold,
			MinGroupSizeCron:    &cfg.MinGroupSizeCron,
			MinGroupSizeContext: &cfg.MinGroupSizeContext,
			MaxExecution:        cfg.MaxExecution.String(),
			OverlapThreshold:    &cfg.OverlapThreshold,
			Incremental:         &cfg.Incremental,
			Options:             cfg.Options,
		}
	}

	out, err := yaml.Marshal(&file)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to render agent configs")
	}
	return out, nil
}

func (o *agentOverride) apply(cfg *model.AgentConfig) error {
	if o.Enabled != nil {
		cfg.Enabled = *o.Enabled
	}
	if o.BatchSize != nil {
		cfg.BatchSize = *o.BatchSize
	}
	if o.Threshold != nil {
		cfg.Threshold = *o.Threshold
	}
	if o.MinGroupSizeCron != nil {
		cfg.MinGroupSizeCron = *o.MinGroupSizeCron
	}
	if o.MinGroupSizeContext != nil {
		cfg.MinGroupSizeContext = *o.MinGroupSizeContext
	}
	if o.MaxExecution != "" {
		d, err := time.ParseDuration(o.MaxExecution)
		if err != nil {
			return goerr.Wrap(err, "failed to parse max_execution", goerr.V("value", o.MaxExecution))
		}
		cfg.MaxExecution = d
	}
	if o.OverlapThreshold != nil {
		cfg.OverlapThreshold = *o.OverlapThreshold
	}
	if o.Incremental != nil {
		cfg.Incremental = *o.Incremental
	}
	for k, v := range o.Options {
		cfg.Options[k] = v
	}
	return nil
}
