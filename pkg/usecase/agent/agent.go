// Package agent runs the timeline, correlation and anomaly batch jobs.
package agent

import (
	"time"

	"github.com/m-mizutani/argus/pkg/metrics"
	"github.com/m-mizutani/argus/pkg/model"
	"github.com/m-mizutani/argus/pkg/repository"
	"github.com/m-mizutani/argus/pkg/usecase/history"
)

// UseCase provides agent run operations
type UseCase struct {
	repo     repository.Repository
	guard    *Guard
	defaults map[model.AgentType]*model.AgentConfig
	history  *history.Store
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithClock replaces the clock used for budgets and timestamps
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
	}
}

// WithHistory records every finished run into the store
func WithHistory(store *history.Store) Option {
	return func(uc *UseCase) {
		uc.history = store
	}
}

// WithMetrics records every finished run into the collectors
func WithMetrics(m *metrics.Metrics) Option {
	return func(uc *UseCase) {
		uc.metrics = m
	}
}

// WithDefaults sets the tunables used when the store has none for an agent type
func WithDefaults(configs map[model.AgentType]*model.AgentConfig) Option {
	return func(uc *UseCase) {
		for k, v := range configs {
			uc.defaults[k] = v.Clone()
		}
	}
}

// New creates a new agent UseCase instance
func New(repo repository.Repository, opts ...Option) *UseCase {
	uc := &UseCase{
		repo:     repo,
		guard:    NewGuard(repo),
		defaults: make(map[model.AgentType]*model.AgentConfig),
		now:      time.Now,
	}
	for _, t := range model.AgentTypes() {
		uc.defaults[t] = model.DefaultAgentConfig(t)
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
