package cli

import (
	"context"
	"io"

	agentconfig "github.com/m-mizutani/argus/pkg/config"
	"github.com/m-mizutani/argus/pkg/model"
	"github.com/m-mizutani/argus/pkg/repository"
	"github.com/m-mizutani/argus/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const (
	backendFirestore = "firestore"
	backendMemory    = "memory"
)

// errNotConfigured means no store is available. Runs are skipped instead of failing.
var errNotConfigured = goerr.New("store is not configured")

// config holds configuration values
type config struct {
	// Repository
	backend  string
	project  string
	database string

	// Agents
	configFile string

	// Logging
	logLevel  string
	logFormat string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "backend",
			Aliases:     []string{"b"},
			Usage:       "Event store backend (firestore, memory)",
			Value:       backendFirestore,
			Sources:     cli.EnvVars("ARGUS_BACKEND"),
			Destination: &cfg.backend,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "config-file",
			Aliases:     []string{"c"},
			Usage:       "YAML file of agent defaults, applied only to agent types without stored config",
			Sources:     cli.EnvVars("ARGUS_CONFIG_FILE"),
			Destination: &cfg.configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("ARGUS_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       string(logging.FormatConsole),
			Sources:     cli.EnvVars("ARGUS_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
	}
}

// setupLogger installs the default logger and attaches it to ctx
func (cfg *config) setupLogger(ctx context.Context, w io.Writer) (context.Context, error) {
	logger, err := logging.NewWithFormat(logging.Format(cfg.logFormat), cfg.logLevel, w)
	if err != nil {
		return ctx, goerr.Wrap(err, "failed to configure logger",
			goerr.V("level", cfg.logLevel),
			goerr.V("format", cfg.logFormat))
	}
	logging.SetDefault(logger)
	return logging.With(ctx, logger), nil
}

// newRepository creates a new repository instance. The returned closer must be called
// when done.
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, func(), error) {
	switch cfg.backend {
	case backendMemory:
		return repository.NewMemory(), func() {}, nil

	case backendFirestore, "":
		if cfg.project == "" {
			return nil, nil, goerr.Wrap(errNotConfigured, "project is required for firestore backend")
		}
		if cfg.database == "" {
			return nil, nil, goerr.New("database is required")
		}

		repo, err := repository.New(ctx, cfg.project, cfg.database)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create repository")
		}
		closer := func() {
			if err := repo.Close(); err != nil {
				logging.From(ctx).Warn("failed to close repository", "error", err)
			}
		}
		return repo, closer, nil

	default:
		return nil, nil, goerr.New("unknown backend", goerr.V("backend", cfg.backend))
	}
}

// agentDefaults loads agent tunables used when the store has none
func (cfg *config) agentDefaults() (map[model.AgentType]*model.AgentConfig, error) {
	configs, err := agentconfig.LoadAgentConfigs(cfg.configFile)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load agent configs")
	}
	return configs, nil
}

// parseAgentTypes expands the --agent values. "all" or no value selects every agent.
func parseAgentTypes(values []string) ([]model.AgentType, error) {
	if len(values) == 0 {
		return model.AgentTypes(), nil
	}

	seen := make(map[model.AgentType]bool)
	var out []model.AgentType
	for _, v := range values {
		if v == "all" {
			return model.AgentTypes(), nil
		}
		t := model.AgentType(v)
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out, nil
}
