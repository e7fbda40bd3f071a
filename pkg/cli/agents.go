package cli

import (
	"context"
	"errors"
	"fmt"

	agentconfig "github.com/m-mizutani/argus/pkg/config"
	"github.com/m-mizutani/argus/pkg/model"
	"github.com/m-mizutani/argus/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func configCommand() *cli.Command {
	var (
		cfg    config
		agents []string
	)

	flags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "agent",
			Aliases:     []string{"a"},
			Usage:       "Agent type to show (timeline, correlation, anomaly, all)",
			Destination: &agents,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "config",
		Usage: "Show effective agent configurations",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx, c.Root().ErrWriter)
			if err != nil {
				return err
			}

			agentTypes, err := parseAgentTypes(agents)
			if err != nil {
				return err
			}

			defaults, err := cfg.agentDefaults()
			if err != nil {
				return err
			}

			// without a store the file defaults are what a run would use
			repo, closer, err := cfg.newRepository(ctx)
			if err != nil && !errors.Is(err, errNotConfigured) {
				return err
			}
			if closer != nil {
				defer closer()
			}

			effective := make(map[model.AgentType]*model.AgentConfig, len(agentTypes))
			watermarks := make(map[model.AgentType]int64)
			for _, t := range agentTypes {
				effective[t] = defaults[t]
				if repo == nil {
					continue
				}
				stored, err := repo.GetAgentConfig(ctx, t)
				if errors.Is(err, repository.ErrNotFound) {
					continue
				}
				if err != nil {
					return goerr.Wrap(err, "failed to get agent config", goerr.V("agent_type", t))
				}
				effective[t] = stored
				watermarks[t] = stored.Watermark
			}

			out, err := agentconfig.Marshal(effective)
			if err != nil {
				return err
			}
			fmt.Fprint(c.Root().Writer, string(out))

			for _, t := range agentTypes {
				if wm, ok := watermarks[t]; ok {
					fmt.Fprintf(c.Root().Writer, "# %s watermark: %d\n", t, wm)
				}
			}
			return nil
		},
	}
}
