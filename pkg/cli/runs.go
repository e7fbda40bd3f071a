package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/argus/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func runsCommand() *cli.Command {
	var (
		cfg       config
		agentType string
		limit     int64
		withLogs  bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "agent",
			Aliases:     []string{"a"},
			Usage:       "Only list runs of this agent type",
			Sources:     cli.EnvVars("ARGUS_RUNS_AGENT"),
			Destination: &agentType,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum number of runs to list",
			Value:       20,
			Sources:     cli.EnvVars("ARGUS_RUNS_LIMIT"),
			Destination: &limit,
		},
		&cli.BoolFlag{
			Name:        "logs",
			Usage:       "Show log rows of each run",
			Destination: &withLogs,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "runs",
		Usage: "List past agent runs",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx, c.Root().ErrWriter)
			if err != nil {
				return err
			}

			t := model.AgentType(agentType)
			if t != "" {
				if err := t.Validate(); err != nil {
					return err
				}
			}

			repo, closer, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer closer()

			runs, err := repo.ListRuns(ctx, t, int(limit))
			if err != nil {
				return goerr.Wrap(err, "failed to list runs")
			}

			if len(runs) == 0 {
				fmt.Fprintln(c.Root().Writer, "No runs found")
				return nil
			}

			for _, r := range runs {
				completed := "-"
				if r.CompletedAt != nil {
					completed = r.CompletedAt.Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(c.Root().Writer, "%s\t%s\t%s\t%s\t%s\t%s\tsize=%d tagged=%d\t%s\n",
					r.ID,
					r.AgentType,
					r.Mode,
					r.Status,
					r.StartedAt.Format("2006-01-02 15:04:05"),
					completed,
					r.GroupSize,
					r.NodesTagged,
					r.Summary,
				)

				if !withLogs {
					continue
				}
				logs, err := repo.ListLogs(ctx, r.ID)
				if err != nil {
					return goerr.Wrap(err, "failed to list run logs", goerr.V("run_id", r.ID))
				}
				for _, l := range logs {
					fmt.Fprintf(c.Root().Writer, "\t%s\t%s\t%s\n", l.CreatedAt.Format("15:04:05"), l.Level, l.Message)
				}
			}

			return nil
		},
	}
}
