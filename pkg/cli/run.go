package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/argus/pkg/metrics"
	"github.com/m-mizutani/argus/pkg/model"
	"github.com/m-mizutani/argus/pkg/usecase/agent"
	"github.com/m-mizutani/argus/pkg/usecase/history"
	"github.com/m-mizutani/argus/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func runCommand() *cli.Command {
	var (
		cfg         config
		agents      []string
		anchor      string
		manual      bool
		inputPath   string
		pushgateway string
		quiet       bool
	)

	flags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "agent",
			Aliases:     []string{"a"},
			Usage:       "Agent type to run (timeline, correlation, anomaly, all)",
			Sources:     cli.EnvVars("ARGUS_AGENT"),
			Destination: &agents,
		},
		&cli.StringFlag{
			Name:        "anchor",
			Usage:       "Event ID to run around in context mode",
			Sources:     cli.EnvVars("ARGUS_ANCHOR_EVENT_ID"),
			Destination: &anchor,
		},
		&cli.BoolFlag{
			Name:        "manual",
			Usage:       "Record the run as manually triggered",
			Destination: &manual,
		},
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "JSON file or gs:// object of events loaded before running",
			Destination: &inputPath,
		},
		&cli.StringFlag{
			Name:        "pushgateway",
			Usage:       "Prometheus Pushgateway URL to push run metrics to",
			Sources:     cli.EnvVars("ARGUS_PUSHGATEWAY_URL"),
			Destination: &pushgateway,
		},
		&cli.BoolFlag{
			Name:        "quiet",
			Aliases:     []string{"q"},
			Usage:       "Do not show progress",
			Destination: &quiet,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "run",
		Usage: "Run discovery agents once",
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
			input := agent.RunInput{AnchorEventID: model.EventID(anchor), Manual: manual}

			repo, closer, err := cfg.newRepository(ctx)
			if errors.Is(err, errNotConfigured) {
				logging.From(ctx).Warn("skipping agents", "reason", err.Error())
				for _, t := range agentTypes {
					printResult(c.Root().Writer, &agent.Result{
						AgentType: t,
						Mode:      input.Mode(),
						Status:    model.RunStatusSkipped,
						Message:   errNotConfigured.Error(),
					})
				}
				return nil
			}
			if err != nil {
				return err
			}
			defer closer()

			if inputPath != "" {
				events, err := loadEvents(ctx, inputPath)
				if err != nil {
					return err
				}
				if err := putEvents(ctx, repo, events); err != nil {
					return err
				}
			}

			defaults, err := cfg.agentDefaults()
			if err != nil {
				return err
			}

			m := metrics.New()
			store := history.New()
			uc := agent.New(repo,
				agent.WithDefaults(defaults),
				agent.WithHistory(store),
				agent.WithMetrics(m),
			)

			var sp *spinner.Spinner
			if !quiet {
				sp = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(c.Root().ErrWriter))
				sp.Suffix = fmt.Sprintf(" running %d agent(s)", len(agentTypes))
				sp.Start()
			}
			results := uc.RunAll(ctx, agentTypes, input)
			if sp != nil {
				sp.Stop()
			}

			failed := 0
			for _, r := range results {
				printResult(c.Root().Writer, r)
				if r.Status == model.RunStatusFailed {
					failed++
				}
			}
			for _, t := range agentTypes {
				if e, ok := store.Last(t); ok {
					fmt.Fprintf(c.Root().Writer, "# %s last=%s duration=%s\n", t, e.Status, e.Duration)
				}
			}

			if pushgateway != "" {
				if err := m.Push(ctx, pushgateway, "argus"); err != nil {
					logging.From(ctx).Warn("failed to push metrics", "error", err)
				}
			}

			if failed > 0 {
				return goerr.New("agent run failed", goerr.V("failed", failed), goerr.V("total", len(results)))
			}
			return nil
		},
	}
}

func printResult(w io.Writer, r *agent.Result) {
	fmt.Fprintf(w, "%s\t%s\t%s\trun=%s group=%s size=%d processed=%d matched=%d tagged=%d batches=%d\n",
		r.AgentType, r.Mode, r.Status, r.RunID, r.GroupID,
		r.GroupSize, r.NodesProcessed, r.NodesMatched, r.NodesTagged, r.Batches)
	if r.Summary != "" {
		fmt.Fprintf(w, "\tsummary: %s\n", r.Summary)
	}
	if r.Message != "" {
		fmt.Fprintf(w, "\tmessage: %s\n", r.Message)
	}
	if len(r.ExistingGroupIDs) > 0 {
		fmt.Fprintf(w, "\texisting: %v\n", r.ExistingGroupIDs)
	}
}
