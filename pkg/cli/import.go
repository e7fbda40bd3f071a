package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/m-mizutani/argus/pkg/adapter"
	"github.com/m-mizutani/argus/pkg/model"
	"github.com/m-mizutani/argus/pkg/repository"
	"github.com/m-mizutani/argus/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func importCommand() *cli.Command {
	var (
		cfg       config
		inputPath string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "JSON file or gs:// object containing an array of annotated events",
			Sources:     cli.EnvVars("ARGUS_INPUT"),
			Destination: &inputPath,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "import",
		Usage: "Load annotated events into the store",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx, c.Root().ErrWriter)
			if err != nil {
				return err
			}

			events, err := loadEvents(ctx, inputPath)
			if err != nil {
				return err
			}

			repo, closer, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer closer()

			if err := putEvents(ctx, repo, events); err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Imported %d events\n", len(events))
			return nil
		},
	}
}

// loadEvents reads a JSON array of events from a local file or a gs:// object and
// validates every entry
func loadEvents(ctx context.Context, path string) ([]*model.Event, error) {
	data, err := readInput(ctx, path)
	if err != nil {
		return nil, err
	}

	var events []*model.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, goerr.Wrap(err, "failed to parse JSON", goerr.V("path", path))
	}

	for i, e := range events {
		if err := e.Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid event", goerr.V("index", i))
		}
	}
	return events, nil
}

func readInput(ctx context.Context, path string) ([]byte, error) {
	bucket, key, ok := adapter.ParseObjectURL(path)
	if !ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read input file", goerr.V("path", path))
		}
		return data, nil
	}

	store, err := adapter.NewStorage(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.From(ctx).Warn("failed to close storage client", "error", err)
		}
	}()

	r, err := store.Get(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read object", goerr.V("path", path))
	}
	return data, nil
}

func putEvents(ctx context.Context, repo repository.Repository, events []*model.Event) error {
	for _, e := range events {
		if err := repo.PutEvent(ctx, e); err != nil {
			return goerr.Wrap(err, "failed to put event", goerr.V("event_id", e.ID))
		}
	}
	return nil
}
