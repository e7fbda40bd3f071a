package cli

import (
	"context"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	return run(ctx, argv, os.Stdout, os.Stderr)
}

func run(ctx context.Context, argv []string, stdout, stderr io.Writer) *Error {
	cmd := &cli.Command{
		Name:      "argus",
		Usage:     "Surveillance event discovery agents",
		Writer:    stdout,
		ErrWriter: stderr,
		Commands: []*cli.Command{
			runCommand(),
			runsCommand(),
			configCommand(),
			importCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
