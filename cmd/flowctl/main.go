// Command flowctl checks and dry-runs workflow documents offline.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/skillhub/flowcore/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(w io.Writer) *cli.Command {
	return &cli.Command{
		Name:                  "flowctl",
		Usage:                 "Validate, preview and inspect workflow documents",
		EnableShellCompletion: true,
		Writer:                w,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			validateCommand(),
			previewCommand(),
			convertCommand(),
			statusCommand(),
		},
	}
}
