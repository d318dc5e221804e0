package main

import (
	"github.com/urfave/cli/v2"

	"github.com/panbanda/sweep/pkg/session"
	"github.com/panbanda/sweep/pkg/watch"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Run a session on every batch of changed files",
		ArgsUsage: "[workspace]",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "Quiet period before a batch of changes is processed",
			},
			&cli.IntFlag{
				Name:    "max-actions",
				Aliases: []string{"n"},
				Usage:   "Maximum actions per session (default from config)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Show the changes without writing them",
			},
		},
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.Close()

	ctrl, err := session.New(e.cfg)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(c)
	defer stop()

	return watch.Run(ctx, ctrl, e.workspace, &watch.Options{
		Config:   e.cfg,
		Debounce: c.Duration("debounce"),
		Request: session.Request{
			MaxActions: c.Int("max-actions"),
			DryRun:     c.Bool("dry-run"),
		},
		Out: e.out.Writer(),
	})
}
