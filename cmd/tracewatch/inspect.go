package main

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/tracewatch/cli/render"
	"github.com/justapithecus/tracewatch/cli/tui"
	"github.com/justapithecus/tracewatch/event"
	"github.com/justapithecus/tracewatch/query"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect a single actor's event history or state timeline",
		Subcommands: []*cli.Command{
			inspectActorCommand(),
			inspectTimelineCommand(),
		},
	}
}

func inspectActorCommand() *cli.Command {
	return &cli.Command{
		Name:      "actor",
		Usage:     "List every event referencing an actor",
		ArgsUsage: "<actor-handle>",
		Flags:     snapshotFlags(),
		Action:    inspectActorAction,
	}
}

func inspectActorAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("actor-handle required", 1)
	}
	actor := event.NewActorHandle(c.Args().First())

	s, err := loadStore(c.String("snapshot"))
	if err != nil {
		return err
	}

	rows := toRows(query.EventsForActor(s, actor))

	r, err := render.New(c.String("format"), c.Bool("no-color"))
	if err != nil {
		return err
	}
	return r.Render(rows)
}

func inspectTimelineCommand() *cli.Command {
	return &cli.Command{
		Name:      "timeline",
		Usage:     "Show an actor's ordered state-transition history",
		ArgsUsage: "<actor-handle>",
		Flags:     append(snapshotFlags(), &cli.BoolFlag{Name: "tui", Usage: "Browse interactively"}),
		Action:    inspectTimelineAction,
	}
}

func inspectTimelineAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("actor-handle required", 1)
	}
	actor := event.NewActorHandle(c.Args().First())

	s, err := loadStore(c.String("snapshot"))
	if err != nil {
		return err
	}

	timeline := query.StateTimeline(s, actor)

	if c.Bool("tui") {
		return tui.Run(tui.ViewTimeline, tui.Timeline{Actor: actor, Events: timeline})
	}

	r, err := render.New(c.String("format"), c.Bool("no-color"))
	if err != nil {
		return err
	}
	return r.Render(toRows(timeline))
}
