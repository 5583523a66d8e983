package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/tracewatch/cli/render"
	"github.com/justapithecus/tracewatch/cli/tui"
	"github.com/justapithecus/tracewatch/query"
)

func liveCommand() *cli.Command {
	return &cli.Command{
		Name:      "live",
		Usage:     "Reconstruct the live-actor set (and full point-in-time snapshot) at a timestamp",
		ArgsUsage: "<rfc3339-timestamp>",
		Flags:     append(snapshotFlags(), &cli.BoolFlag{Name: "tui", Usage: "Browse interactively"}),
		Action:    liveAction,
	}
}

func liveAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("timestamp required (RFC3339)", 1)
	}
	t, err := time.Parse(time.RFC3339, c.Args().First())
	if err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}

	s, err := loadStore(c.String("snapshot"))
	if err != nil {
		return err
	}

	snap := query.SnapshotAt(s, t)

	if c.Bool("tui") {
		return tui.Run(tui.ViewLive, tui.LiveSnapshot{At: t.Format(time.RFC3339), Snap: snap})
	}

	r, err := render.New(c.String("format"), c.Bool("no-color"))
	if err != nil {
		return err
	}
	return r.Render(snapshotViewOf(snap))
}

// snapshotView flattens a query.Snapshot into a JSON/table-friendly shape;
// encoding/json cannot marshal a map keyed by ActorHandle (a struct that
// is not a TextMarshaler), so this renders actor identities as their
// string form explicitly.
type snapshotView struct {
	Timestamp       string            `json:"timestamp"`
	LiveActors      []string          `json:"live_actors"`
	States          map[string]string `json:"states"`
	PendingMessages map[string]int    `json:"pending_messages"`
	Supervision     []supervisionRow  `json:"supervision"`
}

type supervisionRow struct {
	Supervisor string `json:"supervisor"`
	Child      string `json:"child"`
	Strategy   string `json:"strategy"`
}

func snapshotViewOf(snap query.Snapshot) snapshotView {
	v := snapshotView{
		Timestamp:       snap.Timestamp.Format(time.RFC3339Nano),
		States:          make(map[string]string, len(snap.States)),
		PendingMessages: make(map[string]int, len(snap.PendingMessages)),
	}
	for _, a := range snap.LiveActors {
		v.LiveActors = append(v.LiveActors, a.String())
	}
	for a, e := range snap.States {
		if e.State != nil {
			v.States[a.String()] = e.State.State
		}
	}
	for a, pending := range snap.PendingMessages {
		v.PendingMessages[a.String()] = len(pending)
	}
	for _, edge := range snap.Supervision {
		v.Supervision = append(v.Supervision, supervisionRow{
			Supervisor: edge.Supervisor.String(),
			Child:      edge.Child.String(),
			Strategy:   edge.Strategy,
		})
	}
	return v
}
