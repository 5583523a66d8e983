package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/tracewatch/cli/render"
	"github.com/justapithecus/tracewatch/event"
	"github.com/justapithecus/tracewatch/query"
)

// eventRow is the flattened, table-friendly projection of event.Event the
// query/inspect commands render — the raw Event's kind-specific pointer
// fields don't tabulate well, so each render gets one summary column.
type eventRow struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	Kind      string `json:"kind"`
	Actor     string `json:"actor,omitempty"`
	Critical  bool   `json:"critical"`
	Summary   string `json:"summary"`
}

func toRow(e *event.Event) eventRow {
	return eventRow{
		ID:        e.ID,
		Timestamp: e.Timestamp.Format(time.RFC3339Nano),
		Kind:      string(e.Kind),
		Actor:     e.Actor.String(),
		Critical:  e.Critical,
		Summary:   summarize(e),
	}
}

func toRows(events []*event.Event) []eventRow {
	rows := make([]eventRow, len(events))
	for i, e := range events {
		rows[i] = toRow(e)
	}
	return rows
}

func summarize(e *event.Event) string {
	switch e.Kind {
	case event.KindProcess:
		if e.Process != nil {
			return fmt.Sprintf("%s reason=%s", e.Process.SubEvent, e.Process.Reason)
		}
	case event.KindMessage:
		if e.Message != nil {
			return fmt.Sprintf("%s %s->%s: %s", e.Message.Direction, e.Message.From, e.Message.To, e.Message.Content)
		}
	case event.KindState:
		if e.State != nil {
			return fmt.Sprintf("%s/%s: %s", e.State.Module, e.State.Callback, e.State.State)
		}
	case event.KindGenServer:
		if e.GenServer != nil {
			return fmt.Sprintf("%s.%s: %s", e.GenServer.Module, e.GenServer.Callback, e.GenServer.Message)
		}
	case event.KindFunction:
		if e.Function != nil {
			return fmt.Sprintf("%s %s.%s/%d: %s", e.Function.Direction, e.Function.Module, e.Function.Function, e.Function.Arity, e.Function.Summary)
		}
	case event.KindFramework:
		if e.Framework != nil {
			return e.Framework.Subtype
		}
	case event.KindCustom:
		if e.Custom != nil {
			return e.Custom.Tag
		}
	}
	return ""
}

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "Run a filtered query over a snapshot",
		ArgsUsage: " ",
		Flags: append(snapshotFlags(),
			&cli.StringFlag{Name: "kind", Usage: "Event kind: process, message, state, genserver, function, framework, custom"},
			&cli.StringFlag{Name: "actor", Usage: "Restrict to events referencing this actor"},
			&cli.StringFlag{Name: "from", Usage: "Restrict to Message events with this From actor"},
			&cli.StringFlag{Name: "to", Usage: "Restrict to Message events with this To actor"},
			&cli.StringFlag{Name: "start", Usage: "Inclusive lower timestamp bound (RFC3339)"},
			&cli.StringFlag{Name: "end", Usage: "Inclusive upper timestamp bound (RFC3339)"},
			&cli.IntFlag{Name: "limit", Usage: "Cap the number of results (0 = unbounded)"},
		),
		Action: queryAction,
	}
}

func queryAction(c *cli.Context) error {
	s, err := loadStore(c.String("snapshot"))
	if err != nil {
		return err
	}

	f, err := parseFilter(c)
	if err != nil {
		return err
	}

	rows := toRows(query.Query(s, f))

	r, err := render.New(c.String("format"), c.Bool("no-color"))
	if err != nil {
		return err
	}
	return r.Render(rows)
}

func parseFilter(c *cli.Context) (query.Filter, error) {
	var f query.Filter
	if kind := c.String("kind"); kind != "" {
		f.Kind = event.Kind(kind)
	}
	if a := c.String("actor"); a != "" {
		h := event.NewActorHandle(a)
		f.Actor = &h
	}
	if a := c.String("from"); a != "" {
		h := event.NewActorHandle(a)
		f.FromActor = &h
	}
	if a := c.String("to"); a != "" {
		h := event.NewActorHandle(a)
		f.ToActor = &h
	}
	if start := c.String("start"); start != "" {
		ts, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return f, fmt.Errorf("invalid --start: %w", err)
		}
		f.TimestampStart = ts
	}
	if end := c.String("end"); end != "" {
		ts, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return f, fmt.Errorf("invalid --end: %w", err)
		}
		f.TimestampEnd = ts
	}
	f.Limit = c.Int("limit")
	return f, nil
}

// snapshotFlags are shared by every read-only subcommand that operates
// over a restored snapshot blob.
func snapshotFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "snapshot", Usage: "Path to a snapshot blob written by `serve`", Required: true},
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Output format: json, table, yaml"},
		&cli.BoolFlag{Name: "no-color", Usage: "Disable colored output"},
	}
}
