package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/tracewatch/event"
	"github.com/justapithecus/tracewatch/query"
)

// LiveSnapshot is the payload the "live" view renders: a point-in-time
// query.Snapshot plus the timestamp string it was requested for.
type LiveSnapshot struct {
	At   string
	Snap query.Snapshot
}

// LiveModel is a Bubble Tea model browsing a point-in-time live-actor
// reconstruction: live actor set, last-known state per actor, pending
// messages, and the supervision view, all as of one timestamp.
type LiveModel struct {
	data     LiveSnapshot
	actors   []event.ActorHandle
	cursor   int
	width    int
	height   int
	quitting bool
}

// NewLiveModel creates a LiveModel over snap.
func NewLiveModel(snap LiveSnapshot) LiveModel {
	actors := append([]event.ActorHandle(nil), snap.Snap.LiveActors...)
	sort.Slice(actors, func(i, j int) bool { return actors[i].String() < actors[j].String() })
	return LiveModel{data: snap, actors: actors}
}

// Init implements tea.Model.
func (m LiveModel) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.actors)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m LiveModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Live Actors at %s", m.data.At)))
	b.WriteString("\n\n")

	boxes := []string{
		m.statBox("Live Actors", len(m.data.Snap.LiveActors), highlightColor),
		m.statBox("Pending Msgs", countPending(m.data.Snap.PendingMessages), warningColor),
		m.statBox("Supervision Edges", len(m.data.Snap.Supervision), successColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n\n")

	if len(m.actors) == 0 {
		b.WriteString(ValueStyle.Render("(no live actors)"))
	} else {
		for i, a := range m.actors {
			line := m.renderActorRow(a)
			if i == m.cursor {
				line = SelectedStyle.Render("> " + line)
			} else {
				line = "  " + line
			}
			b.WriteString(line + "\n")
		}
	}

	help := HelpStyle.Render("↑/↓ select actor · q quit")
	return BoxStyle.Render(b.String()) + "\n" + help
}

func (m LiveModel) renderActorRow(a event.ActorHandle) string {
	state := "(no state observed)"
	if e, ok := m.data.Snap.States[a]; ok && e.State != nil {
		state = fmt.Sprintf("%s/%s: %s", e.State.Module, e.State.Callback, e.State.State)
	}
	pending := len(m.data.Snap.PendingMessages[a])
	return fmt.Sprintf("%-24s %s (pending=%d)", a.String(), state, pending)
}

func (m LiveModel) statBox(label string, value int, color lipgloss.Color) string {
	box := StatBoxStyle.BorderForeground(color)
	v := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	l := StatLabelStyle.Render(label)
	return box.Render(lipgloss.JoinVertical(lipgloss.Center, v, l))
}

func countPending(m map[event.ActorHandle][]*event.Event) int {
	n := 0
	for _, v := range m {
		n += len(v)
	}
	return n
}
