package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/justapithecus/tracewatch/event"
)

// Timeline is the payload the "timeline" view renders: a single actor's
// ordered state_timeline, as state_evolution-style history.
type Timeline struct {
	Actor  event.ActorHandle
	Events []*event.Event
}

// TimelineModel is a Bubble Tea model stepping through one actor's ordered
// state-transition history.
type TimelineModel struct {
	data     Timeline
	cursor   int
	width    int
	height   int
	quitting bool
}

// NewTimelineModel creates a TimelineModel over tl.
func NewTimelineModel(tl Timeline) TimelineModel {
	return TimelineModel{data: tl, cursor: len(tl.Events) - 1}
}

// Init implements tea.Model.
func (m TimelineModel) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m TimelineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.cursor < len(m.data.Events)-1 {
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
func (m TimelineModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("State Timeline: %s", m.data.Actor.String())))
	b.WriteString("\n\n")

	if len(m.data.Events) == 0 {
		b.WriteString(ValueStyle.Render("(no state events observed)"))
	} else {
		for i, e := range m.data.Events {
			line := m.renderRow(e)
			if i == m.cursor {
				line = SelectedStyle.Render("> " + line)
			} else {
				line = "  " + line
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
		b.WriteString(m.renderDetail(m.data.Events[m.cursor]))
	}

	help := HelpStyle.Render("↑/↓ step through history · q quit")
	return BoxStyle.Render(b.String()) + "\n" + help
}

func (m TimelineModel) renderRow(e *event.Event) string {
	if e.State == nil {
		return fmt.Sprintf("#%d %s", e.ID, e.Timestamp.Format("15:04:05.000"))
	}
	return fmt.Sprintf("#%d %s  %s/%s", e.ID, e.Timestamp.Format("15:04:05.000"), e.State.Module, e.State.Callback)
}

func (m TimelineModel) renderDetail(e *event.Event) string {
	if e.State == nil {
		return ""
	}
	return LabelStyle.Render("State:") + " " + ValueStyle.Render(e.State.State)
}
