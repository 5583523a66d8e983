package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// View type identifiers accepted by Run/IsTUISupported.
const (
	ViewLive     = "live"
	ViewTimeline = "timeline"
)

// IsTUISupported reports whether viewType has a TUI model.
func IsTUISupported(viewType string) bool {
	switch viewType {
	case ViewLive, ViewTimeline:
		return true
	default:
		return false
	}
}

// SupportedTUIViews lists every view type accepted by Run.
func SupportedTUIViews() []string {
	return []string{ViewLive, ViewTimeline}
}

// Run starts the Bubble Tea program for viewType over data.
func Run(viewType string, data any) error {
	model, err := newModel(viewType, data)
	if err != nil {
		return err
	}
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func newModel(viewType string, data any) (tea.Model, error) {
	switch viewType {
	case ViewLive:
		snap, ok := data.(LiveSnapshot)
		if !ok {
			return nil, fmt.Errorf("tui: live view requires a LiveSnapshot, got %T", data)
		}
		return NewLiveModel(snap), nil
	case ViewTimeline:
		tl, ok := data.(Timeline)
		if !ok {
			return nil, fmt.Errorf("tui: timeline view requires a Timeline, got %T", data)
		}
		return NewTimelineModel(tl), nil
	default:
		return nil, fmt.Errorf("tui: unknown view type: %s", viewType)
	}
}
