package tui

import "testing"

func TestIsTUISupported(t *testing.T) {
	tests := []struct {
		viewType string
		want     bool
	}{
		{ViewLive, true},
		{ViewTimeline, true},
		{"stats", false},
		{"unknown", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.viewType, func(t *testing.T) {
			if got := IsTUISupported(tt.viewType); got != tt.want {
				t.Errorf("IsTUISupported(%q) = %v, want %v", tt.viewType, got, tt.want)
			}
		})
	}
}

func TestSupportedTUIViews(t *testing.T) {
	views := SupportedTUIViews()
	if len(views) != 2 {
		t.Fatalf("expected 2 supported views, got %d", len(views))
	}
	for _, v := range views {
		if !IsTUISupported(v) {
			t.Errorf("SupportedTUIViews returned unsupported view %q", v)
		}
	}
}

func TestNewModel_UnknownViewType(t *testing.T) {
	if _, err := newModel("bogus", nil); err == nil {
		t.Fatal("expected error for unknown view type")
	}
}

func TestNewModel_WrongDataType(t *testing.T) {
	if _, err := newModel(ViewLive, "not a snapshot"); err == nil {
		t.Fatal("expected error for mismatched data type")
	}
	if _, err := newModel(ViewTimeline, 42); err == nil {
		t.Fatal("expected error for mismatched data type")
	}
}
