package main

import "testing"

func TestZoneAt(t *testing.T) {
	tests := []struct {
		x    int
		want clickZone
	}{
		{0, zoneLeft},
		{199, zoneLeft},
		{200, zoneCenter},
		{400, zoneCenter},
		{600, zoneCenter},
		{601, zoneRight},
		{799, zoneRight},
	}
	for _, tt := range tests {
		if got := zoneAt(tt.x, 800); got != tt.want {
			t.Errorf("zoneAt(%d, 800) = %v, want %v", tt.x, got, tt.want)
		}
	}
}

func TestZoneAction(t *testing.T) {
	tests := map[clickZone]string{
		zoneLeft:   "page_left",
		zoneCenter: "info",
		zoneRight:  "page_right",
	}
	descriptions := GetActionDescriptions()
	for zone, want := range tests {
		got := zoneAction(zone)
		if got != want {
			t.Errorf("zoneAction(%v) = %q, want %q", zone, got, want)
		}
		if descriptions[got] == "" {
			t.Errorf("zoneAction(%v) = %q is not a defined action", zone, got)
		}
	}
}

func TestWheelAccumulator(t *testing.T) {
	var w wheelAccumulator
	steps := []struct {
		dy   float64
		want int
	}{
		{0.5, 0},
		{0.6, 1},
		{3, 3},
		{-1.2, -1},
		{-0.05, 0},
	}
	for i, s := range steps {
		if got := w.add(s.dy); got != s.want {
			t.Errorf("step %d: add(%v) = %d, want %d", i, s.dy, got, s.want)
		}
	}
}

func TestDefaultMouseSettings(t *testing.T) {
	s := GetDefaultMouseSettings()
	if !s.EnableMouse || s.WheelSensitivity != 1.0 || s.WheelInverted || s.DragThreshold != 5 {
		t.Errorf("unexpected defaults: %+v", s)
	}
}
