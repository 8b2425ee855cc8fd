package main

import (
	"fmt"
	"math"
	"strings"
)

const (
	// Gap between pages of a spread
	imageGap = 10

	zoomStep = 1.25
	minZoom  = 0.1
	maxZoom  = 10.0

	// Keyboard pan distance in screen pixels
	panStep = 50.0
)

// FitMode selects how pages are scaled to the window
type FitMode int

const (
	FitBest     FitMode = iota // Whole page visible, never enlarged in a window
	FitWidth                   // Page width fills the window
	FitHeight                  // Page height fills the window
	FitOriginal                // One image pixel per screen pixel
)

var fitModeNames = [...]string{"best", "width", "height", "original"}

func (m FitMode) String() string {
	if m < 0 || int(m) >= len(fitModeNames) {
		return fitModeNames[FitBest]
	}
	return fitModeNames[m]
}

// Next returns the fit mode after m, wrapping around.
func (m FitMode) Next() FitMode {
	return FitMode((int(m) + 1) % len(fitModeNames))
}

// ParseFitMode maps a config name to a FitMode.
func ParseFitMode(s string) (FitMode, error) {
	if s == "" {
		return FitBest, nil
	}
	for i, name := range fitModeNames {
		if strings.EqualFold(s, name) {
			return FitMode(i), nil
		}
	}
	return FitBest, fmt.Errorf("unknown fit mode %q", s)
}

// fitScale returns the scale for content of size cw x ch in a w x h view.
// Best fit only enlarges small content when enlarge is set, as in fullscreen.
func fitScale(mode FitMode, cw, ch, w, h float64, enlarge bool) float64 {
	if cw <= 0 || ch <= 0 {
		return 1
	}
	switch mode {
	case FitWidth:
		return w / cw
	case FitHeight:
		return h / ch
	case FitOriginal:
		return 1
	}
	scale := math.Min(w/cw, h/ch)
	if !enlarge && scale > 1 {
		return 1
	}
	return scale
}

// clampZoom keeps a zoom factor within the supported range.
func clampZoom(z float64) float64 {
	return math.Max(minZoom, math.Min(maxZoom, z))
}

// panOffset positions content of length size in a view along one axis.
// Content smaller than the view is centred; larger content follows pan but
// never leaves a gap at either edge.
func panOffset(size, view, pan float64) float64 {
	centred := (view - size) / 2
	if size <= view {
		return centred
	}
	return math.Max(view-size, math.Min(0, centred+pan))
}

// clampPan limits a pan offset to the range that panOffset can show, so that
// dragging past an edge does not have to be undone.
func clampPan(size, view, pan float64) float64 {
	if size <= view {
		return 0
	}
	limit := (size - view) / 2
	return math.Max(-limit, math.Min(limit, pan))
}

// pageIndicator formats the 1-based position shown in the HUD.
func pageIndicator(current, partner, total int) string {
	if total <= 0 || current < 0 {
		return "0 / 0"
	}
	if partner >= 0 {
		lo, hi := min(current, partner), max(current, partner)
		return fmt.Sprintf("%d-%d / %d", lo+1, hi+1, total)
	}
	return fmt.Sprintf("%d / %d", current+1, total)
}

// spreadOrder places the current page and its partner on screen. Manga
// spreads read right to left, so the current page goes on the right.
func spreadOrder[T comparable](primary, secondary T, manga bool) (left, right T) {
	var zero T
	if secondary == zero {
		return primary, zero
	}
	if manga {
		return secondary, primary
	}
	return primary, secondary
}
