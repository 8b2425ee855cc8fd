package main

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

const (
	// Overlay message display duration
	overlayMessageDuration = 2500 * time.Millisecond
)

// RenderState provides read-only access to game state for the renderer
type RenderState interface {
	IsFullscreen() bool

	// Pages in screen order; right is nil for a single page.
	GetSpread() (left, right *ebiten.Image)
	GetErrorImage() *ebiten.Image

	// UI state
	IsShowingHelp() bool
	IsShowingInfo() bool
	IsInPageInputMode() bool
	GetPageInputBuffer() string
	GetOverlayMessage() (string, time.Time)

	// Zoom and pan state
	GetFitMode() FitMode
	GetZoomLevel() float64
	GetPanOffset() (x, y float64)

	// Display data
	GetPageIndicator() string
	GetTotalPagesCount() int
	GetFontSize() float64
	GetConfigStatus() ConfigLoadResult
	GetKeybindings() map[string][]string
}

// InputActions provides action methods for the input handler
type InputActions interface {
	// Application control
	Exit()

	// Display toggles
	ToggleHelp()
	ToggleInfo()
	ToggleFullscreen()

	// Page input
	EnterPageInputMode()
	ExitPageInputMode()
	ProcessPageInput()
	UpdatePageInputBuffer(buffer string)

	// Reading settings
	ToggleTwoPage()
	ToggleManga()
	ToggleSmartCover()
	ToggleSmartSplit()
	CycleSortMethod()
	AdjustPrefetch(delta int)

	// Navigation
	NavigateNext()
	NavigatePrevious()
	NavigateSingle(delta int)
	JumpToPage(page int)
	ToggleBookmark()
	NextBookmark()

	// Zoom and pan actions
	CycleFitMode()
	ZoomIn()
	ZoomOut()
	ZoomReset()
	PanByDelta(deltaX, deltaY float64)

	// Messages
	ShowOverlayMessage(message string)

	GetTotalPagesCount() int
}

// InputState provides read-only access to input-related state
type InputState interface {
	IsInPageInputMode() bool
	GetPageInputBuffer() string
	IsManga() bool
	// IsPannable reports whether the shown pages overflow the window.
	IsPannable() bool
	GetScreenSize() (width, height int)
}
