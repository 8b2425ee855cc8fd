package main

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// MouseSettings contains mouse-specific configuration
type MouseSettings struct {
	EnableMouse      bool    `mapstructure:"enable_mouse" json:"enable_mouse"`
	WheelSensitivity float64 `mapstructure:"wheel_sensitivity" json:"wheel_sensitivity"`
	WheelInverted    bool    `mapstructure:"wheel_inverted" json:"wheel_inverted"`
	DragThreshold    int     `mapstructure:"drag_threshold" json:"drag_threshold"` // pixels
}

// GetDefaultMouseSettings returns the default mouse settings
func GetDefaultMouseSettings() MouseSettings {
	return MouseSettings{
		EnableMouse:      true,
		WheelSensitivity: 1.0,
		WheelInverted:    false,
		DragThreshold:    5,
	}
}

type clickZone int

const (
	zoneLeft clickZone = iota
	zoneCenter
	zoneRight
)

// zoneAt splits the window into a left quarter, a centre half and a right
// quarter.
func zoneAt(x, width int) clickZone {
	switch {
	case float64(x) < float64(width)*0.25:
		return zoneLeft
	case float64(x) > float64(width)*0.75:
		return zoneRight
	default:
		return zoneCenter
	}
}

// zoneAction returns the action for a click in z. Side zones map to the
// directional page actions, which follow manga mode.
func zoneAction(z clickZone) string {
	switch z {
	case zoneLeft:
		return "page_left"
	case zoneRight:
		return "page_right"
	default:
		return "info"
	}
}

// wheelAccumulator turns fractional wheel movement into whole steps.
type wheelAccumulator struct {
	acc float64
}

// add records dy and returns the number of whole steps, positive for
// scrolling up.
func (w *wheelAccumulator) add(dy float64) int {
	w.acc += dy
	steps := int(w.acc)
	w.acc -= float64(steps)
	return steps
}

// MouseHandler turns clicks, drags and wheel movement into actions
type MouseHandler struct {
	settings MouseSettings
	wheel    wheelAccumulator

	pressed      bool
	dragged      bool
	startX       int
	startY       int
	lastX, lastY int
}

// NewMouseHandler creates a new MouseHandler
func NewMouseHandler(settings MouseSettings) *MouseHandler {
	return &MouseHandler{settings: settings}
}

// UpdateSettings updates the mouse settings
func (m *MouseHandler) UpdateSettings(settings MouseSettings) {
	m.settings = settings
}

// HandleMouse processes mouse input for the current frame
func (m *MouseHandler) HandleMouse(inputActions InputActions, inputState InputState) bool {
	if !m.settings.EnableMouse {
		return false
	}
	processed := m.handleWheel(inputActions)
	return m.handleButton(inputActions, inputState) || processed
}

func (m *MouseHandler) handleWheel(inputActions InputActions) bool {
	_, dy := ebiten.Wheel()
	if dy == 0 {
		return false
	}
	if m.settings.WheelInverted {
		dy = -dy
	}
	steps := m.wheel.add(dy * m.settings.WheelSensitivity)
	if steps == 0 {
		return false
	}
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControl)
	for ; steps > 0; steps-- {
		if ctrl {
			inputActions.ZoomIn()
		} else {
			inputActions.NavigatePrevious()
		}
	}
	for ; steps < 0; steps++ {
		if ctrl {
			inputActions.ZoomOut()
		} else {
			inputActions.NavigateNext()
		}
	}
	return true
}

// handleButton pans while the left button is dragged over a pannable page and
// treats a release without drag as a click.
func (m *MouseHandler) handleButton(inputActions InputActions, inputState InputState) bool {
	x, y := ebiten.CursorPosition()

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		m.pressed = true
		m.dragged = false
		m.startX, m.startY = x, y
		m.lastX, m.lastY = x, y
		return false
	}
	if !m.pressed {
		return false
	}

	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		if !inputState.IsPannable() {
			return false
		}
		dx, dy := x-m.lastX, y-m.lastY
		m.lastX, m.lastY = x, y
		if abs(x-m.startX) > m.settings.DragThreshold || abs(y-m.startY) > m.settings.DragThreshold {
			m.dragged = true
		}
		if dx != 0 || dy != 0 {
			inputActions.PanByDelta(float64(dx), float64(dy))
			return true
		}
		return false
	}

	// Released.
	m.pressed = false
	if m.dragged {
		return false
	}
	if inputState.IsPannable() {
		return ExecuteAction("info", inputActions, inputState)
	}
	width, _ := inputState.GetScreenSize()
	return ExecuteAction(zoneAction(zoneAt(x, width)), inputActions, inputState)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
