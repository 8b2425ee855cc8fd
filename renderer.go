package main

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
)

// Common colors used in rendering
var (
	colorWhite     = color.RGBA{255, 255, 255, 255}
	colorGray      = color.RGBA{180, 180, 180, 255}
	colorLightGray = color.RGBA{192, 192, 192, 255}
	colorYellow    = color.RGBA{255, 255, 100, 255}
	colorCyan      = color.RGBA{100, 255, 255, 255}
	colorLightBlue = color.RGBA{200, 200, 255, 255}
	colorGreen     = color.RGBA{100, 255, 100, 255}
	colorOrange    = color.RGBA{255, 200, 100, 255}
	colorLightRed  = color.RGBA{255, 150, 150, 255}

	// Background colors for semi-transparent overlays
	bgColorLight  = color.RGBA{0, 0, 0, 128}
	bgColorMedium = color.RGBA{0, 0, 0, 160}
	bgColorDark   = color.RGBA{0, 0, 0, 200}
)

// Mouse controls are fixed; they are listed in the help after the keys.
var mouseHelp = [][2]string{
	{"Click left/right edge", "Page on that side"},
	{"Click centre", "Show/hide page indicator"},
	{"Wheel", "Previous/next page"},
	{"Ctrl+Wheel", "Zoom"},
	{"Drag", "Pan a zoomed page"},
}

const (
	helpPadding     = 40.0
	maxHelpWarnings = 2
)

// Renderer handles all drawing operations
type Renderer struct {
	renderState RenderState
}

// NewRenderer creates a new Renderer
func NewRenderer(renderState RenderState) *Renderer {
	return &Renderer{renderState: renderState}
}

// Draw renders the entire screen
func (r *Renderer) Draw(screen *ebiten.Image) {
	screen.Clear()

	left, right := r.renderState.GetSpread()
	if left != nil {
		r.drawSpread(screen, left, right)
	} else if img := r.renderState.GetErrorImage(); img != nil {
		r.drawSpread(screen, img, nil)
	}

	if r.renderState.IsShowingInfo() {
		r.drawInfoDisplay(screen)
	}
	if r.renderState.IsShowingHelp() {
		r.drawHelpOverlay(screen)
	}
	if r.renderState.IsInPageInputMode() {
		r.drawPageInputOverlay(screen)
	}
	if msg, at := r.renderState.GetOverlayMessage(); msg != "" && time.Since(at) < overlayMessageDuration {
		r.drawOverlayMessage(screen, msg)
	}
}

// spreadSize returns the unscaled size of one or two pages side by side.
func spreadSize(left, right *ebiten.Image) (float64, float64) {
	if left == nil {
		return 0, 0
	}
	w, h := left.Bounds().Dx(), left.Bounds().Dy()
	if right != nil {
		w += imageGap + right.Bounds().Dx()
		h = max(h, right.Bounds().Dy())
	}
	return float64(w), float64(h)
}

// spreadScale returns the scale the spread is drawn at in a w x h window.
func spreadScale(state RenderState, cw, ch, w, h float64) float64 {
	return fitScale(state.GetFitMode(), cw, ch, w, h, state.IsFullscreen()) * state.GetZoomLevel()
}

// drawSpread draws one page, or two pages vertically centred against each
// other, scaled and panned as a unit.
func (r *Renderer) drawSpread(screen, left, right *ebiten.Image) {
	w, h := float64(screen.Bounds().Dx()), float64(screen.Bounds().Dy())
	cw, ch := spreadSize(left, right)
	scale := spreadScale(r.renderState, cw, ch, w, h)

	panX, panY := r.renderState.GetPanOffset()
	x := panOffset(cw*scale, w, panX)
	y := panOffset(ch*scale, h, panY)

	r.drawPage(screen, left, x, y, ch, scale)
	if right != nil {
		x += float64(left.Bounds().Dx()+imageGap) * scale
		r.drawPage(screen, right, x, y, ch, scale)
	}
}

func (r *Renderer) drawPage(screen, img *ebiten.Image, x, y, spreadH, scale float64) {
	ih := float64(img.Bounds().Dy())
	op := &ebiten.DrawImageOptions{}
	op.Filter = ebiten.FilterLinear
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(x, y+(spreadH-ih)/2*scale)
	screen.DrawImage(img, op)
}

// helpRow is one line of the controls table
type helpRow struct {
	name, input, desc string
	inputColor        color.RGBA
}

func (r *Renderer) helpRows() []helpRow {
	keybindings := r.renderState.GetKeybindings()
	rows := make([]helpRow, 0, len(actionDefinitions)+len(mouseHelp))
	for _, def := range actionDefinitions {
		keys := keybindings[def.Name]
		if len(keys) == 0 {
			continue
		}
		rows = append(rows, helpRow{def.Name, strings.Join(keys, ", "), def.Description, colorYellow})
	}
	for _, m := range mouseHelp {
		rows = append(rows, helpRow{"mouse", m[0], m[1], colorCyan})
	}
	return rows
}

// helpLayout holds column positions for a font size
type helpLayout struct {
	face          *text.GoTextFace
	lineHeight    float64
	nameX, arrowX float64
	inputX, descX float64
	width, height float64
}

func (r *Renderer) layoutHelp(fontSize float64, rows []helpRow, warnings int) helpLayout {
	l := helpLayout{face: newFace(fontSize), lineHeight: fontSize * 1.5}
	if l.face == nil {
		return l
	}

	var nameW, inputW, descW float64
	for _, row := range rows {
		nw, _ := text.Measure(row.name, l.face, 0)
		iw, _ := text.Measure(row.input, l.face, 0)
		dw, _ := text.Measure(row.desc, l.face, 0)
		nameW, inputW, descW = max(nameW, nw), max(inputW, iw), max(descW, dw)
	}

	l.nameX = helpPadding + 40
	l.arrowX = l.nameX + nameW + 20
	l.inputX = l.arrowX + 30
	l.descX = l.inputX + inputW + 20
	l.width = l.descX + descW + helpPadding*2

	// Title, controls title, rows, then the system section
	l.height = helpPadding*2 + fontSize*2 + l.lineHeight*1.5
	l.height += float64(len(rows)) * l.lineHeight
	l.height += l.lineHeight * float64(3+warnings)
	return l
}

func helpWarnings(status ConfigLoadResult) []string {
	warnings := status.Warnings
	if len(warnings) > maxHelpWarnings {
		warnings = warnings[:maxHelpWarnings]
	}
	out := make([]string, len(warnings))
	for i, w := range warnings {
		out[i] = "• " + truncate(w, 50)
	}
	return out
}

// calculateOptimalFontSize finds the largest font size that fits within the
// given dimensions, by binary search between 12 and the configured size.
func (r *Renderer) calculateOptimalFontSize(rows []helpRow, warnings int, availableWidth, availableHeight float64) (float64, bool) {
	fits := func(size float64) bool {
		l := r.layoutHelp(size, rows, warnings)
		return l.face != nil && l.width <= availableWidth+helpPadding*2 && l.height <= availableHeight+helpPadding*2
	}

	maxFontSize := r.renderState.GetFontSize()
	minFontSize := minHelpFontSize
	if !fits(minFontSize) {
		return minFontSize, false
	}
	if fits(maxFontSize) {
		return maxFontSize, true
	}

	low, high := minFontSize, maxFontSize
	for high-low > 0.5 {
		mid := (low + high) / 2
		if fits(mid) {
			low = mid
		} else {
			high = mid
		}
	}
	return low, true
}

func (r *Renderer) drawHelpOverlay(screen *ebiten.Image) {
	w, h := float64(screen.Bounds().Dx()), float64(screen.Bounds().Dy())
	configStatus := r.renderState.GetConfigStatus()
	warnings := helpWarnings(configStatus)
	rows := r.helpRows()

	fontSize, canFit := r.calculateOptimalFontSize(rows, len(warnings), w-helpPadding*2, h-helpPadding*2)
	if !canFit {
		r.drawMarginTooSmallMessage(screen)
		return
	}
	l := r.layoutHelp(fontSize, rows, len(warnings))

	DrawFilledRect(screen, 0, 0, w, h, bgColorLight)
	DrawFilledRect(screen, helpPadding, helpPadding, w-helpPadding*2, h-helpPadding*2, bgColorMedium)

	titleY := helpPadding + 30
	DrawText(screen, "HELP:", l.face, helpPadding+20, titleY, colorWhite)

	y := titleY + fontSize*2
	DrawText(screen, "Controls:", l.face, helpPadding+20, y, colorWhite)
	y += l.lineHeight * 1.5

	for _, row := range rows {
		DrawText(screen, row.name, l.face, l.nameX, y, colorLightBlue)
		DrawText(screen, "→", l.face, l.arrowX, y, colorWhite)
		DrawText(screen, row.input, l.face, l.inputX, y, row.inputColor)
		DrawText(screen, row.desc, l.face, l.descX, y, colorGray)
		y += l.lineHeight
	}

	y += l.lineHeight
	DrawText(screen, "System:", l.face, helpPadding+20, y, colorWhite)
	y += l.lineHeight

	statusColor := colorGreen
	if configStatus.Status == "Warning" || configStatus.Status == "Error" {
		statusColor = colorOrange
	}
	DrawText(screen, fmt.Sprintf("Config Status: %s", configStatus.Status), l.face, helpPadding+40, y, statusColor)
	y += l.lineHeight

	for _, warning := range warnings {
		DrawText(screen, warning, l.face, helpPadding+40, y, colorLightRed)
		y += l.lineHeight
	}
}

// drawMarginTooSmallMessage displays Fermat's margin joke when help cannot fit
func (r *Renderer) drawMarginTooSmallMessage(screen *ebiten.Image) {
	w, h := float64(screen.Bounds().Dx()), float64(screen.Bounds().Dy())
	DrawFilledRect(screen, 0, 0, w, h, bgColorLight)

	face := newFace(16)
	if face == nil {
		return
	}
	message := "Hanc marginis exiguitas non caperet."
	subtitle := "(This margin is too small to contain it.)"

	messageWidth, messageHeight := text.Measure(message, face, 0)
	subtitleWidth, _ := text.Measure(subtitle, face, 0)

	messageY := h/2 - messageHeight/2
	DrawText(screen, message, face, w/2-messageWidth/2, messageY, colorWhite)
	DrawText(screen, subtitle, face, w/2-subtitleWidth/2, messageY+messageHeight+10, colorGray)
}

func (r *Renderer) drawPageInputOverlay(screen *ebiten.Image) {
	w, h := float64(screen.Bounds().Dx()), float64(screen.Bounds().Dy())
	inputFace := newFace(r.renderState.GetFontSize())
	rangeFace := newFace(r.renderState.GetFontSize() * 0.8)
	if inputFace == nil {
		return
	}

	inputText := fmt.Sprintf("Go to page: %s_", r.renderState.GetPageInputBuffer())
	rangeText := fmt.Sprintf("(1-%d)", r.renderState.GetTotalPagesCount())

	inputWidth, inputHeight := text.Measure(inputText, inputFace, 0)
	rangeWidth, rangeHeight := text.Measure(rangeText, rangeFace, 0)

	padding := 20.0
	boxWidth := max(inputWidth, rangeWidth) + padding*2
	boxHeight := inputHeight + rangeHeight + 10 + padding*2
	boxX := (w - boxWidth) / 2
	boxY := (h - boxHeight) / 2

	DrawFilledRect(screen, boxX, boxY, boxWidth, boxHeight, bgColorDark)
	DrawText(screen, inputText, inputFace, boxX+(boxWidth-inputWidth)/2, boxY+padding, colorWhite)
	DrawText(screen, rangeText, rangeFace, boxX+(boxWidth-rangeWidth)/2, boxY+padding+inputHeight+10, colorLightGray)
}

// drawInfoDisplay draws the page indicator in the bottom right corner
func (r *Renderer) drawInfoDisplay(screen *ebiten.Image) {
	face := newFace(r.renderState.GetFontSize())
	if face == nil {
		return
	}
	infoText := r.renderState.GetPageIndicator()
	textWidth, textHeight := text.Measure(infoText, face, 0)

	padding, bgPadding := 10.0, 5.0
	textX := float64(screen.Bounds().Dx()) - textWidth - padding
	textY := float64(screen.Bounds().Dy()) - textHeight - padding

	DrawFilledRect(screen, textX-bgPadding, textY-bgPadding, textWidth+bgPadding*2, textHeight+bgPadding*2, bgColorLight)
	DrawText(screen, infoText, face, textX, textY, colorWhite)
}

func (r *Renderer) drawOverlayMessage(screen *ebiten.Image, message string) {
	face := newFace(r.renderState.GetFontSize())
	if face == nil {
		return
	}
	textWidth, textHeight := text.Measure(message, face, 0)

	padding := 20.0
	boxWidth := textWidth + padding*2
	boxHeight := textHeight + padding*2
	boxX := (float64(screen.Bounds().Dx()) - boxWidth) / 2
	boxY := (float64(screen.Bounds().Dy()) - boxHeight) / 2

	DrawFilledRect(screen, boxX, boxY, boxWidth, boxHeight, bgColorDark)
	DrawText(screen, message, face, boxX+padding, boxY+padding, colorWhite)
}
