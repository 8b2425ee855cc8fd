package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"comet/internal/archive"
	"comet/internal/pages"
)

// Game is the ebiten front end of a pages.Display. Display callbacks arrive
// on worker goroutines and only touch the fields guarded by mu; everything
// else belongs to the ebiten goroutine. mu is never held while calling into
// the display, which may call back synchronously.
type Game struct {
	mu            sync.Mutex
	primary       *imageHandle
	secondary     *imageHandle
	pageChanged   bool
	message       string
	messageTime   time.Time
	pendingConfig *ConfigLoadResult

	opened bool
	quit   bool

	path     string
	doc      *archive.Document
	openErr  error
	display  *pages.Display
	prefetch *pages.Prefetcher
	log      *slog.Logger

	configs      *ConfigManager
	config       Config
	configStatus ConfigLoadResult

	mode       pages.Mode
	smartSplit bool
	sortMethod archive.SortMethod

	fitMode FitMode
	zoom    float64
	panX    float64
	panY    float64

	showHelp   bool
	showInfo   bool
	fullscreen bool
	savedWinW  int
	savedWinH  int

	pageInputMode   bool
	pageInputBuffer string

	screenW, screenH int
	errorImage       *ebiten.Image

	keys     *KeybindingManager
	mouse    *MouseHandler
	input    *InputHandler
	renderer *Renderer
}

// NewGame creates the front end for doc. openErr is shown instead of pages
// when the document could not be opened.
func NewGame(configs *ConfigManager, path string, doc *archive.Document, openErr error, prefetch *pages.Prefetcher, logger *slog.Logger) *Game {
	if logger == nil {
		logger = slog.Default()
	}
	status := configs.Get()
	cfg := status.Config
	g := &Game{
		path:         path,
		doc:          doc,
		openErr:      openErr,
		prefetch:     prefetch,
		log:          logger,
		configs:      configs,
		config:       cfg,
		configStatus: status,
		mode:         cfg.Mode(),
		smartSplit:   cfg.SmartSplit,
		sortMethod:   cfg.Sort(),
		fitMode:      cfg.Fit(),
		zoom:         1,
		showInfo:     true,
		fullscreen:   cfg.Fullscreen,
		keys:         NewKeybindingManager(cfg.Keybindings),
		mouse:        NewMouseHandler(cfg.Mouse),
	}
	g.input = NewInputHandler(g, g, g.keys, g.mouse)
	g.renderer = NewRenderer(g)
	if status.Status == "Warning" || status.Status == "Error" {
		g.ShowOverlayMessage(fmt.Sprintf("Config %s, press ? for details", status.Status))
	}
	return g
}

// Attach sets the display the game drives. It must be called before RunGame.
func (g *Game) Attach(d *pages.Display) {
	g.display = d
}

var (
	_ pages.Presenter = (*Game)(nil)
	_ RenderState     = (*Game)(nil)
	_ InputActions    = (*Game)(nil)
	_ InputState      = (*Game)(nil)
)

// PageReady implements pages.Presenter
func (g *Game) PageReady(primary, secondary pages.Handle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.primary = asImageHandle(primary)
	g.secondary = asImageHandle(secondary)
	g.pageChanged = true
}

// Message implements pages.Presenter
func (g *Game) Message(text string) {
	g.ShowOverlayMessage(text)
}

// CorruptSkip implements pages.Presenter
func (g *Game) CorruptSkip(pageNumber int) {
	g.ShowOverlayMessage(fmt.Sprintf("Error: Corrupted image data at page %d", pageNumber))
}

// Boundary implements pages.Presenter
func (g *Game) Boundary(b pages.Boundary) {
	switch b {
	case pages.BoundaryEnd:
		g.ShowOverlayMessage("You are at the end.")
	case pages.BoundaryStart:
		g.ShowOverlayMessage("You are at the beginning.")
	}
}

// ConfigChanged queues a reloaded config for the next frame.
func (g *Game) ConfigChanged(result ConfigLoadResult) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pendingConfig = &result
}

func (g *Game) Update() error {
	if g.quit {
		return ebiten.Termination
	}

	if !g.opened {
		g.opened = true
		if g.doc != nil && g.display != nil {
			ebiten.SetWindowTitle(fmt.Sprintf("%s - comet", g.doc.Name))
			g.display.OpenAsync(g.doc.PageDocument())
		}
	}

	g.mu.Lock()
	pending := g.pendingConfig
	g.pendingConfig = nil
	changed := g.pageChanged
	g.pageChanged = false
	g.mu.Unlock()

	if pending != nil {
		g.applyConfig(*pending)
	}
	if changed {
		g.resetPan()
	}

	g.input.HandleInput()

	if g.quit {
		return ebiten.Termination
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	g.renderer.Draw(screen)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.screenW, g.screenH = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}

// applyConfig applies a config reloaded from disk. The cache size only takes
// effect on the next start.
func (g *Game) applyConfig(result ConfigLoadResult) {
	cfg := result.Config
	g.configStatus = result
	g.config.HelpFontSize = cfg.HelpFontSize
	g.config.Keybindings = cfg.Keybindings
	g.config.Mouse = cfg.Mouse
	g.keys.UpdateKeybindings(cfg.Keybindings)
	g.mouse.UpdateSettings(cfg.Mouse)

	if g.prefetch != nil {
		g.prefetch.SetDepth(cfg.PrefetchDepth)
	}
	g.fitMode = cfg.Fit()

	if mode := cfg.Mode(); mode != g.mode {
		g.mode = mode
		if g.display != nil {
			g.display.SetMode(mode)
		}
	}
	if cfg.SmartSplit != g.smartSplit {
		g.smartSplit = cfg.SmartSplit
		if g.display != nil {
			g.display.SetSmartSplit(cfg.SmartSplit)
		}
	}
	if m := cfg.Sort(); m != g.sortMethod {
		g.applySort(m)
	}

	g.log.Info("config reloaded", "status", result.Status, "warnings", len(result.Warnings))
	if result.Status == "Warning" || result.Status == "Error" {
		g.ShowOverlayMessage(fmt.Sprintf("Config %s, press ? for details", result.Status))
	} else {
		g.ShowOverlayMessage("Config reloaded")
	}
}

// saveConfig writes the current settings and window size back to the config
// file.
func (g *Game) saveConfig() {
	cfg := g.config
	if g.fullscreen {
		// Save the size from before fullscreen
		if g.savedWinW > 0 && g.savedWinH > 0 {
			cfg.WindowWidth, cfg.WindowHeight = g.savedWinW, g.savedWinH
		}
	} else {
		cfg.WindowWidth, cfg.WindowHeight = ebiten.WindowSize()
	}
	cfg.Fullscreen = g.fullscreen
	cfg.TwoPage = g.mode.TwoPage
	cfg.RightToLeft = g.mode.Manga
	cfg.SmartCover = g.mode.SmartCover
	cfg.SmartSplit = g.smartSplit
	cfg.SortMethod = sortMethodName(g.sortMethod)
	cfg.FitMode = g.fitMode.String()
	if g.prefetch != nil {
		cfg.PrefetchDepth = g.prefetch.Depth()
	}

	if err := g.configs.Save(cfg); err != nil {
		g.log.Warn("saving config failed", "error", err)
	}
}

func (g *Game) handles() (primary, secondary *imageHandle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.primary, g.secondary
}

func (g *Game) hasDocument() bool {
	return g.doc != nil && g.display != nil
}

// RenderState

func (g *Game) IsFullscreen() bool { return g.fullscreen }

func (g *Game) GetSpread() (left, right *ebiten.Image) {
	primary, secondary := g.handles()
	p := primary.Image()
	if p == nil {
		return nil, nil
	}
	return spreadOrder(p, secondary.Image(), g.mode.Manga)
}

func (g *Game) GetErrorImage() *ebiten.Image {
	if g.openErr == nil {
		return nil
	}
	if g.errorImage == nil {
		g.errorImage = CreateErrorImage(g.screenW/2, g.screenH/2, g.path, g.openErr.Error())
	}
	return g.errorImage
}

func (g *Game) IsShowingHelp() bool        { return g.showHelp }
func (g *Game) IsShowingInfo() bool        { return g.showInfo }
func (g *Game) IsInPageInputMode() bool    { return g.pageInputMode }
func (g *Game) GetPageInputBuffer() string { return g.pageInputBuffer }
func (g *Game) GetFitMode() FitMode        { return g.fitMode }
func (g *Game) GetZoomLevel() float64      { return g.zoom }
func (g *Game) GetFontSize() float64       { return g.config.HelpFontSize }

func (g *Game) GetOverlayMessage() (string, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.message, g.messageTime
}

func (g *Game) GetPanOffset() (x, y float64) { return g.panX, g.panY }

// GetPageIndicator formats the shown pages, plus a note when corrupt pages
// were skipped.
func (g *Game) GetPageIndicator() string {
	if !g.hasDocument() {
		return pageIndicator(-1, -1, 0)
	}
	partner := -1
	if _, secondary := g.handles(); secondary.Image() != nil {
		partner = g.display.Partner()
	}
	s := pageIndicator(g.display.Current(), partner, g.display.Len())
	if n := g.display.CorruptCount(); n > 0 {
		s += fmt.Sprintf(" (%d corrupt)", n)
	}
	return s
}

func (g *Game) GetTotalPagesCount() int {
	if !g.hasDocument() {
		return 0
	}
	return g.display.Len()
}

func (g *Game) GetConfigStatus() ConfigLoadResult   { return g.configStatus }
func (g *Game) GetKeybindings() map[string][]string { return g.keys.GetKeybindings() }

// InputState

func (g *Game) IsManga() bool { return g.mode.Manga }

func (g *Game) GetScreenSize() (width, height int) { return g.screenW, g.screenH }

// spreadExtent returns the on-screen size of the shown pages.
func (g *Game) spreadExtent() (float64, float64, bool) {
	left, right := g.GetSpread()
	if left == nil {
		return 0, 0, false
	}
	cw, ch := spreadSize(left, right)
	scale := spreadScale(g, cw, ch, float64(g.screenW), float64(g.screenH))
	return cw * scale, ch * scale, true
}

func (g *Game) IsPannable() bool {
	w, h, ok := g.spreadExtent()
	return ok && (w > float64(g.screenW) || h > float64(g.screenH))
}

// InputActions

func (g *Game) Exit() {
	g.quit = true
}

func (g *Game) ToggleHelp() {
	g.showHelp = !g.showHelp
}

func (g *Game) ToggleInfo() {
	g.showInfo = !g.showInfo
}

func (g *Game) ToggleFullscreen() {
	g.fullscreen = !g.fullscreen
	if g.fullscreen {
		g.savedWinW, g.savedWinH = ebiten.WindowSize()
		ebiten.SetFullscreen(true)
	} else {
		ebiten.SetFullscreen(false)
		if g.savedWinW > 0 && g.savedWinH > 0 {
			ebiten.SetWindowSize(g.savedWinW, g.savedWinH)
		}
	}
}

func (g *Game) EnterPageInputMode() {
	if !g.hasDocument() || g.display.Len() == 0 {
		return
	}
	g.pageInputMode = true
	g.pageInputBuffer = ""
}

func (g *Game) ExitPageInputMode() {
	g.pageInputMode = false
	g.pageInputBuffer = ""
}

func (g *Game) UpdatePageInputBuffer(buffer string) {
	g.pageInputBuffer = buffer
}

// ProcessPageInput jumps to the typed 1-based page number.
func (g *Game) ProcessPageInput() {
	buffer := g.pageInputBuffer
	g.ExitPageInputMode()
	if buffer == "" {
		return
	}
	total := g.GetTotalPagesCount()
	n, err := strconv.Atoi(buffer)
	if err != nil || n < 1 || n > total {
		g.ShowOverlayMessage(fmt.Sprintf("Invalid page: %s (1-%d)", buffer, total))
		return
	}
	g.JumpToPage(n)
}

func (g *Game) toggleMode(update func(*pages.Mode), label string, on func(pages.Mode) bool) {
	update(&g.mode)
	if g.hasDocument() {
		g.display.SetMode(g.mode)
	}
	g.ShowOverlayMessage(fmt.Sprintf("%s: %s", label, onOff(on(g.mode))))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (g *Game) ToggleTwoPage() {
	g.toggleMode(func(m *pages.Mode) { m.TwoPage = !m.TwoPage }, "Two-page mode",
		func(m pages.Mode) bool { return m.TwoPage })
}

func (g *Game) ToggleManga() {
	g.toggleMode(func(m *pages.Mode) { m.Manga = !m.Manga }, "Manga mode",
		func(m pages.Mode) bool { return m.Manga })
}

func (g *Game) ToggleSmartCover() {
	g.toggleMode(func(m *pages.Mode) { m.SmartCover = !m.SmartCover }, "Cover alone",
		func(m pages.Mode) bool { return m.SmartCover })
}

func (g *Game) ToggleSmartSplit() {
	g.smartSplit = !g.smartSplit
	if g.hasDocument() {
		g.display.SetSmartSplit(g.smartSplit)
	}
	g.ShowOverlayMessage("Split wide pages: " + onOff(g.smartSplit))
}

func (g *Game) CycleSortMethod() {
	g.applySort(archive.NextSortMethod(g.sortMethod))
}

func (g *Game) applySort(m archive.SortMethod) {
	g.sortMethod = m
	strategy := archive.GetSortStrategy(m)
	if g.hasDocument() {
		if err := g.display.Sort(g.doc.Compare(strategy)); err != nil && !errors.Is(err, pages.ErrNoPages) {
			g.log.Warn("sorting pages failed", "method", strategy.Name(), "error", err)
		}
	}
	g.ShowOverlayMessage("Sort: " + strategy.Name())
}

func (g *Game) AdjustPrefetch(delta int) {
	if g.prefetch == nil {
		return
	}
	g.prefetch.SetDepth(g.prefetch.Depth() + delta)
	g.ShowOverlayMessage(fmt.Sprintf("Prefetch: %d pages", g.prefetch.Depth()))
}

func (g *Game) NavigateNext() {
	if g.hasDocument() {
		g.display.Next()
	}
}

func (g *Game) NavigatePrevious() {
	if g.hasDocument() {
		g.display.Prev()
	}
}

// NavigateSingle moves by delta pages regardless of two-page mode.
func (g *Game) NavigateSingle(delta int) {
	if !g.hasDocument() || g.display.Len() == 0 {
		return
	}
	target := g.display.Current() + delta
	switch {
	case target < 0:
		g.Boundary(pages.BoundaryStart)
	case target >= g.display.Len():
		g.Boundary(pages.BoundaryEnd)
	default:
		g.display.Request(target)
	}
}

// JumpToPage shows the 1-based page number.
func (g *Game) JumpToPage(page int) {
	if !g.hasDocument() || page < 1 || page > g.display.Len() {
		return
	}
	g.display.Request(page - 1)
}

func (g *Game) ToggleBookmark() {
	if !g.hasDocument() {
		return
	}
	if _, err := g.display.ToggleBookmark(); err != nil {
		g.log.Warn("toggling bookmark failed", "error", err)
		g.ShowOverlayMessage("Bookmark not saved")
	}
}

func (g *Game) NextBookmark() {
	if !g.hasDocument() {
		return
	}
	if !g.display.NextBookmark() {
		g.ShowOverlayMessage("No bookmarks")
	}
}

func (g *Game) CycleFitMode() {
	g.fitMode = g.fitMode.Next()
	g.zoom = 1
	g.resetPan()
	g.ShowOverlayMessage("Fit: " + g.fitMode.String())
}

func (g *Game) setZoom(z float64) {
	g.zoom = clampZoom(z)
	g.clampPanToView()
	g.ShowOverlayMessage(fmt.Sprintf("Zoom: %.0f%%", g.zoom*100))
}

func (g *Game) ZoomIn()  { g.setZoom(g.zoom * zoomStep) }
func (g *Game) ZoomOut() { g.setZoom(g.zoom / zoomStep) }

func (g *Game) ZoomReset() {
	g.zoom = 1
	g.resetPan()
	g.ShowOverlayMessage("Zoom: 100%")
}

func (g *Game) PanByDelta(deltaX, deltaY float64) {
	g.panX += deltaX
	g.panY += deltaY
	g.clampPanToView()
}

func (g *Game) clampPanToView() {
	w, h, ok := g.spreadExtent()
	if !ok {
		g.panX, g.panY = 0, 0
		return
	}
	g.panX = clampPan(w, float64(g.screenW), g.panX)
	g.panY = clampPan(h, float64(g.screenH), g.panY)
}

// resetPan shows the top of a new page at its leading edge: the left side, or
// the right side in manga mode.
func (g *Game) resetPan() {
	g.panX, g.panY = math.Inf(1), math.Inf(1)
	if g.mode.Manga {
		g.panX = math.Inf(-1)
	}
	g.clampPanToView()
}

func (g *Game) ShowOverlayMessage(message string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.message = message
	g.messageTime = time.Now()
}
