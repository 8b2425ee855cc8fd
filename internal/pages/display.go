package pages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultSkipDelay is how long a corrupt-page notice stays up before the
// next page is requested.
const DefaultSkipDelay = 300 * time.Millisecond

// Presenter receives the results of display requests. Methods may be called
// from any goroutine.
type Presenter interface {
	// PageReady hands over the handles to show. secondary is nil outside
	// two-page mode or when the page is shown alone.
	PageReady(primary, secondary Handle)
	Message(text string)
	CorruptSkip(pageNumber int)
	Boundary(b Boundary)
}

// Progress is the saved reading position of a document.
type Progress struct {
	LastPage   int
	TotalPages int
}

// ProgressStore persists reading positions by file key.
type ProgressStore interface {
	Progress(fileKey string) (Progress, bool)
	SaveProgress(fileKey, fileName string, pageIndex, totalPages int) error
}

// BookmarkStore persists bookmarked page indices by file key.
type BookmarkStore interface {
	ToggleBookmark(fileKey string, pageIndex int) (bool, error)
	Bookmarks(fileKey string) []int
}

// Document is an opened set of pages.
type Document struct {
	Key   string
	Name  string
	Pages []*Page
}

// Options configures a Display. Zero values select defaults.
type Options struct {
	Logger     *slog.Logger
	Metrics    Metrics
	SkipDelay  time.Duration
	Prefetcher *Prefetcher
	Progress   ProgressStore
	Bookmarks  BookmarkStore
	Mode       Mode
}

// Display turns page requests into presented pages. Each request moves
// through resolve, then ready, corrupt-skip or stale. Only the most recent
// request may reach the presenter.
type Display struct {
	reg       *Registry
	cache     *Cache
	decoder   *Decoder
	prefetch  *Prefetcher
	presenter Presenter
	progress  ProgressStore
	bookmarks BookmarkStore
	log       *slog.Logger
	skipDelay time.Duration

	seq atomic.Uint64
	// presentMu orders new requests, writes of the current index and
	// presentation, so a superseded request can do none of them.
	presentMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	mode     Mode
	fileKey  string
	fileName string
	corrupt  map[*Page]struct{}
}

// NewDisplay wires a display over the given registry, cache and decoder.
func NewDisplay(reg *Registry, cache *Cache, decoder *Decoder, presenter Presenter, opts Options) *Display {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SkipDelay <= 0 {
		opts.SkipDelay = DefaultSkipDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Display{
		reg:       reg,
		cache:     cache,
		decoder:   decoder,
		prefetch:  opts.Prefetcher,
		presenter: presenter,
		progress:  opts.Progress,
		bookmarks: opts.Bookmarks,
		log:       opts.Logger,
		skipDelay: opts.SkipDelay,
		ctx:       ctx,
		cancel:    cancel,
		mode:      opts.Mode,
		corrupt:   make(map[*Page]struct{}),
	}
	decoder.SetManga(opts.Mode.Manga)
	return d
}

// Stop cancels pending asynchronous requests and waits for them to return.
func (d *Display) Stop() {
	d.cancel()
	d.wg.Wait()
}

// Mode returns the current reading mode.
func (d *Display) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Current returns the current page index, or -1 with no document.
func (d *Display) Current() int { return d.reg.Current() }

// Len returns the number of pages in the open document.
func (d *Display) Len() int { return d.reg.Len() }

// Partner returns the index shown beside the current page, or -1.
func (d *Display) Partner() int {
	return SpreadPartner(d.reg.Current(), d.reg.Len(), d.Mode())
}

// FileKey returns the key of the open document.
func (d *Display) FileKey() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fileKey
}

// CorruptCount returns how many distinct corrupt pages were hit in the open
// document.
func (d *Display) CorruptCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.corrupt)
}

// Open replaces the current document and shows its first page, or the page
// saved in the progress store.
func (d *Display) Open(ctx context.Context, doc Document) error {
	start, err := d.load(doc)
	if err != nil {
		return err
	}
	return d.Show(ctx, start)
}

// OpenAsync is Open without waiting for the first page.
func (d *Display) OpenAsync(doc Document) {
	start, err := d.load(doc)
	if err != nil {
		return
	}
	d.Request(start)
}

func (d *Display) load(doc Document) (int, error) {
	d.presentMu.Lock()
	d.seq.Add(1)
	d.decoder.Reset()
	d.cache.Clear()
	d.reg.Load(doc.Pages)
	d.presentMu.Unlock()

	d.mu.Lock()
	d.fileKey = doc.Key
	d.fileName = doc.Name
	clear(d.corrupt)
	d.mu.Unlock()

	n := len(doc.Pages)
	if n == 0 {
		d.presenter.Message("No pages to display")
		d.log.Error("document has no pages", "file", doc.Name)
		return 0, ErrNoPages
	}

	start := 0
	if d.progress != nil {
		if pr, ok := d.progress.Progress(doc.Key); ok && pr.LastPage >= 0 && pr.LastPage < n {
			start = pr.LastPage
			d.log.Debug("resuming", "file", doc.Name, "page", start+1)
		}
	}
	d.log.Info("document opened", "file", doc.Name, "pages", n)
	return start, nil
}

// Close drops the open document and releases every cached handle.
func (d *Display) Close() {
	d.presentMu.Lock()
	d.seq.Add(1)
	d.decoder.Reset()
	d.cache.Clear()
	d.reg.Load(nil)
	d.presentMu.Unlock()
	d.mu.Lock()
	d.fileKey, d.fileName = "", ""
	clear(d.corrupt)
	d.mu.Unlock()
}

// Show displays the page at index and waits for the result. It returns
// ErrSuperseded if a newer request was made meanwhile and ErrNoPages for an
// empty document. Corrupt pages are skipped forward.
func (d *Display) Show(ctx context.Context, index int) error {
	seq := d.begin(index)
	return d.show(ctx, seq, index)
}

// Request is Show without waiting. It records the requested index as current
// before returning.
func (d *Display) Request(index int) {
	seq := d.begin(index)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		err := d.show(d.ctx, seq, index)
		switch {
		case err == nil, errors.Is(err, ErrSuperseded), errors.Is(err, context.Canceled):
		default:
			d.log.Debug("display request failed", "index", index, "error", err)
		}
	}()
}

func (d *Display) begin(index int) uint64 {
	d.presentMu.Lock()
	defer d.presentMu.Unlock()
	seq := d.seq.Add(1)
	if d.reg.Len() > 0 {
		d.reg.SetCurrent(index)
	}
	return seq
}

// moveTo makes index current unless seq has been superseded.
func (d *Display) moveTo(seq uint64, index int) bool {
	d.presentMu.Lock()
	defer d.presentMu.Unlock()
	if d.stale(seq) {
		return false
	}
	d.reg.SetCurrent(index)
	return true
}

func (d *Display) stale(seq uint64) bool {
	return d.seq.Load() != seq
}

func (d *Display) show(ctx context.Context, seq uint64, index int) error {
	atEnd := false
	for {
		n := d.reg.Len()
		if n == 0 {
			d.presenter.Message("No pages to display")
			return ErrNoPages
		}
		switch {
		case index < 0:
			index = 0
		case index > n-1:
			index = n - 1
			atEnd = true
		}

		mode := d.Mode()
		primary := d.reg.At(index)
		secondary := d.reg.At(SpreadPartner(index, n, mode))

		h1, h2, err := d.decodePair(ctx, primary, secondary)
		if d.stale(seq) {
			return ErrSuperseded
		}
		if err != nil {
			if !errors.Is(err, ErrCorruptPage) {
				return err
			}
			next, err := d.skip(ctx, seq, primary, index)
			if err != nil {
				return err
			}
			if !d.moveTo(seq, next) {
				return ErrSuperseded
			}
			index = next
			atEnd = false
			continue
		}

		// A split may have shifted the page or given it a new partner.
		if i := d.reg.IndexOf(primary); i >= 0 {
			index = i
		}
		if p := d.reg.At(SpreadPartner(index, d.reg.Len(), mode)); p != secondary {
			secondary, h2 = p, nil
			if p != nil {
				h2, _ = d.decoder.Decode(ctx, p)
			}
		}
		return d.present(seq, index, primary, secondary, h1, h2, atEnd)
	}
}

func (d *Display) decodePair(ctx context.Context, primary, secondary *Page) (Handle, Handle, error) {
	var h1, h2 Handle
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		h1, err = d.decoder.Decode(gctx, primary)
		return err
	})
	if secondary != nil {
		g.Go(func() error {
			// A bad partner page is left blank rather than skipped.
			h, err := d.decoder.Decode(gctx, secondary)
			if err == nil {
				h2 = h
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return h1, h2, nil
}

// skip reports a corrupt page and returns the index to try next after the
// skip delay. At the end of the document it reports the end boundary.
func (d *Display) skip(ctx context.Context, seq uint64, p *Page, index int) (int, error) {
	d.mu.Lock()
	d.corrupt[p] = struct{}{}
	d.mu.Unlock()

	d.log.Debug("skipping corrupt page", "page", index+1, "name", p.Name())
	d.presenter.CorruptSkip(index + 1)

	next := index + 1
	if i := d.reg.IndexOf(p); i >= 0 {
		next = i + 1
	}
	if next >= d.reg.Len() {
		d.presenter.Boundary(BoundaryEnd)
		return 0, fmt.Errorf("%w: no readable page after %d", ErrCorruptPage, index+1)
	}

	t := time.NewTimer(d.skipDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-t.C:
	}
	if d.stale(seq) {
		return 0, ErrSuperseded
	}
	return next, nil
}

func (d *Display) present(seq uint64, index int, primary, secondary *Page, h1, h2 Handle, atEnd bool) error {
	d.presentMu.Lock()
	if d.stale(seq) {
		d.presentMu.Unlock()
		return ErrSuperseded
	}
	d.reg.SetCurrent(index)
	if h2 == nil {
		secondary = nil
	}
	d.cache.SetShown(primary, secondary)
	d.presenter.PageReady(h1, h2)
	if atEnd {
		d.presenter.Boundary(BoundaryEnd)
	}
	d.presentMu.Unlock()

	d.saveProgress(index)
	if d.prefetch != nil {
		d.prefetch.Schedule(index)
	}
	return nil
}

func (d *Display) saveProgress(index int) {
	if d.progress == nil {
		return
	}
	d.mu.Lock()
	key, name := d.fileKey, d.fileName
	d.mu.Unlock()
	if key == "" {
		return
	}
	if err := d.progress.SaveProgress(key, name, index, d.reg.Len()); err != nil {
		d.log.Warn("saving progress failed", "file", name, "error", err)
	}
}

// Next requests the following page or spread. At the end it only reports
// the boundary.
func (d *Display) Next() {
	target, b := Next(d.reg.Current(), d.reg.Len(), d.Mode())
	if b != BoundaryNone {
		d.presenter.Boundary(b)
		return
	}
	d.Request(target)
}

// Prev requests the preceding page or spread. At the start it only reports
// the boundary.
func (d *Display) Prev() {
	target, b := Prev(d.reg.Current(), d.reg.Len(), d.Mode())
	if b != BoundaryNone {
		d.presenter.Boundary(b)
		return
	}
	d.Request(target)
}

// First requests the first page.
func (d *Display) First() { d.Request(0) }

// Last requests the last page.
func (d *Display) Last() { d.Request(d.reg.Len() - 1) }

// SetMode changes the reading mode and shows the current page again.
func (d *Display) SetMode(mode Mode) {
	d.mu.Lock()
	d.mode = mode
	d.mu.Unlock()
	d.decoder.SetManga(mode.Manga)
	if d.reg.Len() > 0 {
		d.Request(d.reg.Current())
	}
}

// SetSmartSplit enables splitting of wide pages from now on and shows the
// current page again.
func (d *Display) SetSmartSplit(on bool) {
	d.decoder.SetSmartSplit(on)
	if d.reg.Len() > 0 {
		d.Request(d.reg.Current())
	}
}

// Sort reorders the pages by cmp and keeps the current page on screen.
func (d *Display) Sort(cmp func(a, b *Page) int) error {
	if err := d.reg.SortFunc(cmp); err != nil {
		return err
	}
	if d.reg.Len() > 0 {
		d.Request(d.reg.Current())
	}
	return nil
}

// ToggleBookmark flips the bookmark on the current page and reports whether
// it is now set.
func (d *Display) ToggleBookmark() (bool, error) {
	if d.bookmarks == nil {
		return false, errors.New("pages: no bookmark store")
	}
	cur := d.reg.Current()
	if cur < 0 {
		return false, ErrNoPages
	}
	on, err := d.bookmarks.ToggleBookmark(d.FileKey(), cur)
	if err != nil {
		return false, err
	}
	if on {
		d.presenter.Message(fmt.Sprintf("Bookmarked page %d", cur+1))
	} else {
		d.presenter.Message(fmt.Sprintf("Removed bookmark on page %d", cur+1))
	}
	return on, nil
}

// NextBookmark requests the first bookmarked page after the current one,
// wrapping to the first bookmark. It returns false if there are none.
func (d *Display) NextBookmark() bool {
	if d.bookmarks == nil {
		return false
	}
	marks := d.bookmarks.Bookmarks(d.FileKey())
	n := d.reg.Len()
	cur := d.reg.Current()
	target := -1
	for _, m := range marks {
		if m < 0 || m >= n {
			continue
		}
		if target < 0 {
			target = m
		}
		if m > cur {
			target = m
			break
		}
	}
	if target < 0 {
		d.presenter.Message("No bookmarks")
		return false
	}
	d.Request(target)
	return true
}
