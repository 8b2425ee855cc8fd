// Package pages implements page loading for the reader: a registry of lazily
// decoded pages, a bounded handle cache, a de-duplicating decoder, background
// prefetching and the display state machine that ties them together.
package pages

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Sentinel errors returned by the pages package.
var (
	// ErrCorruptPage indicates a page failed to decode. Failures are permanent.
	ErrCorruptPage = errors.New("pages: corrupt page")

	// ErrNoPages indicates the document has no displayable pages.
	ErrNoPages = errors.New("pages: no pages to display")

	// ErrSuperseded indicates a display request was discarded because a newer
	// request was made while it was loading.
	ErrSuperseded = errors.New("pages: request superseded")
)

// DecodeFunc produces the raw image bytes for a page.
type DecodeFunc func(ctx context.Context) ([]byte, error)

// State is the decode state of a page.
type State int

const (
	StatePending State = iota
	StateReady
	StateCorrupt
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateCorrupt:
		return "corrupt"
	default:
		return "pending"
	}
}

// Page is one page of the open document.
//
// A page is either regenerable (it has a decode function and its bytes can be
// dropped and produced again) or pinned (its bytes were attached at creation
// and must be kept for the lifetime of the document).
type Page struct {
	id     string
	name   string
	decode DecodeFunc

	mu      sync.Mutex
	data    []byte
	decoded bool
	corrupt bool

	// split is set once a wide page has been cut in two; later re-decodes
	// keep only the first half.
	split      bool
	splitRight bool
}

// NewPage creates a page that decodes lazily through fn.
func NewPage(name string, fn DecodeFunc) *Page {
	return &Page{id: uuid.NewString(), name: name, decode: fn}
}

// NewPinnedPage creates a page whose bytes are already available.
// Pinned pages are never released by the cache.
func NewPinnedPage(name string, data []byte) *Page {
	return &Page{id: uuid.NewString(), name: name, data: data}
}

// ID returns the unique identity of the page.
func (p *Page) ID() string { return p.id }

// Name returns the archive path or synthetic name of the page.
func (p *Page) Name() string { return p.name }

// Pinned reports whether the page has no decode function.
func (p *Page) Pinned() bool { return p.decode == nil }

// State returns the current decode state.
func (p *Page) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.corrupt:
		return StateCorrupt
	case p.decoded:
		return StateReady
	default:
		return StatePending
	}
}

// Decoded reports whether the page currently has a live handle.
func (p *Page) Decoded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.decoded
}

// Corrupt reports whether decoding this page has failed.
func (p *Page) Corrupt() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.corrupt
}

func (p *Page) markCorrupt() {
	p.mu.Lock()
	p.corrupt = true
	p.decoded = false
	p.data = nil
	p.mu.Unlock()
}

func (p *Page) markDecoded(data []byte) {
	p.mu.Lock()
	p.decoded = true
	p.data = data
	p.mu.Unlock()
}

// release drops the bytes of a regenerable page so they can be collected.
// Pinned pages keep their bytes.
func (p *Page) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.decoded = false
	if p.decode != nil {
		p.data = nil
	}
}

func (p *Page) pinnedData() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data
}

func (p *Page) splitState() (split, right bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.split, p.splitRight
}

// markSplit records that the page was split. It returns false if another
// caller already did.
func (p *Page) markSplit(right bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.split {
		return false
	}
	p.split = true
	p.splitRight = right
	return true
}
