package pages

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Decoder is the single path through which page bytes become cached handles.
// Foreground display and background prefetch both go through Decode, so a
// page is never decoded twice concurrently.
type Decoder struct {
	cache   *Cache
	reg     *Registry
	factory HandleFactory
	log     *slog.Logger
	metrics Metrics

	group singleflight.Group
	epoch atomic.Uint64

	smartSplit atomic.Bool
	manga      atomic.Bool
}

// NewDecoder creates a decoder that stores handles in cache. Pages produced
// by smart split are inserted into reg.
func NewDecoder(cache *Cache, reg *Registry, factory HandleFactory, logger *slog.Logger, metrics Metrics) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Decoder{
		cache:   cache,
		reg:     reg,
		factory: factory,
		log:     logger,
		metrics: metrics,
	}
}

// SetSmartSplit enables or disables splitting of wide pages. Pages that were
// already split stay split.
func (d *Decoder) SetSmartSplit(on bool) { d.smartSplit.Store(on) }

// SetManga selects which half of a split page comes first. It only affects
// pages split after the call.
func (d *Decoder) SetManga(on bool) { d.manga.Store(on) }

// Reset invalidates decodes that are still in flight for the previous
// document. Their handles are released instead of cached.
func (d *Decoder) Reset() {
	d.epoch.Add(1)
}

// Decode returns a live handle for p, decoding it if needed.
//
// A cached handle is returned without invoking the page's decode function.
// A corrupt page fails immediately with ErrCorruptPage. Concurrent calls for
// the same page share one decode. Cancelling ctx abandons the wait but not
// the decode itself, whose result is still cached.
func (d *Decoder) Decode(ctx context.Context, p *Page) (Handle, error) {
	if p.Corrupt() {
		return nil, fmt.Errorf("%w: %s", ErrCorruptPage, p.Name())
	}
	if h, ok := d.cache.Get(p); ok {
		return h, nil
	}

	epoch, gen := d.epoch.Load(), d.cache.Generation()
	ch := d.group.DoChan(p.ID(), func() (any, error) {
		return d.load(context.WithoutCancel(ctx), p, epoch, gen)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Handle), nil
	}
}

func (d *Decoder) load(ctx context.Context, p *Page, epoch, gen uint64) (Handle, error) {
	// A previous flight may have finished between Get and DoChan.
	if h, ok := d.cache.lookup(p); ok {
		return h, nil
	}
	if p.Corrupt() {
		return nil, fmt.Errorf("%w: %s", ErrCorruptPage, p.Name())
	}

	var (
		data []byte
		err  error
	)
	if p.Pinned() {
		data = p.pinnedData()
	} else {
		data, err = p.decode(ctx)
		if err != nil {
			return nil, d.fail(p, err)
		}
		data = d.maybeSplit(p, data)
	}

	h, err := d.factory.NewHandle(p.Name(), data)
	if err != nil {
		return nil, d.fail(p, err)
	}
	if d.epoch.Load() != epoch {
		h.Release()
		return nil, ErrSuperseded
	}

	p.markDecoded(data)
	if !d.cache.PutIf(p, h, gen) {
		p.release()
		return nil, ErrSuperseded
	}
	d.metrics.Decoded(true)
	d.log.Debug("page decoded", "page", p.Name(), "bytes", len(data))
	return h, nil
}

func (d *Decoder) fail(p *Page, err error) error {
	p.markCorrupt()
	d.metrics.Decoded(false)
	d.log.Warn("page decode failed", "page", p.Name(), "error", err)
	return fmt.Errorf("%w: %s: %v", ErrCorruptPage, p.Name(), err)
}

// maybeSplit returns the bytes p should hold. A page that was split before
// is cropped to its first half again. A wide page seen for the first time is
// split and its second half inserted after it as a pinned page.
func (d *Decoder) maybeSplit(p *Page, data []byte) []byte {
	if split, right := p.splitState(); split {
		first, _, err := splitHalves(data, right)
		if err != nil {
			d.log.Warn("re-split failed", "page", p.Name(), "error", err)
			return data
		}
		return first
	}
	if !d.smartSplit.Load() {
		return data
	}

	wide, err := isWide(data)
	if err != nil || !wide {
		return data
	}
	right := d.manga.Load()
	first, second, err := splitHalves(data, right)
	if err != nil {
		d.log.Warn("split failed", "page", p.Name(), "error", err)
		return data
	}
	if !p.markSplit(right) {
		return first
	}

	half := NewPinnedPage(p.Name()+"#2", second)
	if err := d.reg.InsertAfterPage(p, half); err != nil {
		d.log.Warn("split insert failed", "page", p.Name(), "error", err)
	}
	d.log.Debug("page split", "page", p.Name(), "right_first", right)
	return first
}
