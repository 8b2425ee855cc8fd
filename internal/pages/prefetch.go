package pages

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

const (
	MinPrefetchDepth     = 1
	MaxPrefetchDepth     = 5
	DefaultPrefetchDepth = 2
)

// PrefetchStats reports what the prefetcher has done so far.
type PrefetchStats struct {
	Requested int
	Loaded    int
	Failed    int
	Skipped   int
}

// Prefetcher decodes pages near the current one in the background.
// It has a single worker; a new Schedule replaces any request the worker has
// not picked up yet.
type Prefetcher struct {
	reg     *Registry
	decoder *Decoder
	log     *slog.Logger
	metrics Metrics

	requests chan int
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}

	mu    sync.RWMutex
	depth int
	stats PrefetchStats
}

// NewPrefetcher starts a prefetch worker. Call Stop to end it.
func NewPrefetcher(reg *Registry, decoder *Decoder, depth int, logger *slog.Logger, metrics Metrics) *Prefetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	pf := &Prefetcher{
		reg:      reg,
		decoder:  decoder,
		log:      logger,
		metrics:  metrics,
		requests: make(chan int, 16),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		depth:    ClampPrefetchDepth(depth),
	}
	go pf.worker()
	return pf
}

// ClampPrefetchDepth limits depth to [MinPrefetchDepth, MaxPrefetchDepth].
func ClampPrefetchDepth(depth int) int {
	switch {
	case depth < MinPrefetchDepth:
		return MinPrefetchDepth
	case depth > MaxPrefetchDepth:
		return MaxPrefetchDepth
	}
	return depth
}

// SetDepth changes how many pages ahead are prefetched.
func (pf *Prefetcher) SetDepth(depth int) {
	pf.mu.Lock()
	pf.depth = ClampPrefetchDepth(depth)
	pf.mu.Unlock()
}

// Depth returns the prefetch depth.
func (pf *Prefetcher) Depth() int {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	return pf.depth
}

// Stats returns a snapshot of the prefetch counters.
func (pf *Prefetcher) Stats() PrefetchStats {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	return pf.stats
}

// Stop ends the worker and waits for it to exit. A decode already running
// finishes in the background and still populates the cache.
func (pf *Prefetcher) Stop() {
	pf.cancel()
	<-pf.done
}

// Schedule asks the worker to prefetch around index. It never blocks.
func (pf *Prefetcher) Schedule(around int) {
	if pf.ctx.Err() != nil {
		return
	}

drain:
	for {
		select {
		case <-pf.requests:
		default:
			break drain
		}
	}

	select {
	case pf.requests <- around:
	default:
		pf.log.Debug("prefetch queue full, dropping request", "index", around)
	}
}

func (pf *Prefetcher) worker() {
	defer close(pf.done)
	for {
		select {
		case <-pf.ctx.Done():
			return
		case around := <-pf.requests:
			pf.prefetch(pf.ctx, around)
		}
	}
}

// targets returns the indices to prefetch around index: the page before it
// and depth pages after it, skipping pages that are out of range, decoded or
// corrupt.
func (pf *Prefetcher) targets(around int) []*Page {
	depth := pf.Depth()
	candidates := make([]int, 0, depth+1)
	candidates = append(candidates, around-1)
	for i := 1; i <= depth; i++ {
		candidates = append(candidates, around+i)
	}

	var out []*Page
	for _, idx := range candidates {
		p := pf.reg.At(idx)
		if p == nil {
			continue
		}
		if p.State() != StatePending {
			pf.mu.Lock()
			pf.stats.Skipped++
			pf.mu.Unlock()
			continue
		}
		out = append(out, p)
	}
	return out
}

func (pf *Prefetcher) prefetch(ctx context.Context, around int) {
	targets := pf.targets(around)
	pf.mu.Lock()
	pf.stats.Requested += len(targets)
	pf.mu.Unlock()

	for _, p := range targets {
		if ctx.Err() != nil {
			return
		}
		_, err := pf.decoder.Decode(ctx, p)
		pf.mu.Lock()
		switch {
		case err == nil:
			pf.stats.Loaded++
		case errors.Is(err, ErrCorruptPage):
			pf.stats.Failed++
		}
		pf.mu.Unlock()
		if err == nil {
			pf.metrics.Prefetched()
		} else {
			pf.log.Debug("prefetch failed", "page", p.Name(), "error", err)
		}
	}
}
