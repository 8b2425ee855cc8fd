package pages

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeHandle struct {
	name     string
	data     []byte
	released atomic.Bool
}

func (h *fakeHandle) Release() { h.released.Store(true) }

type fakeFactory struct {
	mu      sync.Mutex
	handles []*fakeHandle
	fail    map[string]bool
}

func (f *fakeFactory) NewHandle(name string, data []byte) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[name] {
		return nil, fmt.Errorf("cannot render %s", name)
	}
	h := &fakeHandle{name: name, data: data}
	f.handles = append(f.handles, h)
	return h, nil
}

// handle returns the only handle created for name.
func (f *fakeFactory) handle(t *testing.T, name string) *fakeHandle {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var found *fakeHandle
	for _, h := range f.handles {
		if h.name != name {
			continue
		}
		if found != nil {
			t.Fatalf("%s was decoded more than once", name)
		}
		found = h
	}
	if found == nil {
		t.Fatalf("%s was never decoded", name)
	}
	return found
}

type countingMetrics struct {
	hits, misses, evictions atomic.Int64
	decodedOK, decodedFail  atomic.Int64
	prefetched, size        atomic.Int64
}

func (m *countingMetrics) Hit()       { m.hits.Add(1) }
func (m *countingMetrics) Miss()      { m.misses.Add(1) }
func (m *countingMetrics) Evict()     { m.evictions.Add(1) }
func (m *countingMetrics) Size(n int) { m.size.Store(int64(n)) }
func (m *countingMetrics) Decoded(ok bool) {
	if ok {
		m.decodedOK.Add(1)
	} else {
		m.decodedFail.Add(1)
	}
}
func (m *countingMetrics) Prefetched() { m.prefetched.Add(1) }

// source is a decode function that counts its calls.
type source struct {
	calls atomic.Int32
	data  []byte
	err   error
	// gate, when set, blocks the decode until it is closed.
	gate chan struct{}
}

func (s *source) decode(ctx context.Context) ([]byte, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

var errBadBytes = errors.New("bad bytes")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pngBytes returns a w×h PNG whose left half is red and right half blue.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: 255, A: 255}
			if x >= w/2 {
				c = color.NRGBA{B: 255, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type harness struct {
	reg     *Registry
	cache   *Cache
	factory *fakeFactory
	metrics *countingMetrics
	decoder *Decoder
}

func newHarness(t *testing.T, limit int) *harness {
	t.Helper()
	h := &harness{
		reg:     NewRegistry(),
		factory: &fakeFactory{fail: map[string]bool{}},
		metrics: &countingMetrics{},
	}
	h.cache = NewCache(limit, testLogger(), h.metrics)
	h.decoder = NewDecoder(h.cache, h.reg, h.factory, testLogger(), h.metrics)
	return h
}

// okPages returns n regenerable pages named p0..pn-1 with their sources.
func okPages(n int) ([]*Page, []*source) {
	pages := make([]*Page, n)
	srcs := make([]*source, n)
	for i := range pages {
		srcs[i] = &source{data: []byte(fmt.Sprintf("page-%d", i))}
		pages[i] = NewPage(fmt.Sprintf("p%d", i), srcs[i].decode)
	}
	return pages, srcs
}
