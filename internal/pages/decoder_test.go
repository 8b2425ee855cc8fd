package pages

import (
	"bytes"
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"
)

func TestDecodeCachesResult(t *testing.T) {
	h := newHarness(t, 4)
	pages, srcs := okPages(1)
	h.reg.Load(pages)

	first, err := h.decoder.Decode(context.Background(), pages[0])
	if err != nil {
		t.Fatal(err)
	}
	second, err := h.decoder.Decode(context.Background(), pages[0])
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("second decode returned a different handle")
	}
	if n := srcs[0].calls.Load(); n != 1 {
		t.Errorf("decode function called %d times, want 1", n)
	}
	if pages[0].State() != StateReady {
		t.Errorf("state = %v, want ready", pages[0].State())
	}
}

func TestDecodeCorruptIsPermanent(t *testing.T) {
	h := newHarness(t, 4)
	src := &source{err: errBadBytes}
	p := NewPage("bad", src.decode)
	h.reg.Load([]*Page{p})

	for i := 0; i < 5; i++ {
		_, err := h.decoder.Decode(context.Background(), p)
		if !errors.Is(err, ErrCorruptPage) {
			t.Fatalf("attempt %d: err = %v, want ErrCorruptPage", i, err)
		}
	}
	if n := src.calls.Load(); n != 1 {
		t.Errorf("decode function called %d times, want 1", n)
	}
	if !p.Corrupt() || p.State() != StateCorrupt {
		t.Error("page not marked corrupt")
	}
	if h.metrics.decodedFail.Load() != 1 {
		t.Errorf("failed decodes = %d, want 1", h.metrics.decodedFail.Load())
	}
}

func TestDecodeUnrenderableBytesAreCorrupt(t *testing.T) {
	h := newHarness(t, 4)
	pages, srcs := okPages(1)
	h.reg.Load(pages)
	h.factory.fail["p0"] = true

	if _, err := h.decoder.Decode(context.Background(), pages[0]); !errors.Is(err, ErrCorruptPage) {
		t.Fatalf("err = %v, want ErrCorruptPage", err)
	}
	if _, err := h.decoder.Decode(context.Background(), pages[0]); !errors.Is(err, ErrCorruptPage) {
		t.Fatalf("second err = %v, want ErrCorruptPage", err)
	}
	if n := srcs[0].calls.Load(); n != 1 {
		t.Errorf("decode function called %d times, want 1", n)
	}
}

func TestDecodeConcurrentCallsShareOneDecode(t *testing.T) {
	h := newHarness(t, 4)
	src := &source{data: []byte("x"), gate: make(chan struct{})}
	p := NewPage("slow", src.decode)
	h.reg.Load([]*Page{p})

	var wg sync.WaitGroup
	results := make([]Handle, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.decoder.Decode(context.Background(), p)
		}(i)
	}

	waitFor(t, func() bool { return src.calls.Load() == 1 })
	close(src.gate)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if results[0] != results[1] {
		t.Error("callers received different handles")
	}
	if n := src.calls.Load(); n != 1 {
		t.Errorf("decode function called %d times, want 1", n)
	}
	if n := len(h.factory.handles); n != 1 {
		t.Errorf("created %d handles, want 1", n)
	}
}

func TestDecodeCancelledWaitDoesNotCorrupt(t *testing.T) {
	h := newHarness(t, 4)
	src := &source{data: []byte("x"), gate: make(chan struct{})}
	p := NewPage("slow", src.decode)
	h.reg.Load([]*Page{p})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.decoder.Decode(ctx, p)
		done <- err
	}()
	waitFor(t, func() bool { return src.calls.Load() == 1 })
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	close(src.gate)

	waitFor(t, func() bool { return h.cache.Contains(p) })
	if p.Corrupt() {
		t.Error("cancelled wait marked page corrupt")
	}
}

func TestDecodeAfterResetIsDiscarded(t *testing.T) {
	h := newHarness(t, 4)
	src := &source{data: []byte("x"), gate: make(chan struct{})}
	p := NewPage("slow", src.decode)
	h.reg.Load([]*Page{p})

	done := make(chan error, 1)
	go func() {
		_, err := h.decoder.Decode(context.Background(), p)
		done <- err
	}()
	waitFor(t, func() bool { return src.calls.Load() == 1 })
	h.decoder.Reset()
	close(src.gate)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("err = %v, want ErrSuperseded", err)
	}
	if h.cache.Contains(p) {
		t.Error("handle from previous document was cached")
	}
	if !h.factory.handles[0].released.Load() {
		t.Error("discarded handle not released")
	}
}

func TestDecodeAfterClearIsDiscarded(t *testing.T) {
	h := newHarness(t, 4)
	src := &source{data: []byte("x"), gate: make(chan struct{})}
	p := NewPage("slow", src.decode)
	h.reg.Load([]*Page{p})

	done := make(chan error, 1)
	go func() {
		_, err := h.decoder.Decode(context.Background(), p)
		done <- err
	}()
	waitFor(t, func() bool { return src.calls.Load() == 1 })
	// The decoder epoch is untouched; only the cache has moved on.
	h.cache.Clear()
	close(src.gate)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("err = %v, want ErrSuperseded", err)
	}
	if h.cache.Len() != 0 {
		t.Errorf("cache Len = %d, want 0", h.cache.Len())
	}
	if p.Decoded() {
		t.Error("discarded page still marked decoded")
	}
	if !h.factory.handles[0].released.Load() {
		t.Error("discarded handle not released")
	}
}

func TestSmartSplit(t *testing.T) {
	tests := []struct {
		name      string
		manga     bool
		wantFirst byte // dominant channel of the first half
	}{
		{"left to right", false, 'r'},
		{"manga", true, 'b'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 4)
			h.decoder.SetSmartSplit(true)
			h.decoder.SetManga(tt.manga)

			src := &source{data: pngBytes(t, 40, 20)}
			wide := NewPage("spread", src.decode)
			pages, _ := okPages(2)
			h.reg.Load([]*Page{pages[0], wide, pages[1]})
			h.reg.SetCurrent(2)

			hd, err := h.decoder.Decode(context.Background(), wide)
			if err != nil {
				t.Fatal(err)
			}
			if h.reg.Len() != 4 {
				t.Fatalf("len = %d, want 4", h.reg.Len())
			}
			half := h.reg.At(2)
			if half.Name() != "spread#2" || !half.Pinned() {
				t.Fatalf("page after spread = %q pinned=%v", half.Name(), half.Pinned())
			}
			if h.reg.Current() != 3 {
				t.Errorf("current = %d, want 3", h.reg.Current())
			}

			first := hd.(*fakeHandle).data
			checkHalf(t, first, 20, 20, tt.wantFirst)
			second := half.pinnedData()
			other := byte('b')
			if tt.wantFirst == 'b' {
				other = 'r'
			}
			checkHalf(t, second, 20, 20, other)
		})
	}
}

func TestSmartSplitRunsOnce(t *testing.T) {
	h := newHarness(t, 1)
	h.decoder.SetSmartSplit(true)
	src := &source{data: pngBytes(t, 40, 20)}
	wide := NewPage("spread", src.decode)
	other, _ := okPages(1)
	h.reg.Load([]*Page{wide, other[0]})

	if _, err := h.decoder.Decode(context.Background(), wide); err != nil {
		t.Fatal(err)
	}
	// Evict the spread, then decode it again.
	if _, err := h.decoder.Decode(context.Background(), other[0]); err != nil {
		t.Fatal(err)
	}
	if wide.Decoded() {
		t.Fatal("spread still decoded with cache limit 1")
	}
	hd, err := h.decoder.Decode(context.Background(), wide)
	if err != nil {
		t.Fatal(err)
	}

	if h.reg.Len() != 3 {
		t.Errorf("len = %d after re-decode, want 3", h.reg.Len())
	}
	checkHalf(t, hd.(*fakeHandle).data, 20, 20, 'r')
	if n := src.calls.Load(); n != 2 {
		t.Errorf("decode function called %d times, want 2", n)
	}
}

func TestSmartSplitSkipsNarrowPages(t *testing.T) {
	h := newHarness(t, 4)
	h.decoder.SetSmartSplit(true)
	src := &source{data: pngBytes(t, 24, 20)}
	p := NewPage("portrait", src.decode)
	h.reg.Load([]*Page{p})

	hd, err := h.decoder.Decode(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if h.reg.Len() != 1 {
		t.Errorf("narrow page was split")
	}
	if !bytes.Equal(hd.(*fakeHandle).data, src.data) {
		t.Error("narrow page bytes changed")
	}
}

func TestSmartSplitDisabled(t *testing.T) {
	h := newHarness(t, 4)
	src := &source{data: pngBytes(t, 40, 20)}
	p := NewPage("spread", src.decode)
	h.reg.Load([]*Page{p})

	if _, err := h.decoder.Decode(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if h.reg.Len() != 1 {
		t.Error("page split with smart split off")
	}
}

func checkHalf(t *testing.T, data []byte, w, h int, channel byte) {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode half: %v", err)
	}
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		t.Errorf("half is %dx%d, want %dx%d", b.Dx(), b.Dy(), w, h)
	}
	r, _, b, _ := img.At(img.Bounds().Min.X+1, img.Bounds().Min.Y+1).RGBA()
	switch channel {
	case 'r':
		if r == 0 || b != 0 {
			t.Errorf("half is not the left (red) side: r=%d b=%d", r, b)
		}
	case 'b':
		if b == 0 || r != 0 {
			t.Errorf("half is not the right (blue) side: r=%d b=%d", r, b)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 2s")
		}
		time.Sleep(time.Millisecond)
	}
}
