package main

import (
	"bytes"
	"fmt"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"github.com/hajimehoshi/ebiten/v2"
	_ "golang.org/x/image/webp"

	"comet/internal/pages"
)

// imageHandle is a decoded page uploaded as an ebiten image.
type imageHandle struct {
	name     string
	img      *ebiten.Image
	released atomic.Bool
}

// Release frees the GPU image. Later calls do nothing.
func (h *imageHandle) Release() {
	if h.released.CompareAndSwap(false, true) {
		h.img.Deallocate()
	}
}

// Image returns the page image, or nil once the handle was released.
func (h *imageHandle) Image() *ebiten.Image {
	if h == nil || h.released.Load() {
		return nil
	}
	return h.img
}

// imageFactory implements pages.HandleFactory for ebiten.
type imageFactory struct{}

var _ pages.HandleFactory = imageFactory{}

// NewHandle decodes data, applying EXIF orientation, and uploads it.
func (imageFactory) NewHandle(name string, data []byte) (pages.Handle, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return &imageHandle{name: name, img: ebiten.NewImageFromImage(img)}, nil
}

// asImageHandle unwraps a handle produced by imageFactory.
func asImageHandle(h pages.Handle) *imageHandle {
	ih, _ := h.(*imageHandle)
	return ih
}
