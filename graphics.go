package main

import (
	"bytes"
	"image/color"
	"path/filepath"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontOnce   sync.Once
	fontSource *text.GoTextFaceSource
	fontErr    error
)

// InitGraphics loads the font used for all text
func InitGraphics() error {
	fontOnce.Do(func() {
		fontSource, fontErr = text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	})
	return fontErr
}

// newFace returns a face of the shared font, or nil if it failed to load
func newFace(size float64) *text.GoTextFace {
	if InitGraphics() != nil {
		return nil
	}
	return &text.GoTextFace{Source: fontSource, Size: size}
}

// DrawText draws text with specified position and color
func DrawText(screen *ebiten.Image, textString string, face *text.GoTextFace, x, y float64, textColor color.RGBA) {
	if face == nil {
		return
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(textColor)
	text.Draw(screen, textString, face, op)
}

// DrawFilledRect draws filled rectangles with float64 coordinates
func DrawFilledRect(screen *ebiten.Image, x, y, w, h float64, bgColor color.RGBA) {
	vector.DrawFilledRect(screen, float32(x), float32(y), float32(w), float32(h), bgColor, false)
}

func drawBorder(img *ebiten.Image, width float64, c color.RGBA) {
	w, h := float64(img.Bounds().Dx()), float64(img.Bounds().Dy())
	DrawFilledRect(img, 0, 0, w, width, c)
	DrawFilledRect(img, 0, h-width, w, width, c)
	DrawFilledRect(img, 0, 0, width, h, c)
	DrawFilledRect(img, w-width, 0, width, h, c)
}

// truncate shortens s to at most n bytes, marking the cut with "..."
func truncate(s string, n int) string {
	if n < 4 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// CreateErrorImage creates a placeholder shown when a document cannot be read
func CreateErrorImage(width, height int, filename, errorMsg string) *ebiten.Image {
	if width <= 0 || height <= 0 {
		width, height = 400, 300
	}

	errorImg := ebiten.NewImage(width, height)
	errorImg.Fill(color.RGBA{120, 30, 30, 255})
	drawBorder(errorImg, 3, colorWhite)

	face := newFace(20)
	if face == nil {
		return errorImg
	}

	// Rough estimate: 10px per character
	maxChars := (width - 20) / 10
	DrawText(errorImg, "ERROR", face, 10, 30, colorWhite)
	DrawText(errorImg, truncate("File: "+filepath.Base(filename), maxChars), face, 10, 60, colorWhite)
	DrawText(errorImg, truncate("Reason: "+errorMsg, maxChars), face, 10, 90, colorWhite)

	return errorImg
}
