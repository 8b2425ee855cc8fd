package pages

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// splitRatio is the width/height ratio above which a page is treated as a
// two-page spread.
const splitRatio = 1.2

// isWide reports whether the encoded image is wider than splitRatio times its
// height. Only the image header is read.
func isWide(data []byte) (bool, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return false, err
	}
	return float64(cfg.Width) > splitRatio*float64(cfg.Height), nil
}

// splitHalves cuts a spread into two PNG-encoded halves. With rightFirst the
// right half is returned first, for right-to-left reading.
func splitHalves(data []byte, rightFirst bool) (first, second []byte, err error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("split: %w", err)
	}
	b := img.Bounds()
	mid := b.Min.X + b.Dx()/2
	left := imaging.Crop(img, image.Rect(b.Min.X, b.Min.Y, mid, b.Max.Y))
	right := imaging.Crop(img, image.Rect(mid, b.Min.Y, b.Max.X, b.Max.Y))
	if rightFirst {
		left, right = right, left
	}

	first, err = encodePNG(left)
	if err != nil {
		return nil, nil, err
	}
	second, err = encodePNG(right)
	if err != nil {
		return nil, nil, err
	}
	return first, second, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("split: encode: %w", err)
	}
	return buf.Bytes(), nil
}
