package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/heartbook/heartbook/internal/model"
)

// MaxPlaceholderSide bounds both dimensions of a generated placeholder.
const MaxPlaceholderSide = 2000

var (
	placeholderTop    = color.RGBA{R: 0xfc, G: 0xe7, B: 0xf3, A: 0xff}
	placeholderBottom = color.RGBA{R: 0xfb, G: 0xcf, B: 0xe8, A: 0xff}
)

// Placeholder renders a soft pink w×h JPEG used for records without a photo.
func Placeholder(w, h int) ([]byte, error) {
	if w < 1 || h < 1 || w > MaxPlaceholderSide || h > MaxPlaceholderSide {
		return nil, model.NewValidationError("size", fmt.Sprintf("%dx%d outside 1..%d", w, h, MaxPlaceholderSide))
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		c := blend(placeholderTop, placeholderBottom, y, h)
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: defaultQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func blend(a, b color.RGBA, i, n int) color.RGBA {
	if n <= 1 {
		return a
	}
	mix := func(x, y uint8) uint8 {
		return uint8((int(x)*(n-1-i) + int(y)*i) / (n - 1))
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}
