package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	// Decoders for the formats accepted on upload.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// fit returns the largest size that keeps the aspect ratio of w×h and lies
// within box×box. Images already inside the box keep their size.
func fit(w, h, box int) (int, int) {
	if w <= box && h <= box {
		return w, h
	}
	scale := math.Min(float64(box)/float64(w), float64(box)/float64(h))
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	nw = min(nw, box)
	nh = min(nh, box)
	return nw, nh
}

// transcode decodes data, scales it into the maxDim box and re-encodes it as
// JPEG. Transparent areas are flattened onto white.
func transcode(data []byte, maxDim, quality int) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	b := src.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("decode %s: empty image", format)
	}

	w, h := fit(b.Dx(), b.Dy(), maxDim)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
