// Package compose renders layered PNG images from trait candidates.
package compose

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
)

// Layered stacks images left to right, shifting every layer after the first
// back by Width pixels. With all layers Width wide this draws each layer over
// the previous one at the origin.
type Layered struct {
	Width int
}

// Compose decodes the PNG files in paths and draws them in order.
func (l Layered) Compose(paths []string) (*image.NRGBA, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("compose: no layers")
	}

	layers := make([]image.Image, len(paths))
	for i, p := range paths {
		img, err := decode(p)
		if err != nil {
			return nil, err
		}
		layers[i] = img
	}

	shift := l.Width
	if shift <= 0 {
		shift = layers[0].Bounds().Dx()
	}

	offsets := make([]int, len(layers))
	width, height := 0, 0
	x := 0
	for i, img := range layers {
		if i > 0 {
			x += layers[i-1].Bounds().Dx() - shift
		}
		offsets[i] = x
		width = max(width, x+img.Bounds().Dx())
		height = max(height, img.Bounds().Dy())
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i, img := range layers {
		b := img.Bounds()
		dst := image.Rect(offsets[i], 0, offsets[i]+b.Dx(), b.Dy())
		draw.Draw(canvas, dst, img, b.Min, draw.Over)
	}
	return canvas, nil
}

// Encode serializes img as PNG.
func Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("compose: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("compose: open layer: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("compose: decode %s: %w", path, err)
	}
	return img, nil
}
