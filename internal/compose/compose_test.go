package compose

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeLayer(t *testing.T, dir, name string, w, h int, fill func(x, y int) color.NRGBA) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, fill(x, y))
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestComposeOverlaysAtOrigin(t *testing.T) {
	dir := t.TempDir()
	red := color.NRGBA{R: 255, A: 255}
	blue := color.NRGBA{B: 255, A: 255}

	base := writeLayer(t, dir, "base.png", 4, 4, func(int, int) color.NRGBA { return red })
	// Top layer is opaque blue on the left half, transparent on the right.
	top := writeLayer(t, dir, "top.png", 4, 4, func(x, _ int) color.NRGBA {
		if x < 2 {
			return blue
		}
		return color.NRGBA{}
	})

	img, err := Layered{Width: 4}.Compose([]string{base, top})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got := img.Bounds(); got != image.Rect(0, 0, 4, 4) {
		t.Fatalf("bounds = %v", got)
	}
	if got := img.NRGBAAt(0, 0); got != blue {
		t.Errorf("pixel(0,0) = %v, want blue", got)
	}
	if got := img.NRGBAAt(3, 3); got != red {
		t.Errorf("pixel(3,3) = %v, want red", got)
	}
}

func TestComposeDefaultsWidthToFirstLayer(t *testing.T) {
	dir := t.TempDir()
	green := color.NRGBA{G: 255, A: 255}
	a := writeLayer(t, dir, "a.png", 3, 2, func(int, int) color.NRGBA { return green })
	b := writeLayer(t, dir, "b.png", 3, 2, func(int, int) color.NRGBA { return green })

	img, err := Layered{}.Compose([]string{a, b})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Errorf("bounds = %v", img.Bounds())
	}
}

func TestComposePartialShift(t *testing.T) {
	dir := t.TempDir()
	c := color.NRGBA{R: 10, A: 255}
	a := writeLayer(t, dir, "a.png", 2, 2, func(int, int) color.NRGBA { return c })
	b := writeLayer(t, dir, "b.png", 2, 2, func(int, int) color.NRGBA { return c })

	// A shift of one pixel leaves one column of each layer uncovered.
	img, err := Layered{Width: 1}.Compose([]string{a, b})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if img.Bounds().Dx() != 3 {
		t.Errorf("width = %d, want 3", img.Bounds().Dx())
	}
}

func TestComposeErrors(t *testing.T) {
	if _, err := (Layered{}).Compose(nil); err == nil {
		t.Error("expected error for no layers")
	}
	bad := filepath.Join(t.TempDir(), "bad.png")
	_ = os.WriteFile(bad, []byte("not a png"), 0o644)
	if _, err := (Layered{}).Compose([]string{bad}); err == nil {
		t.Error("expected decode error")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	data, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if back.Bounds() != img.Bounds() {
		t.Errorf("bounds = %v", back.Bounds())
	}
}
