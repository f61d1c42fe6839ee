package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/image-stitch-mcp/internal/raster"
)

func solidRaster(width, height int, c color.Color) *raster.Raster {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return raster.Wrap(img)
}

func TestClipToCircle(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{"square", 100, 100},
		{"landscape", 120, 80},
		{"portrait", 61, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := solidRaster(tt.w, tt.h, color.RGBA{0, 128, 255, 255})
			out := ClipToCircle(src)
			if out == nil {
				t.Fatal("ClipToCircle returned nil")
			}

			size := min(tt.w, tt.h)
			if out.Width() != size || out.Height() != size {
				t.Fatalf("dimensions: got %dx%d, want %dx%d", out.Width(), out.Height(), size, size)
			}

			corners := [][2]int{{0, 0}, {size - 1, 0}, {0, size - 1}, {size - 1, size - 1}}
			for _, p := range corners {
				if a := rgbaAt(out, p[0], p[1]).A; a != 0 {
					t.Errorf("corner (%d,%d) alpha: got %d, want 0", p[0], p[1], a)
				}
			}
			if a := rgbaAt(out, size/2, size/2).A; a != 0xff {
				t.Errorf("center alpha: got %d, want 255", a)
			}
			if !src.Released() {
				t.Error("source should be released")
			}
		})
	}
}

func TestClipToCircle_EdgeIsAntiAliased(t *testing.T) {
	out := ClipToCircle(solidRaster(64, 64, color.White))

	partial := 0
	for y := 0; y < out.Height(); y++ {
		for x := 0; x < out.Width(); x++ {
			if a := rgbaAt(out, x, y).A; a > 0 && a < 0xff {
				partial++
			}
		}
	}
	if partial == 0 {
		t.Error("expected partially covered pixels along the circle edge")
	}
}

func TestClipToRound(t *testing.T) {
	src := solidRaster(80, 50, color.RGBA{255, 0, 0, 255})

	out := ClipToRound(src, 12)
	if out == nil {
		t.Fatal("ClipToRound returned nil")
	}
	if out.Width() != 80 || out.Height() != 50 {
		t.Errorf("dimensions: got %dx%d, want 80x50", out.Width(), out.Height())
	}
	if a := rgbaAt(out, 0, 0).A; a != 0 {
		t.Errorf("corner alpha: got %d, want 0", a)
	}
	if a := rgbaAt(out, 79, 49).A; a != 0 {
		t.Errorf("opposite corner alpha: got %d, want 0", a)
	}
	// Straight edges away from the corners stay opaque
	if a := rgbaAt(out, 40, 0).A; a != 0xff {
		t.Errorf("top edge midpoint alpha: got %d, want 255", a)
	}
	if a := rgbaAt(out, 40, 25).A; a != 0xff {
		t.Errorf("center alpha: got %d, want 255", a)
	}
	if !src.Released() {
		t.Error("source should be released")
	}
}

func TestClipToRound_NonPositiveRadius(t *testing.T) {
	for _, radius := range []int{0, -4} {
		src := solidRaster(30, 20, color.White)
		if out := ClipToRound(src, radius); out != src {
			t.Errorf("radius %d: expected src unchanged", radius)
		}
		if src.Released() {
			t.Errorf("radius %d: src must not be released", radius)
		}
	}
}

func TestClipToRound_HugeRadiusIsCapped(t *testing.T) {
	out := ClipToRound(solidRaster(40, 40, color.White), 1000)

	// Capped at half the side, this is a circle
	if a := rgbaAt(out, 0, 0).A; a != 0 {
		t.Errorf("corner alpha: got %d, want 0", a)
	}
	if a := rgbaAt(out, 20, 20).A; a != 0xff {
		t.Errorf("center alpha: got %d, want 255", a)
	}
}

func TestCoverageMask(t *testing.T) {
	// Half-plane x < 5 on a 10x1 mask
	mask := coverageMask(10, 1, func(x, y float64) float64 { return x - 5 })

	if mask.AlphaAt(0, 0).A != 0xff {
		t.Errorf("inside pixel: got %d, want 255", mask.AlphaAt(0, 0).A)
	}
	if mask.AlphaAt(9, 0).A != 0 {
		t.Errorf("outside pixel: got %d, want 0", mask.AlphaAt(9, 0).A)
	}
	// Pixel 4 spans [4,5): fully inside; pixel 5 spans [5,6): outside
	if mask.AlphaAt(4, 0).A != 0xff {
		t.Errorf("pixel 4: got %d, want 255", mask.AlphaAt(4, 0).A)
	}
	if mask.AlphaAt(5, 0).A != 0 {
		t.Errorf("pixel 5: got %d, want 0", mask.AlphaAt(5, 0).A)
	}
}
