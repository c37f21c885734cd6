package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		maxEdge      int
		wantW, wantH int
	}{
		{name: "landscape", w: 1024, h: 512, maxEdge: 512, wantW: 512, wantH: 256},
		{name: "portrait", w: 600, h: 1200, maxEdge: 512, wantW: 256, wantH: 512},
		{name: "square over", w: 2048, h: 2048, maxEdge: 512, wantW: 512, wantH: 512},
		{name: "within bounds", w: 256, h: 256, maxEdge: 512, wantW: 256, wantH: 256},
		{name: "exactly max", w: 512, h: 300, maxEdge: 512, wantW: 512, wantH: 300},
		{name: "one edge over", w: 513, h: 10, maxEdge: 512, wantW: 512, wantH: 10},
		{name: "extreme strip", w: 10000, h: 1, maxEdge: 512, wantW: 512, wantH: 1},
		{name: "rounding", w: 1000, h: 333, maxEdge: 512, wantW: 512, wantH: 170},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotW, gotH := TargetSize(tt.w, tt.h, tt.maxEdge)
			assert.Equal(t, tt.wantW, gotW, "width")
			assert.Equal(t, tt.wantH, gotH, "height")
		})
	}
}

func TestNormalizeScalesDown(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1024, 512))
	out := Normalize(src, 512)

	assert.Equal(t, 512, out.Bounds().Dx())
	assert.Equal(t, 256, out.Bounds().Dy())
}

func TestNormalizePassesThroughSmallImages(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 256, 256))
	out := Normalize(src, 512)

	assert.Same(t, src, out.(*image.RGBA))
}

func TestNormalizeKeepsColour(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1000, 1000))
	fill := color.RGBA{R: 10, G: 200, B: 30, A: 255}
	for y := 0; y < 1000; y++ {
		for x := 0; x < 1000; x++ {
			src.SetRGBA(x, y, fill)
		}
	}

	out := Normalize(src, 100)
	r, g, b, a := out.At(50, 50).RGBA()
	// resampling a flat field may drift by rounding only
	assert.InDelta(t, float64(fill.R)*0x101, float64(r), 0x101)
	assert.InDelta(t, float64(fill.G)*0x101, float64(g), 0x101)
	assert.InDelta(t, float64(fill.B)*0x101, float64(b), 0x101)
	assert.InDelta(t, 0xffff, float64(a), 0x101)
}

func TestNormalizeDefaultsAndNil(t *testing.T) {
	assert.Nil(t, Normalize(nil, 512))

	src := image.NewRGBA(image.Rect(0, 0, 2000, 1000))
	out := Normalize(src, 0)
	assert.Equal(t, DefaultMaxEdge, out.Bounds().Dx())
}

func TestLoadFile(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 2))))

	path := filepath.Join(t.TempDir(), "pic.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	img, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	_, err = LoadFile(bad)
	assert.Error(t, err)
}
