// Package imaging prepares attachments before they are staged for sending.
package imaging

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// DefaultMaxEdge is the longest edge an attachment may keep
const DefaultMaxEdge = 512

// TargetSize returns the dimensions an image of w x h is scaled to so that
// neither edge exceeds maxEdge. Images already within bounds keep their size.
func TargetSize(w, h, maxEdge int) (int, int) {
	if w <= maxEdge && h <= maxEdge {
		return w, h
	}

	aspect := float64(w) / float64(h)
	if w > h {
		return maxEdge, clampEdge(float64(maxEdge) / aspect)
	}
	return clampEdge(float64(maxEdge) * aspect), maxEdge
}

func clampEdge(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	return n
}

// Normalize caps img so its longest edge is at most maxEdge, preserving the
// aspect ratio. An image already within bounds is returned unchanged.
func Normalize(img image.Image, maxEdge int) image.Image {
	if img == nil {
		return nil
	}
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}

	b := img.Bounds()
	w, h := TargetSize(b.Dx(), b.Dy(), maxEdge)
	if w == b.Dx() && h == b.Dy() {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
