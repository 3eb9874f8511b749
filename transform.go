// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"image"
	"math"
)

// Transform maps presentation-surface coordinates to framebuffer pixels.
// Offset is the top-left corner of the framebuffer image within the surface
// and Scale is displayed width over framebuffer width.
type Transform struct {
	Scale  float64
	Offset image.Point
}

func (t Transform) scale() float64 {
	if t.Scale <= 0 || math.IsNaN(t.Scale) || math.IsInf(t.Scale, 0) {
		return 1
	}
	return t.Scale
}

// ToFramebuffer rounds the surface position to a pixel, removes the offset
// and divides by the scale, truncating the result. The same divisor applies
// to both axes.
func (t Transform) ToFramebuffer(x, y float64) image.Point {
	s := t.scale()
	px := int(math.Round(x)) - t.Offset.X
	py := int(math.Round(y)) - t.Offset.Y
	return image.Pt(int(float64(px)/s), int(float64(py)/s))
}

// CenterOffset returns the offset that centers an image of size img inside a
// container. An axis where the container is not larger gets no offset.
func CenterOffset(container, img image.Point) image.Point {
	var off image.Point
	if container.X > img.X {
		off.X = (container.X - img.X) / 2
	}
	if container.Y > img.Y {
		off.Y = (container.Y - img.Y) / 2
	}
	return off
}

// AdjustRect moves a framebuffer rectangle into surface space.
func (t Transform) AdjustRect(r image.Rectangle) image.Rectangle {
	s := t.scale()
	if s == 1 {
		return r.Add(t.Offset)
	}
	return image.Rect(
		int(float64(r.Min.X)*s), int(float64(r.Min.Y)*s),
		int(math.Ceil(float64(r.Max.X)*s)), int(math.Ceil(float64(r.Max.Y)*s)),
	).Add(t.Offset)
}

// clampToFramebuffer keeps p inside a w x h framebuffer.
func clampToFramebuffer(p image.Point, w, h int) image.Point {
	if w <= 0 || h <= 0 {
		return image.Point{}
	}
	p.X = min(max(p.X, 0), w-1)
	p.Y = min(max(p.Y, 0), h-1)
	return p
}
