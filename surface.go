// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"image"
	"image/color"
	"image/draw"
	"sync"
)

// Surface is the presentation target of a session. All methods are called
// from the session's Dispatcher goroutine.
type Surface interface {
	// Resize (re)creates the drawing area for a w x h framebuffer.
	Resize(w, h int)

	// Draw applies a decoded update.
	Draw(u *Update)

	// Release clears the drawing area at the end of a session.
	Release()

	// DisplaySize returns the size at which the framebuffer is shown; it
	// is used to derive the image scale.
	DisplaySize() image.Point
}

// ImageSurface is a Surface backed by an in-memory RGBA image.
type ImageSurface struct {
	mu      sync.RWMutex
	img     *image.RGBA
	last    *image.RGBA
	display image.Point
	draws   int
}

// NewImageSurface returns an empty surface. A zero display size means the
// framebuffer is shown at its native size.
func NewImageSurface(display image.Point) *ImageSurface {
	return &ImageSurface{display: display}
}

// Resize implements Surface.
func (s *ImageSurface) Resize(w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := image.NewRGBA(image.Rect(0, 0, w, h))
	if s.img != nil {
		draw.Draw(next, next.Bounds(), s.img, image.Point{}, draw.Src)
	}
	s.img = next
}

// Draw implements Surface.
func (s *ImageSurface) Draw(u *Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draws++

	for _, rect := range u.Rectangles {
		if size, ok := desktopSize(rect); ok {
			next := image.NewRGBA(image.Rectangle{Max: size})
			if s.img != nil {
				draw.Draw(next, next.Bounds(), s.img, image.Point{}, draw.Src)
			}
			s.img = next
			continue
		}
		if s.img == nil {
			continue
		}
		paintRect(s.img, rect)
	}
}

func desktopSize(rect Rectangle) (image.Point, bool) {
	ds, ok := rect.Enc.(*DesktopSizePseudoEncoding)
	if !ok {
		return image.Point{}, false
	}
	return image.Pt(int(ds.Width), int(ds.Height)), true
}

// paintRect draws one decoded rectangle into dst.
func paintRect(dst *image.RGBA, rect Rectangle) {
	bounds := rect.Bounds()
	switch enc := rect.Enc.(type) {
	case *RawEncoding:
		if enc.Pixels != nil {
			draw.Draw(dst, bounds, enc.Pixels, image.Point{}, draw.Src)
		}
	case *CopyRectEncoding:
		draw.Draw(dst, bounds, dst, image.Pt(int(enc.SrcX), int(enc.SrcY)), draw.Src)
	case *RREEncoding:
		draw.Draw(dst, bounds, image.NewUniform(enc.BackgroundColor), image.Point{}, draw.Src)
		for _, sub := range enc.Subrectangles {
			r := image.Rect(int(sub.X), int(sub.Y), int(sub.X)+int(sub.Width), int(sub.Y)+int(sub.Height)).
				Add(bounds.Min)
			draw.Draw(dst, r, image.NewUniform(sub.Color), image.Point{}, draw.Src)
		}
	}
}

// Release implements Surface.
func (s *ImageSurface) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.img != nil {
		s.last = s.img
	}
	s.img = nil
}

// SetDisplaySize sets the size the framebuffer is shown at. A zero size
// means native size.
func (s *ImageSurface) SetDisplaySize(display image.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.display = display
}

// Released reports whether the surface has been released since its last
// resize.
func (s *ImageSurface) Released() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.img == nil && s.last != nil
}

// DisplaySize implements Surface.
func (s *ImageSurface) DisplaySize() image.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.display != (image.Point{}) {
		return s.display
	}
	if s.img == nil {
		return image.Point{}
	}
	return s.img.Bounds().Size()
}

// Snapshot returns a copy of the current image. After release it returns
// the final image of the session, and before the first resize nil.
func (s *ImageSurface) Snapshot() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.img
	if src == nil {
		src = s.last
	}
	if src == nil {
		return nil
	}
	out := image.NewRGBA(src.Bounds())
	copy(out.Pix, src.Pix)
	return out
}

// Render composes the surface as it is displayed: the framebuffer placed and
// scaled by t on a canvas of the display size. Like Snapshot it falls back
// to the final image after release and returns nil before the first resize.
func (s *ImageSurface) Render(t Transform) *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.img
	if src == nil {
		src = s.last
	}
	if src == nil {
		return nil
	}
	display := s.display
	if display == (image.Point{}) {
		display = src.Bounds().Size()
	}

	out := image.NewRGBA(image.Rectangle{Max: display})
	dst := t.AdjustRect(src.Bounds()).Intersect(out.Bounds())
	for y := dst.Min.Y; y < dst.Max.Y; y++ {
		for x := dst.Min.X; x < dst.Max.X; x++ {
			p := t.ToFramebuffer(float64(x), float64(y))
			if p.In(src.Bounds()) {
				out.SetRGBA(x, y, src.RGBAAt(p.X, p.Y))
			}
		}
	}
	return out
}

// At returns the pixel at (x, y), or transparent black outside the image.
func (s *ImageSurface) At(x, y int) color.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.img == nil {
		return color.RGBA{}
	}
	return s.img.RGBAAt(x, y)
}

// Draws returns the number of updates applied.
func (s *ImageSurface) Draws() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draws
}
