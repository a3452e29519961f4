// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package softblit is the CPU analogue of the present package: the same
// compositing semantics (scaled blit, gamma ramp, software cursor) over
// plain images, for headless use, testing, and hosts without a usable GPU
// device.
//
// The filter rule mirrors the GPU path: a geometry-preserving present
// copies pixels untouched, an upscale uses bilinear filtering, and a
// downscale uses a higher-order kernel in place of the GPU's box taps.
// Color values pass through in the encoding of the images themselves;
// converting between color spaces is the GPU path's job.
package softblit

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/present"
)

// Softblit errors.
var (
	// ErrNilDestination is returned by Present without a destination.
	ErrNilDestination = errors.New("softblit: destination image is nil")

	// ErrNilSource is returned by Present without a source.
	ErrNilSource = errors.New("softblit: source image is nil")
)

// defaultLUTSize matches the GPU path's gamma lookup resolution.
const defaultLUTSize = 1024

// Option configures a Blitter.
type Option func(*Blitter)

// WithGammaLUTSize sets the gamma lookup resolution. Values below 2 are
// ignored.
func WithGammaLUTSize(texels uint32) Option {
	return func(b *Blitter) {
		if texels >= 2 {
			b.lutSize = int(texels)
		}
	}
}

// Blitter is a CPU presentation compositor.
//
// Present runs on one goroutine at a time; SetGammaRamp, SetCursor, and
// SetCursorPos may be called from any goroutine.
type Blitter struct {
	lutSize int

	mu         sync.Mutex
	lut        [][3]uint16 // nil when gamma is disabled
	cursor     *image.NRGBA
	cursorRect present.Rect
}

// New creates a CPU blitter.
func New(opts ...Option) *Blitter {
	b := &Blitter{lutSize: defaultLUTSize}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetGammaRamp replaces the gamma ramp. An empty slice disables gamma
// correction.
func (b *Blitter) SetGammaRamp(controlPoints []present.GammaControlPoint) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(controlPoints) == 0 {
		b.lut = nil
		return nil
	}
	b.lut = deriveLUT(controlPoints, b.lutSize)
	return nil
}

// SetCursor replaces the cursor image. The image is copied; nil clears the
// cursor.
func (b *Blitter) SetCursor(img image.Image) {
	var cur *image.NRGBA
	if img != nil {
		bounds := img.Bounds()
		cur = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(cur, cur.Bounds(), img, bounds.Min, draw.Src)
	}
	b.mu.Lock()
	b.cursor = cur
	b.mu.Unlock()
}

// SetCursorPos moves the cursor. The rectangle is measured from the
// destination image's origin, like the present rectangles. A rectangle
// whose extent differs from the cursor image size scales the cursor.
func (b *Blitter) SetCursorPos(rect present.Rect) {
	b.mu.Lock()
	b.cursorRect = rect
	b.mu.Unlock()
}

// Present composites src onto dst. A zero srcRect means all of src, a zero
// dstRect all of dst. When dstRect does not cover dst, the remainder is
// filled with opaque black, matching the GPU path's clear.
func (b *Blitter) Present(dst draw.Image, src image.Image, srcRect, dstRect present.Rect) error {
	if dst == nil {
		return ErrNilDestination
	}
	if src == nil {
		return ErrNilSource
	}

	b.mu.Lock()
	lut := b.lut
	cursor := b.cursor
	cursorRect := b.cursorRect
	b.mu.Unlock()

	dstBounds := dst.Bounds()
	srcBounds := src.Bounds()
	sr := rectOrDefault(srcRect, srcBounds)
	dr := rectOrDefault(dstRect, dstBounds)

	if dr != dstBounds {
		draw.Draw(dst, dstBounds, image.NewUniform(color.Black), image.Point{}, draw.Src)
	}

	blit(dst, dr, src, sr)

	if lut != nil {
		applyLUT(dst, dr, lut)
	}

	if cursor != nil && !cursorRect.Extent.IsZero() {
		cr := toImageRect(cursorRect).Add(dstBounds.Min)
		if cr.Overlaps(dr) {
			overlayCursor(dst, cr, cursor, lut)
		}
	}
	return nil
}

// rectOrDefault converts a present.Rect into image coordinates, falling
// back to the full bounds for a zero extent. Rect offsets are measured
// from the image origin, so bounds.Min translates them into absolute
// coordinates.
func rectOrDefault(r present.Rect, bounds image.Rectangle) image.Rectangle {
	if r.Extent.IsZero() {
		return bounds
	}
	return toImageRect(r).Add(bounds.Min)
}

func toImageRect(r present.Rect) image.Rectangle {
	return image.Rect(
		int(r.Offset.X), int(r.Offset.Y),
		int(r.Offset.X)+int(r.Extent.Width), int(r.Offset.Y)+int(r.Extent.Height))
}

// blit scales sr of src into dr of dst using the filter the geometry calls
// for.
func blit(dst draw.Image, dr image.Rectangle, src image.Image, sr image.Rectangle) {
	if dr.Dx() == sr.Dx() && dr.Dy() == sr.Dy() {
		draw.Draw(dst, dr, src, sr.Min, draw.Src)
		return
	}
	scaler := scalerFor(sr, dr)
	scaler.Scale(dst, dr, src, sr, xdraw.Src, nil)
}

// scalerFor picks the kernel: bilinear for upscales, Catmull-Rom for
// downscales where the GPU path widens its sample footprint.
func scalerFor(sr, dr image.Rectangle) xdraw.Scaler {
	if dr.Dx() < sr.Dx() || dr.Dy() < sr.Dy() {
		return xdraw.CatmullRom
	}
	return xdraw.BiLinear
}

// deriveLUT interpolates the control points into size RGB entries.
func deriveLUT(cps []present.GammaControlPoint, size int) [][3]uint16 {
	lut := make([][3]uint16, size)
	n := len(cps)
	for i := range lut {
		p := float64(i) / float64(size-1) * float64(n-1)
		lo := int(p)
		hi := lo + 1
		if hi >= n {
			hi = n - 1
		}
		t := p - float64(lo)
		lut[i] = [3]uint16{
			lerp16(cps[lo].R, cps[hi].R, t),
			lerp16(cps[lo].G, cps[hi].G, t),
			lerp16(cps[lo].B, cps[hi].B, t),
		}
	}
	return lut
}

func lerp16(a, b uint16, t float64) uint16 {
	return uint16(float64(a) + (float64(b)-float64(a))*t + 0.5)
}

// sampleLUT looks up channel ch for a 16-bit value with linear
// interpolation between entries, mirroring the GPU's linear gamma sampler.
func sampleLUT(lut [][3]uint16, ch int, v uint32) uint32 {
	p := float64(v) / 65535.0 * float64(len(lut)-1)
	lo := int(p)
	hi := lo + 1
	if hi >= len(lut) {
		hi = len(lut) - 1
	}
	t := p - float64(lo)
	a := float64(lut[lo][ch])
	b := float64(lut[hi][ch])
	return uint32(a + (b-a)*t + 0.5)
}

// applyLUT remaps every pixel of region in place.
func applyLUT(dst draw.Image, region image.Rectangle, lut [][3]uint16) {
	region = region.Intersect(dst.Bounds())
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			r, g, bb, a := dst.At(x, y).RGBA()
			dst.Set(x, y, color.RGBA64{
				R: uint16(sampleLUT(lut, 0, r)),
				G: uint16(sampleLUT(lut, 1, g)),
				B: uint16(sampleLUT(lut, 2, bb)),
				A: uint16(a),
			})
		}
	}
}

// overlayCursor alpha-blends the cursor into dst at cr, scaling when the
// rectangle size differs from the cursor image. The gamma ramp applies to
// the cursor pixels before blending, as it does on the GPU.
func overlayCursor(dst draw.Image, cr image.Rectangle, cursor *image.NRGBA, lut [][3]uint16) {
	src := image.Image(cursor)
	if lut != nil {
		corrected := image.NewNRGBA(cursor.Bounds())
		draw.Draw(corrected, corrected.Bounds(), cursor, cursor.Bounds().Min, draw.Src)
		applyLUT(corrected, corrected.Bounds(), lut)
		src = corrected
	}

	sb := src.Bounds()
	if cr.Dx() == sb.Dx() && cr.Dy() == sb.Dy() {
		draw.Draw(dst, cr, src, sb.Min, draw.Over)
		return
	}
	scalerFor(sb, cr).Scale(dst, cr, src, sb, xdraw.Over, nil)
}
