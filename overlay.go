// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package present

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/mrjoshuak/go-openexr/half"
)

// defaultGammaLUTSize is the resolution of the derived gamma lookup
// texture. 1024 texels preserve 10-bit output precision; the ramp itself is
// stored as rgba16float so the 16-bit control points survive interpolation.
const defaultGammaLUTSize = 1024

// copyPitchAlignment is the row alignment required for buffer-to-texture
// copies (WebGPU and DX12 require 256-byte row pitch).
const copyPitchAlignment = 256

// gammaState is the gamma half of the overlay state. All fields are
// guarded by Blitter.mu.
type gammaState struct {
	// cpCount is the number of control points of the active ramp.
	// Zero means gamma correction is disabled.
	cpCount uint32

	// lut holds the derived rgba16float lookup texels, pending upload
	// while dirty is set.
	lut   []byte
	dirty bool

	tex  hal.Texture
	view hal.TextureView
}

// cursorState is the cursor half of the overlay state. All fields are
// guarded by Blitter.mu.
type cursorState struct {
	extent Extent
	format gputypes.TextureFormat

	// data is the tightly packed pixel buffer, pending upload while
	// dirty is set.
	data  []byte
	dirty bool

	// rect is the placement rectangle in destination coordinates. It may
	// differ in size from extent, in which case the cursor is sampled
	// with a linear filter.
	rect Rect

	tex  hal.Texture
	view hal.TextureView
}

// SetGammaRamp replaces the gamma ramp. A non-empty slice derives a
// one-dimensional lookup texture from the ordered control points and
// schedules its upload before the next present. An empty (or nil) slice
// disables gamma correction.
//
// Safe to call from a goroutine other than the presenting one.
func (b *Blitter) SetGammaRamp(controlPoints []GammaControlPoint) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return ErrDestroyed
	}

	if len(controlPoints) == 0 {
		b.gamma.cpCount = 0
		b.gamma.lut = nil
		b.gamma.dirty = false
		// The texture itself is released lazily by the presenting
		// goroutine; a present may be sampling it right now.
		Logger().Debug("present: gamma ramp disabled")
		return nil
	}

	b.gamma.cpCount = uint32(len(controlPoints))
	b.gamma.lut = buildGammaLUT(controlPoints, b.opts.gammaLUTSize)
	b.gamma.dirty = true
	Logger().Debug("present: gamma ramp updated", "controlPoints", len(controlPoints))
	return nil
}

// SetCursorTexture replaces the software cursor image. The pixel buffer
// must be tightly packed according to format and is copied, so the caller
// may reuse it. The cursor image is assumed to be sRGB-encoded unless the
// format says otherwise.
//
// Safe to call from a goroutine other than the presenting one.
func (b *Blitter) SetCursorTexture(extent Extent, format gputypes.TextureFormat, data []byte) error {
	stride := formatBytesPerPixel(format)
	if stride == 0 {
		return ErrCursorFormat
	}
	if extent.IsZero() || uint64(len(data)) != uint64(extent.Width)*uint64(extent.Height)*uint64(stride) {
		return ErrCursorDataSize
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return ErrDestroyed
	}

	b.cursor.extent = extent
	b.cursor.format = format
	b.cursor.data = append(b.cursor.data[:0], data...)
	b.cursor.dirty = true
	return nil
}

// SetCursorPos moves the cursor. Only the placement rectangle changes; no
// re-upload is required. If the rectangle size differs from the texture
// extent, the cursor is rendered with a linear filter.
//
// Safe to call from a goroutine other than the presenting one.
func (b *Blitter) SetCursorPos(rect Rect) {
	b.mu.Lock()
	b.cursor.rect = rect
	b.mu.Unlock()
}

// buildGammaLUT interpolates the ordered control points across the output
// domain into size rgba16float texels.
func buildGammaLUT(cps []GammaControlPoint, size uint32) []byte {
	vals := make([]float32, 0, size*4)
	n := len(cps)
	for i := uint32(0); i < size; i++ {
		// Position within the control point sequence.
		p := float64(i) / float64(size-1) * float64(n-1)
		lo := int(p)
		hi := lo + 1
		if hi >= n {
			hi = n - 1
		}
		t := float32(p - float64(lo))
		vals = append(vals,
			lerpU16(cps[lo].R, cps[hi].R, t),
			lerpU16(cps[lo].G, cps[hi].G, t),
			lerpU16(cps[lo].B, cps[hi].B, t),
			lerpU16(cps[lo].A, cps[hi].A, t))
	}
	buf := make([]byte, len(vals)*2)
	half.ConvertFloat32ToBytes(buf, vals)
	return buf
}

func lerpU16(a, b uint16, t float32) float32 {
	fa := float32(a) / 65535.0
	fb := float32(b) / 65535.0
	return fa + (fb-fa)*t
}

// identityLUT returns a two-texel identity ramp. It backs the gamma
// binding whenever no ramp is active, since every binding in the group
// must hold a valid resource even when the shader never samples it.
func identityLUT() []byte {
	vals := []float32{0, 0, 0, 0, 1, 1, 1, 1}
	buf := make([]byte, len(vals)*2)
	half.ConvertFloat32ToBytes(buf, vals)
	return buf
}

// flushGammaLocked uploads a pending gamma LUT and releases the texture of
// a disabled ramp. Caller holds b.mu and runs on the presenting goroutine;
// copies are recorded before the render pass begins.
func (b *Blitter) flushGammaLocked(rec CommandRecorder, frame *frameResources) error {
	if b.gamma.cpCount == 0 {
		if b.gamma.tex != nil {
			b.device.DestroyTextureView(b.gamma.view)
			b.device.DestroyTexture(b.gamma.tex)
			b.gamma.tex = nil
			b.gamma.view = nil
		}
		return nil
	}
	if !b.gamma.dirty {
		return nil
	}

	if b.gamma.tex == nil {
		tex, view, err := b.createOverlayTexture(
			b.opts.labelPrefix+"_gamma_lut",
			Extent{Width: b.opts.gammaLUTSize, Height: 1},
			gputypes.TextureFormatRGBA16Float)
		if err != nil {
			return fmt.Errorf("create gamma lookup texture: %w", err)
		}
		b.gamma.tex = tex
		b.gamma.view = view
	}

	if err := b.stageTextureUpload(rec, frame, b.gamma.tex,
		Extent{Width: b.opts.gammaLUTSize, Height: 1}, 8, b.gamma.lut,
		b.opts.labelPrefix+"_gamma_staging"); err != nil {
		return err
	}
	b.gamma.dirty = false
	return nil
}

// flushCursorLocked uploads a pending cursor image, (re)allocating the
// texture if the extent or format changed since the last upload. Caller
// holds b.mu and runs on the presenting goroutine.
func (b *Blitter) flushCursorLocked(rec CommandRecorder, frame *frameResources) error {
	if !b.cursor.dirty {
		return nil
	}

	if b.cursor.tex != nil {
		b.device.DestroyTextureView(b.cursor.view)
		b.device.DestroyTexture(b.cursor.tex)
		b.cursor.tex = nil
		b.cursor.view = nil
	}

	tex, view, err := b.createOverlayTexture(
		b.opts.labelPrefix+"_cursor", b.cursor.extent, b.cursor.format)
	if err != nil {
		return fmt.Errorf("create cursor texture: %w", err)
	}
	b.cursor.tex = tex
	b.cursor.view = view

	stride := formatBytesPerPixel(b.cursor.format)
	if err := b.stageTextureUpload(rec, frame, b.cursor.tex,
		b.cursor.extent, stride, b.cursor.data,
		b.opts.labelPrefix+"_cursor_staging"); err != nil {
		return err
	}
	b.cursor.dirty = false
	return nil
}

// createOverlayTexture creates a sampleable copy-destination texture with
// its default view.
func (b *Blitter) createOverlayTexture(label string, extent Extent, format gputypes.TextureFormat) (hal.Texture, hal.TextureView, error) {
	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: extent.Width, Height: extent.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, nil, err
	}
	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: label + "_view",
	})
	if err != nil {
		b.device.DestroyTexture(tex)
		return nil, nil, err
	}
	return tex, view, nil
}

// stageTextureUpload copies a tightly packed pixel buffer into an aligned
// staging buffer and records a buffer-to-texture copy. The staging buffer
// joins the frame's transient resources and is released after the frame.
func (b *Blitter) stageTextureUpload(rec CommandRecorder, frame *frameResources, dst hal.Texture, extent Extent, bytesPerPixel uint32, data []byte, label string) error {
	tightBPR := extent.Width * bytesPerPixel
	alignedBPR := (tightBPR + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)

	staged := data
	if alignedBPR != tightBPR {
		staged = make([]byte, uint64(alignedBPR)*uint64(extent.Height))
		for row := uint32(0); row < extent.Height; row++ {
			copy(staged[row*alignedBPR:], data[row*tightBPR:(row+1)*tightBPR])
		}
	}

	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(staged)),
		Usage: gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create %s: %w", label, err)
	}
	frame.buffers = append(frame.buffers, buf)
	b.queue.WriteBuffer(buf, 0, staged)

	rec.CopyBufferToTexture(buf, dst, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  alignedBPR,
			RowsPerImage: extent.Height,
		},
		TextureBase: hal.ImageCopyTexture{Texture: dst, MipLevel: 0},
		Size:        hal.Extent3D{Width: extent.Width, Height: extent.Height, DepthOrArrayLayers: 1},
	}})
	return nil
}
