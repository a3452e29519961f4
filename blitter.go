// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package present

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// blitParamsSize is the byte size of the per-draw uniform block.
const blitParamsSize = 48

// frameResources are the transient GPU objects of one present: the per-draw
// uniform buffers and bind groups, plus any staging buffers for overlay
// uploads. They stay alive until the next BeginPresent so the recorded
// commands can still reference them after EndPresent returns.
type frameResources struct {
	buffers    []hal.Buffer
	bindGroups []hal.BindGroup
}

func (f *frameResources) release(device Device) {
	for _, bg := range f.bindGroups {
		device.DestroyBindGroup(bg)
	}
	f.bindGroups = f.bindGroups[:0]
	for _, buf := range f.buffers {
		device.DestroyBuffer(buf)
	}
	f.buffers = f.buffers[:0]
}

// cursorSnapshot is the cursor state captured under the lock at
// BeginPresent. The draw itself runs without the lock.
type cursorSnapshot struct {
	active bool
	view   hal.TextureView
	extent Extent
	rect   Rect
	format gputypes.TextureFormat
}

// Blitter composites a rendered source image onto a presentation image,
// applying scaling, multisample resolve, color-space conversion, gamma
// correction, and a software cursor overlay in a single render pass.
//
// Create one per swap chain with NewBlitter and release it with Destroy.
// BeginPresent and EndPresent must be paired and called from a single
// presenting goroutine; the overlay setters (SetGammaRamp,
// SetCursorTexture, SetCursorPos) may be called from any goroutine.
type Blitter struct {
	device Device
	queue  Queue
	opts   blitterOptions

	// layoutSS/layoutMS differ only in the source texture binding:
	// sampled 2D versus multisampled 2D.
	layoutSS hal.BindGroupLayout
	layoutMS hal.BindGroupLayout

	pipeLayoutSS hal.PipelineLayout
	pipeLayoutMS hal.PipelineLayout

	samplerNearest hal.Sampler
	samplerLinear  hal.Sampler

	// identityTex backs the gamma binding whenever no ramp is active.
	identityTex  hal.Texture
	identityView hal.TextureView

	cache pipelineCache

	// mu guards the overlay state and the destroyed flag. The presenting
	// goroutine holds it only briefly at BeginPresent, to flush pending
	// uploads and snapshot the state for the frame.
	mu        sync.Mutex
	gamma     gammaState
	cursor    cursorState
	destroyed bool

	// Present sequencing state. Touched only by the presenting
	// goroutine, so no lock.
	presenting bool
	pass       RenderPass
	frame      frameResources
}

// NewBlitter creates a presentation blitter on the given device and queue.
// The blitter never creates or owns a device; both are borrowed from the
// host for the blitter's lifetime.
func NewBlitter(device Device, queue Queue, opts ...Option) (*Blitter, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if queue == nil {
		return nil, ErrNilQueue
	}

	options := defaultBlitterOptions()
	for _, opt := range opts {
		opt(&options)
	}

	b := &Blitter{
		device: device,
		queue:  queue,
		opts:   options,
		cache:  newPipelineCache(),
	}

	if err := b.createLayouts(); err != nil {
		b.Destroy()
		return nil, err
	}
	if err := b.createSamplers(); err != nil {
		b.Destroy()
		return nil, err
	}
	if err := b.createIdentityLUT(); err != nil {
		b.Destroy()
		return nil, err
	}

	Logger().Debug("present: blitter created",
		"gammaLUTSize", options.gammaLUTSize,
		"labelPrefix", options.labelPrefix)
	return b, nil
}

func (b *Blitter) createLayouts() error {
	entries := func(multisampled bool) []gputypes.BindGroupLayoutEntry {
		srcSampleType := gputypes.TextureSampleTypeFloat
		if multisampled {
			// Multisampled textures cannot be filtered.
			srcSampleType = gputypes.TextureSampleTypeUnfilterableFloat
		}
		return []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    srcSampleType,
					ViewDimension: gputypes.TextureViewDimension2D,
					Multisampled:  multisampled,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
			{
				Binding:    3,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    4,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		}
	}

	var err error
	b.layoutSS, err = b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   b.opts.labelPrefix + "_layout",
		Entries: entries(false),
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	b.layoutMS, err = b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   b.opts.labelPrefix + "_layout_ms",
		Entries: entries(true),
	})
	if err != nil {
		return fmt.Errorf("create multisample bind group layout: %w", err)
	}

	b.pipeLayoutSS, err = b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            b.opts.labelPrefix + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{b.layoutSS},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	b.pipeLayoutMS, err = b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            b.opts.labelPrefix + "_pipe_layout_ms",
		BindGroupLayouts: []hal.BindGroupLayout{b.layoutMS},
	})
	if err != nil {
		return fmt.Errorf("create multisample pipeline layout: %w", err)
	}
	return nil
}

func (b *Blitter) createSamplers() error {
	var err error
	b.samplerNearest, err = b.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        b.opts.labelPrefix + "_sampler_nearest",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return fmt.Errorf("create nearest sampler: %w", err)
	}
	b.samplerLinear, err = b.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        b.opts.labelPrefix + "_sampler_linear",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return fmt.Errorf("create linear sampler: %w", err)
	}
	return nil
}

// createIdentityLUT uploads the two-texel identity ramp bound at the gamma
// slot when no ramp is active. Uploaded once through the queue at creation
// time; a single row needs no pitch alignment.
func (b *Blitter) createIdentityLUT() error {
	tex, view, err := b.createOverlayTexture(
		b.opts.labelPrefix+"_gamma_identity",
		Extent{Width: 2, Height: 1},
		gputypes.TextureFormatRGBA16Float)
	if err != nil {
		return fmt.Errorf("create identity lookup texture: %w", err)
	}
	b.identityTex = tex
	b.identityView = view

	data := identityLUT()
	b.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
		data,
		&hal.ImageDataLayout{BytesPerRow: uint32(len(data)), RowsPerImage: 1},
		&hal.Extent3D{Width: 2, Height: 1, DepthOrArrayLayers: 1})
	return nil
}

// BeginPresent records the presentation blit into rec and returns the open
// render pass so the caller can layer extra rendering (debug HUDs and the
// like) before EndPresent closes it.
//
// Pending overlay updates are flushed first: SetGammaRamp and
// SetCursorTexture calls that completed before BeginPresent are visible in
// this present, later ones in the next.
//
// A zero srcRect means all of src; a zero dstRect means all of dst. When
// dstRect does not cover the whole target, the remainder is cleared to
// opaque black.
func (b *Blitter) BeginPresent(rec CommandRecorder, dst Target, src Source, srcRect, dstRect Rect) (RenderPass, error) {
	if rec == nil {
		return nil, ErrNilRecorder
	}
	if dst.View == nil {
		return nil, ErrNilTargetView
	}
	if src.View == nil {
		return nil, ErrNilSourceView
	}
	if b.presenting {
		Logger().Warn("present: BeginPresent while a present is already open")
		return nil, ErrAlreadyPresenting
	}

	// The previous present's commands have been submitted by now, so its
	// transients can finally go.
	b.frame.release(b.device)

	if srcRect.Extent.IsZero() {
		srcRect = Rect{Extent: src.Extent}
	}
	if dstRect.Extent.IsZero() {
		dstRect = Rect{Extent: dst.Extent}
	}

	// Flush pending overlay uploads and snapshot the state for this
	// frame. Copies must be recorded before the render pass opens.
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return nil, ErrDestroyed
	}
	if err := b.flushGammaLocked(rec, &b.frame); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	if err := b.flushCursorLocked(rec, &b.frame); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	gammaActive := b.gamma.cpCount > 0
	gammaView := b.identityView
	if gammaActive {
		gammaView = b.gamma.view
	}
	cursor := cursorSnapshot{
		active: b.cursor.tex != nil && !b.cursor.rect.Extent.IsZero(),
		view:   b.cursor.view,
		extent: b.cursor.extent,
		rect:   b.cursor.rect,
		format: b.cursor.format,
	}
	b.mu.Unlock()

	cursorVisible := cursor.active && cursor.rect.Intersects(dstRect)

	key := PipelineKey{
		SrcSpace:      src.ColorSpace.effective(),
		SrcSamples:    src.samples(),
		SrcIsSRGB:     formatIsSRGB(src.Format),
		DstSpace:      dst.ColorSpace.effective(),
		DstFormat:     dst.Format,
		NeedsBlit:     srcRect.Extent != dstRect.Extent,
		NeedsGamma:    gammaActive,
		NeedsBlending: cursorVisible,
	}

	pipeline, err := b.cache.getOrCreate(key, b.buildPipeline)
	if err != nil {
		return nil, fmt.Errorf("blit pipeline: %w", err)
	}

	loadOp := gputypes.LoadOpLoad
	fullCoverage := dstRect.Offset == (Offset{}) && dstRect.Extent == dst.Extent
	if !fullCoverage {
		// Letterbox borders are cleared, not inherited.
		loadOp = gputypes.LoadOpClear
	}
	rp := rec.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: b.opts.labelPrefix + "_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       dst.View,
			LoadOp:     loadOp,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{A: 1},
		}},
	})

	mainSampler := b.samplerNearest
	if key.NeedsBlit {
		mainSampler = b.samplerLinear
	}
	filterBox := key.NeedsBlit &&
		(dstRect.Extent.Width < srcRect.Extent.Width ||
			dstRect.Extent.Height < srcRect.Extent.Height)
	if err := b.recordDraw(rp, pipeline, blitParams{
		srcRect:      srcRect,
		dstRect:      dstRect,
		targetExtent: dst.Extent,
		filterBox:    filterBox,
	}, src.View, key.SrcSamples > 1, mainSampler, gammaView); err != nil {
		rp.End()
		return nil, err
	}

	if cursorVisible {
		if err := b.recordCursorDraw(rp, dst, cursor, gammaActive, gammaView); err != nil {
			rp.End()
			return nil, err
		}
	}

	b.presenting = true
	b.pass = rp
	return rp, nil
}

// recordCursorDraw composites the cursor over the blitted image. The cursor
// is alpha-blended, sampled point when the placement rectangle matches the
// texture extent and linearly otherwise.
func (b *Blitter) recordCursorDraw(rp RenderPass, dst Target, cursor cursorSnapshot, gammaActive bool, gammaView hal.TextureView) error {
	scaled := cursor.rect.Extent != cursor.extent
	key := PipelineKey{
		SrcSpace:      ColorSpaceSRGB,
		SrcSamples:    1,
		SrcIsSRGB:     formatIsSRGB(cursor.format),
		DstSpace:      dst.ColorSpace.effective(),
		DstFormat:     dst.Format,
		NeedsBlit:     scaled,
		NeedsGamma:    gammaActive,
		NeedsBlending: true,
	}
	pipeline, err := b.cache.getOrCreate(key, b.buildPipeline)
	if err != nil {
		return fmt.Errorf("cursor pipeline: %w", err)
	}

	sampler := b.samplerNearest
	if scaled {
		sampler = b.samplerLinear
	}
	return b.recordDraw(rp, pipeline, blitParams{
		srcRect:      Rect{Extent: cursor.extent},
		dstRect:      cursor.rect,
		targetExtent: dst.Extent,
	}, cursor.view, false, sampler, gammaView)
}

// recordDraw uploads the per-draw uniform block, builds the bind group, and
// issues the six-vertex quad.
func (b *Blitter) recordDraw(rp RenderPass, pipeline *blitPipeline, params blitParams, srcView hal.TextureView, multisampled bool, sampler hal.Sampler, gammaView hal.TextureView) error {
	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: b.opts.labelPrefix + "_params",
		Size:  blitParamsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create params buffer: %w", err)
	}
	b.frame.buffers = append(b.frame.buffers, buf)
	b.queue.WriteBuffer(buf, 0, params.pack())

	layout := b.layoutSS
	if multisampled {
		layout = b.layoutMS
	}
	bg, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  b.opts.labelPrefix + "_bind_group",
		Layout: layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle()}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: srcView.NativeHandle()}},
			{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: sampler.NativeHandle()}},
			{Binding: 3, Resource: gputypes.TextureViewBinding{TextureView: gammaView.NativeHandle()}},
			{Binding: 4, Resource: gputypes.SamplerBinding{Sampler: b.samplerLinear.NativeHandle()}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	b.frame.bindGroups = append(b.frame.bindGroups, bg)

	rp.SetPipeline(pipeline.pipeline)
	rp.SetBindGroup(0, bg, nil)
	rp.Draw(6, 1, 0, 0)
	return nil
}

// EndPresent closes the render pass opened by BeginPresent. When
// dst.Texture is set, it also records the usage transition that hands the
// image off for display.
//
// The caller still owns encoder finalization and submission.
func (b *Blitter) EndPresent(rec CommandRecorder, dst Target) error {
	if rec == nil {
		return ErrNilRecorder
	}
	if !b.presenting {
		Logger().Warn("present: EndPresent without a matching BeginPresent")
		return ErrNotPresenting
	}

	b.pass.End()
	b.pass = nil
	b.presenting = false

	if dst.Texture != nil {
		rec.TransitionTextures([]hal.TextureBarrier{{
			Texture: dst.Texture,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageRenderAttachment,
				NewUsage: gputypes.TextureUsageCopySrc,
			},
		}})
	}
	return nil
}

// CacheStats returns the pipeline cache hit and compile counts. Compiles
// stay small and flat once the swap chain configuration settles; a growing
// count signals churning formats or color spaces.
func (b *Blitter) CacheStats() (hits, misses uint64) {
	return b.cache.stats()
}

// Destroy releases every GPU object the blitter owns. The device and queue
// are borrowed and stay untouched. Destroy must not race an in-flight
// present; after it returns, all blitter methods fail with ErrDestroyed
// where they can and are otherwise no-ops.
func (b *Blitter) Destroy() {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	b.destroyed = true

	if b.gamma.tex != nil {
		b.device.DestroyTextureView(b.gamma.view)
		b.device.DestroyTexture(b.gamma.tex)
		b.gamma = gammaState{}
	}
	if b.cursor.tex != nil {
		b.device.DestroyTextureView(b.cursor.view)
		b.device.DestroyTexture(b.cursor.tex)
		b.cursor = cursorState{}
	}
	b.mu.Unlock()

	b.frame.release(b.device)
	b.cache.destroyAll(b.device)

	if b.identityView != nil {
		b.device.DestroyTextureView(b.identityView)
		b.identityView = nil
	}
	if b.identityTex != nil {
		b.device.DestroyTexture(b.identityTex)
		b.identityTex = nil
	}
	if b.samplerNearest != nil {
		b.device.DestroySampler(b.samplerNearest)
		b.samplerNearest = nil
	}
	if b.samplerLinear != nil {
		b.device.DestroySampler(b.samplerLinear)
		b.samplerLinear = nil
	}
	if b.pipeLayoutSS != nil {
		b.device.DestroyPipelineLayout(b.pipeLayoutSS)
		b.pipeLayoutSS = nil
	}
	if b.pipeLayoutMS != nil {
		b.device.DestroyPipelineLayout(b.pipeLayoutMS)
		b.pipeLayoutMS = nil
	}
	if b.layoutSS != nil {
		b.device.DestroyBindGroupLayout(b.layoutSS)
		b.layoutSS = nil
	}
	if b.layoutMS != nil {
		b.device.DestroyBindGroupLayout(b.layoutMS)
		b.layoutMS = nil
	}

	Logger().Debug("present: blitter destroyed")
}

// blitParams is the per-draw uniform block. Field order and padding mirror
// the shader-side struct.
type blitParams struct {
	srcRect      Rect
	dstRect      Rect
	targetExtent Extent
	filterBox    bool
}

func (p blitParams) pack() []byte {
	buf := make([]byte, blitParamsSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:], uint32(p.srcRect.Offset.X))
	le.PutUint32(buf[4:], uint32(p.srcRect.Offset.Y))
	le.PutUint32(buf[8:], p.srcRect.Extent.Width)
	le.PutUint32(buf[12:], p.srcRect.Extent.Height)
	le.PutUint32(buf[16:], uint32(p.dstRect.Offset.X))
	le.PutUint32(buf[20:], uint32(p.dstRect.Offset.Y))
	le.PutUint32(buf[24:], p.dstRect.Extent.Width)
	le.PutUint32(buf[28:], p.dstRect.Extent.Height)
	le.PutUint32(buf[32:], p.targetExtent.Width)
	le.PutUint32(buf[36:], p.targetExtent.Height)
	if p.filterBox {
		le.PutUint32(buf[40:], 1)
	}
	return buf
}
