// Package present composites a rendered source image onto a presentation
// surface immediately before the image reaches the display.
//
// # Overview
//
// The central type is [Blitter]. It performs exactly one fixed operation:
// blit a source image view onto a swap chain (or other presentation) image,
// applying color-space conversion, an optional spatial blit or multisample
// resolve, optional gamma correction, and an optional software cursor
// overlay. It does not implement general-purpose rendering.
//
// Rendering pipelines are selected by a [PipelineKey] derived from the
// request (formats, color spaces, sample count, and the blit/gamma/blending
// bits) and compiled lazily on first use. Compiled pipelines are cached for
// the lifetime of the Blitter and never evicted; the key space is small and
// bounded by the format and color-space combinations actually encountered.
//
// # Usage
//
//	blitter, err := present.NewBlitter(device, queue)
//	if err != nil {
//	    return err
//	}
//	defer blitter.Destroy()
//
//	// Per frame, on the render thread:
//	pass, err := blitter.BeginPresent(present.Recorder(encoder),
//	    dst, src, srcRect, dstRect)
//	if err != nil {
//	    return err
//	}
//	// Optionally record additional draws into pass (overlays, OSD, ...).
//	if err := blitter.EndPresent(present.Recorder(encoder), dst); err != nil {
//	    return err
//	}
//
// # Threading
//
// BeginPresent and EndPresent execute synchronously on the goroutine that
// drives presentation commands. [Blitter.SetGammaRamp],
// [Blitter.SetCursorTexture] and [Blitter.SetCursorPos] may be called from a
// different goroutine (for example an input thread); updates are applied
// atomically and become visible to the next BeginPresent. A present never
// observes a half-applied cursor or gamma update.
//
// # Backends
//
// The Blitter records through narrow interfaces ([Device], [Queue],
// [CommandRecorder]) that gogpu/wgpu's hal types satisfy directly. The
// sibling package softblit implements the same compositing semantics on the
// CPU for headless use and testing.
package present
