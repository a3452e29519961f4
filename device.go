// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package present

import (
	"github.com/gogpu/wgpu/hal"
)

// Device is the narrow slice of the owning graphics device the blitter
// consumes. gogpu/wgpu's hal.Device satisfies it directly; tests substitute
// lightweight doubles.
//
// Key principle: the blitter RECEIVES the device from the host, it does NOT
// create one. Device and context creation belong to the surrounding runtime.
type Device interface {
	CreateBuffer(*hal.BufferDescriptor) (hal.Buffer, error)
	DestroyBuffer(hal.Buffer)

	CreateTexture(*hal.TextureDescriptor) (hal.Texture, error)
	DestroyTexture(hal.Texture)
	CreateTextureView(hal.Texture, *hal.TextureViewDescriptor) (hal.TextureView, error)
	DestroyTextureView(hal.TextureView)

	CreateSampler(*hal.SamplerDescriptor) (hal.Sampler, error)
	DestroySampler(hal.Sampler)

	CreateBindGroupLayout(*hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error)
	DestroyBindGroupLayout(hal.BindGroupLayout)
	CreateBindGroup(*hal.BindGroupDescriptor) (hal.BindGroup, error)
	DestroyBindGroup(hal.BindGroup)

	CreatePipelineLayout(*hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error)
	DestroyPipelineLayout(hal.PipelineLayout)

	CreateShaderModule(*hal.ShaderModuleDescriptor) (hal.ShaderModule, error)
	DestroyShaderModule(hal.ShaderModule)

	CreateRenderPipeline(*hal.RenderPipelineDescriptor) (hal.RenderPipeline, error)
	DestroyRenderPipeline(hal.RenderPipeline)
}

// Queue is the submission queue surface the blitter needs for direct
// uploads. hal.Queue satisfies it.
type Queue interface {
	WriteBuffer(buffer hal.Buffer, offset uint64, data []byte)
	WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D)
}

// RenderPass is the subset of render pass recording the blitter issues and
// that callers may use to layer additional rendering between BeginPresent
// and EndPresent. hal.RenderPassEncoder satisfies it.
type RenderPass interface {
	SetPipeline(pipeline hal.RenderPipeline)
	SetBindGroup(index uint32, group hal.BindGroup, dynamicOffsets []uint32)
	SetVertexBuffer(slot uint32, buffer hal.Buffer, offset uint64)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	End()
}

// CommandRecorder is the command recording surface a present records
// through: one render pass, staged buffer-to-image copies for overlay
// uploads, and the final image layout transition. Wrap a hal.CommandEncoder
// with [Recorder] to obtain one.
type CommandRecorder interface {
	BeginRenderPass(desc *hal.RenderPassDescriptor) RenderPass
	CopyBufferToTexture(src hal.Buffer, dst hal.Texture, regions []hal.BufferTextureCopy)
	TransitionTextures(barriers []hal.TextureBarrier)
}

// halRecorder adapts a hal.CommandEncoder to the CommandRecorder interface.
type halRecorder struct {
	enc hal.CommandEncoder
}

// Recorder wraps a hal.CommandEncoder for use with BeginPresent and
// EndPresent. The encoder must be in the recording state; the blitter never
// begins, ends, or submits the encoder itself.
func Recorder(enc hal.CommandEncoder) CommandRecorder {
	if enc == nil {
		return nil
	}
	return &halRecorder{enc: enc}
}

func (r *halRecorder) BeginRenderPass(desc *hal.RenderPassDescriptor) RenderPass {
	return r.enc.BeginRenderPass(desc)
}

func (r *halRecorder) CopyBufferToTexture(src hal.Buffer, dst hal.Texture, regions []hal.BufferTextureCopy) {
	r.enc.CopyBufferToTexture(src, dst, regions)
}

func (r *halRecorder) TransitionTextures(barriers []hal.TextureBarrier) {
	r.enc.TransitionTextures(barriers)
}
