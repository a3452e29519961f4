package present

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// blitPipeline is one compiled compositing pipeline variant together with
// the resources that exist only for it. The cache exclusively owns every
// blitPipeline it creates.
type blitPipeline struct {
	key      PipelineKey
	shader   hal.ShaderModule
	pipeline hal.RenderPipeline
}

func (p *blitPipeline) destroy(device Device) {
	if p.pipeline != nil {
		device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.shader != nil {
		device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

// pipelineCache maps a PipelineKey to a compiled pipeline, creating on
// first use. Entries are never evicted; the key space is bounded by the
// format and color-space combinations actually encountered.
//
// Thread safety: safe for concurrent use. It uses RWMutex with double-check
// locking so that two lookups of the same key can never compile two
// independent pipelines, while lookups of different keys only contend on
// the map itself.
type pipelineCache struct {
	mu sync.RWMutex

	// buckets indexes entries by PipelineKey.Hash(). Keys that collide
	// share a bucket and are disambiguated with PipelineKey.Eq.
	buckets map[uint64][]*blitPipeline

	// hits counts cache hits (atomic for lock-free reads).
	hits uint64

	// misses counts compilations (atomic for lock-free reads).
	misses uint64
}

func newPipelineCache() pipelineCache {
	return pipelineCache{buckets: make(map[uint64][]*blitPipeline)}
}

// lookupLocked scans the bucket for key. Caller holds mu in either mode.
func (c *pipelineCache) lookupLocked(hash uint64, key PipelineKey) *blitPipeline {
	for _, entry := range c.buckets[hash] {
		if entry.key.Eq(key) {
			return entry
		}
	}
	return nil
}

// getOrCreate returns the cached pipeline for key, compiling it via build
// on first encounter. Compilation runs synchronously on the caller's
// goroutine while the write lock is held, which is what guarantees a
// single pipeline object per key.
func (c *pipelineCache) getOrCreate(key PipelineKey, build func(PipelineKey) (*blitPipeline, error)) (*blitPipeline, error) {
	hash := key.Hash()

	// Fast path: read lock
	c.mu.RLock()
	if entry := c.lookupLocked(hash, key); entry != nil {
		c.mu.RUnlock()
		atomic.AddUint64(&c.hits, 1)
		return entry, nil
	}
	c.mu.RUnlock()

	// Slow path: write lock with double-check
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry := c.lookupLocked(hash, key); entry != nil {
		atomic.AddUint64(&c.hits, 1)
		return entry, nil
	}

	entry, err := build(key)
	if err != nil {
		return nil, err
	}
	c.buckets[hash] = append(c.buckets[hash], entry)
	atomic.AddUint64(&c.misses, 1)

	Logger().Debug("present: compiled blit pipeline",
		"variant", variantForKey(key).String(),
		"samples", key.SrcSamples,
		"srcSpace", key.SrcSpace.String(),
		"dstSpace", key.DstSpace.String(),
		"gamma", key.NeedsGamma,
		"blend", key.NeedsBlending)

	return entry, nil
}

// stats returns the number of cache hits and compilations.
func (c *pipelineCache) stats() (hits, misses uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses)
}

// size returns the number of cached pipelines.
func (c *pipelineCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, bucket := range c.buckets {
		n += len(bucket)
	}
	return n
}

// destroyAll destroys every cached pipeline and clears the cache.
func (c *pipelineCache) destroyAll(device Device) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, bucket := range c.buckets {
		for _, entry := range bucket {
			entry.destroy(device)
		}
	}
	c.buckets = make(map[uint64][]*blitPipeline)
	atomic.StoreUint64(&c.hits, 0)
	atomic.StoreUint64(&c.misses, 0)
}

// buildPipeline compiles the pipeline variant for key. Called by the cache
// under its write lock on the presenting goroutine; compilation failure is
// fatal to the present that needed the pipeline.
func (b *Blitter) buildPipeline(key PipelineKey) (*blitPipeline, error) {
	variant := variantForKey(key)
	label := fmt.Sprintf("%s_%s", b.opts.labelPrefix, variant)

	shader, err := buildShaderModule(b.device, label+"_shader", key)
	if err != nil {
		return nil, err
	}

	layout := b.pipeLayoutSS
	if key.SrcSamples > 1 {
		layout = b.pipeLayoutMS
	}

	var blend *gputypes.BlendState
	if key.NeedsBlending {
		premul := gputypes.BlendStatePremultiplied()
		blend = &premul
	}

	pipeline, err := b.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     shader,
			EntryPoint: variant.String(),
			Targets: []gputypes.ColorTargetState{
				{
					Format:    key.DstFormat,
					Blend:     blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		b.device.DestroyShaderModule(shader)
		return nil, fmt.Errorf("create %s pipeline: %w", variant, err)
	}

	return &blitPipeline{key: key, shader: shader, pipeline: pipeline}, nil
}
