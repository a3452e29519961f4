package present

import (
	"encoding/binary"
	"hash"
	"hash/fnv"

	"github.com/gogpu/gputypes"
)

// PipelineKey describes one compositing pipeline variant. Keys are value
// types, produced fresh per present and never mutated; every field
// participates in both Hash and Eq.
type PipelineKey struct {
	// SrcSpace is the source color space. If it does not match DstSpace,
	// the fragment stage converts the source to match the destination.
	SrcSpace ColorSpace

	// SrcSamples is the source sample count. It selects the shader
	// variant and is baked into it as a specialization constant.
	SrcSamples uint32

	// SrcIsSRGB reports whether the source format is sRGB-encoded.
	// Relevant for automatic color space conversion.
	SrcIsSRGB bool

	// DstSpace is the output color space.
	DstSpace ColorSpace

	// DstFormat is the output image format. Pipeline state, and also
	// determines the sRGB-ness of the output encoding.
	DstFormat gputypes.TextureFormat

	// NeedsBlit indicates the source and destination geometry differ.
	NeedsBlit bool

	// NeedsGamma indicates a gamma ramp is to be applied.
	NeedsGamma bool

	// NeedsBlending indicates alpha blending is required.
	NeedsBlending bool
}

// Hash computes an FNV-1a hash over every field. Equal keys always hash
// equal; unequal keys differ in at least one hashed field.
func (k PipelineKey) Hash() uint64 {
	h := fnv.New64a()
	hashWriteUint32(h, uint32(k.SrcSpace))
	hashWriteUint32(h, k.SrcSamples)
	hashWriteBool(h, k.SrcIsSRGB)
	hashWriteUint32(h, uint32(k.DstSpace))
	hashWriteUint32(h, uint32(k.DstFormat))
	hashWriteBool(h, k.NeedsBlit)
	hashWriteBool(h, k.NeedsGamma)
	hashWriteBool(h, k.NeedsBlending)
	return h.Sum64()
}

// Eq reports whether every field of both keys matches.
func (k PipelineKey) Eq(other PipelineKey) bool {
	return k == other
}

// DstIsSRGB reports whether the destination format is sRGB-encoded.
// Derived from DstFormat rather than stored, so it can never disagree
// with the pipeline state pulled from the same key.
func (k PipelineKey) DstIsSRGB() bool {
	return formatIsSRGB(k.DstFormat)
}

// hashWriteUint32 writes a uint32 to the hash.
func hashWriteUint32(h hash.Hash64, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = h.Write(buf[:])
}

// hashWriteBool writes a bool to the hash.
func hashWriteBool(h hash.Hash64, v bool) {
	if v {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}
}
