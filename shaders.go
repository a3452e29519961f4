package present

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// Embedded WGSL shader sources. Each pipeline variant is specialized by
// prepending a generated constant block before compilation, so constant
// folding removes the branches a given key never takes.

//go:embed shaders/blit_ss.wgsl
var blitShaderSS string

//go:embed shaders/blit_ms.wgsl
var blitShaderMS string

// shaderVariant selects one of the four fragment stage variants.
type shaderVariant int

const (
	variantCopy shaderVariant = iota
	variantBlit
	variantResolve
	variantResolveBlit
)

// String returns the fragment entry point for the variant.
func (v shaderVariant) String() string {
	switch v {
	case variantCopy:
		return "fs_copy"
	case variantBlit:
		return "fs_blit"
	case variantResolve:
		return "fs_resolve"
	case variantResolveBlit:
		return "fs_resolve_blit"
	default:
		return fmt.Sprintf("unknown(%d)", int(v))
	}
}

// variantForKey maps a pipeline key to its shader variant.
func variantForKey(key PipelineKey) shaderVariant {
	multisample := key.SrcSamples > 1
	switch {
	case multisample && key.NeedsBlit:
		return variantResolveBlit
	case multisample:
		return variantResolve
	case key.NeedsBlit:
		return variantBlit
	default:
		return variantCopy
	}
}

// specConstants are the compile-time parameters baked into a pipeline
// variant, as opposed to the per-draw values in blitParams.
type specConstants struct {
	SampleCount  uint32
	GammaBound   bool
	SrcSpace     ColorSpace
	SrcIsSRGB    bool
	DstSpace     ColorSpace
	DstIsSRGB    bool
	ConvertSpace bool
}

// specConstantsForKey derives the specialization constants from a key.
// Unknown color spaces have already been mapped to linear by the sequencer,
// and the conversion constant is false whenever the two spaces match, no
// matter what the per-format sRGB flags say.
func specConstantsForKey(key PipelineKey) specConstants {
	return specConstants{
		SampleCount:  key.SrcSamples,
		GammaBound:   key.NeedsGamma,
		SrcSpace:     key.SrcSpace,
		SrcIsSRGB:    key.SrcIsSRGB,
		DstSpace:     key.DstSpace,
		DstIsSRGB:    key.DstIsSRGB(),
		ConvertSpace: key.SrcSpace != key.DstSpace,
	}
}

// specializeShader prepends the constant block for sc to a WGSL source.
func specializeShader(src string, sc specConstants) string {
	return fmt.Sprintf(`const SAMPLE_COUNT: u32 = %du;
const GAMMA_BOUND: bool = %t;
const SPACE_SRC: u32 = %du;
const SRC_IS_SRGB: bool = %t;
const SPACE_DST: u32 = %du;
const DST_IS_SRGB: bool = %t;
const CONVERT_SPACE: bool = %t;
%s`,
		sc.SampleCount, sc.GammaBound,
		uint32(sc.SrcSpace), sc.SrcIsSRGB,
		uint32(sc.DstSpace), sc.DstIsSRGB,
		sc.ConvertSpace, src)
}

// compileShaderToSPIRV compiles WGSL source to a SPIR-V word slice.
func compileShaderToSPIRV(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words.
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return spirvCode, nil
}

// buildShaderModule specializes, compiles, and wraps the shader for key.
func buildShaderModule(device Device, label string, key PipelineKey) (hal.ShaderModule, error) {
	src := blitShaderSS
	if key.SrcSamples > 1 {
		src = blitShaderMS
	}
	code, err := compileShaderToSPIRV(specializeShader(src, specConstantsForKey(key)))
	if err != nil {
		return nil, err
	}
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module: %w", err)
	}
	return module, nil
}
