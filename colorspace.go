package present

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// ColorSpace identifies the encoding and gamut convention of pixel values
// in an image. It is deliberately coarse: the blitter only needs to know
// which transfer function to decode on read and encode on write.
type ColorSpace uint32

const (
	// ColorSpaceSRGB is the sRGB non-linear transfer function over the
	// sRGB gamut. The default for swap chain images.
	ColorSpaceSRGB ColorSpace = iota

	// ColorSpaceLinear is linear light, extended sRGB gamut.
	ColorSpaceLinear

	// ColorSpaceHDR10 is the BT.2020 gamut with the ST.2084 PQ transfer
	// function.
	ColorSpaceHDR10
)

// String returns a human-readable name for the color space.
func (c ColorSpace) String() string {
	switch c {
	case ColorSpaceSRGB:
		return "sRGB"
	case ColorSpaceLinear:
		return "Linear"
	case ColorSpaceHDR10:
		return "HDR10"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(c))
	}
}

// known reports whether the blitter has a transfer function for c.
// Unknown color spaces degrade to linear (identity transform) rather than
// failing: presentation must not stop for a cosmetic mismatch.
func (c ColorSpace) known() bool {
	switch c {
	case ColorSpaceSRGB, ColorSpaceLinear, ColorSpaceHDR10:
		return true
	default:
		return false
	}
}

// effective maps unknown color spaces to linear for shader specialization.
func (c ColorSpace) effective() ColorSpace {
	if !c.known() {
		Logger().Warn("present: unknown color space, treating as linear",
			"colorSpace", uint32(c))
		return ColorSpaceLinear
	}
	return c
}

// formatIsSRGB reports whether a texture format stores gamma-encoded values.
// Format sRGB-ness only matters when source and destination disagree in
// encoding independent of their nominal color spaces.
func formatIsSRGB(f gputypes.TextureFormat) bool {
	switch f {
	case gputypes.TextureFormatRGBA8UnormSrgb, gputypes.TextureFormatBGRA8UnormSrgb:
		return true
	default:
		return false
	}
}

// formatBytesPerPixel returns the tightly-packed byte stride of the formats
// accepted for cursor textures, or 0 for unsupported formats.
func formatBytesPerPixel(f gputypes.TextureFormat) uint32 {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
		return 4
	case gputypes.TextureFormatR8Unorm:
		return 1
	default:
		return 0
	}
}
