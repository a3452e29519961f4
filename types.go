package present

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Offset is a signed position in pixels, top-left origin.
type Offset struct {
	X int32
	Y int32
}

// Extent is an unsigned size in pixels.
type Extent struct {
	Width  uint32
	Height uint32
}

// IsZero reports whether either dimension is zero.
func (e Extent) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

// Rect is a rectangle given by its top-left offset and its extent.
type Rect struct {
	Offset Offset
	Extent Extent
}

// SameGeometry reports whether two rectangles have identical offset and
// extent. Presents whose source and destination rectangles share geometry
// take the plain copy path instead of the blit path.
func (r Rect) SameGeometry(other Rect) bool {
	return r.Offset == other.Offset && r.Extent == other.Extent
}

// Intersects reports whether r and other overlap by at least one pixel.
func (r Rect) Intersects(other Rect) bool {
	if r.Extent.IsZero() || other.Extent.IsZero() {
		return false
	}
	ax0, ay0 := int64(r.Offset.X), int64(r.Offset.Y)
	ax1 := ax0 + int64(r.Extent.Width)
	ay1 := ay0 + int64(r.Extent.Height)
	bx0, by0 := int64(other.Offset.X), int64(other.Offset.Y)
	bx1 := bx0 + int64(other.Extent.Width)
	by1 := by0 + int64(other.Extent.Height)
	return ax0 < bx1 && bx0 < ax1 && ay0 < by1 && by0 < ay1
}

// GammaControlPoint is a single control point of a gamma ramp. Channel
// values cover the full uint16 range; the ramp maps input intensity to the
// interpolated control-point color.
type GammaControlPoint struct {
	R, G, B, A uint16
}

// Target identifies the presentation image a blit renders into.
//
// View must be usable as a render attachment. Texture is optional; when set,
// EndPresent records a usage transition on it so the image can be handed off
// for display. Extent is the full size of the image, which may be larger
// than the destination rectangle of a given present.
type Target struct {
	View       hal.TextureView
	Texture    hal.Texture
	Format     gputypes.TextureFormat
	ColorSpace ColorSpace
	Extent     Extent
}

// Source identifies the rendered image to present.
//
// SampleCount above 1 selects the multisample resolve pipeline variants.
// A zero SampleCount is treated as 1.
type Source struct {
	View        hal.TextureView
	Format      gputypes.TextureFormat
	ColorSpace  ColorSpace
	SampleCount uint32
	Extent      Extent
}

func (s Source) samples() uint32 {
	if s.SampleCount == 0 {
		return 1
	}
	return s.SampleCount
}
