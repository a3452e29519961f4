package present

// Option configures a Blitter during creation.
//
// Example:
//
//	// Default configuration
//	b, err := present.NewBlitter(device, queue)
//
//	// Custom gamma lookup resolution
//	b, err := present.NewBlitter(device, queue, present.WithGammaLUTSize(4096))
type Option func(*blitterOptions)

// blitterOptions holds optional configuration for Blitter creation.
type blitterOptions struct {
	gammaLUTSize uint32
	labelPrefix  string
}

// defaultBlitterOptions returns the default blitter options.
func defaultBlitterOptions() blitterOptions {
	return blitterOptions{
		gammaLUTSize: defaultGammaLUTSize,
		labelPrefix:  "present",
	}
}

// WithGammaLUTSize sets the resolution of the one-dimensional gamma lookup
// texture derived from the ramp control points. The default is 1024 texels,
// which preserves 10-bit output precision. Values below 2 are ignored.
func WithGammaLUTSize(texels uint32) Option {
	return func(o *blitterOptions) {
		if texels >= 2 {
			o.gammaLUTSize = texels
		}
	}
}

// WithLabelPrefix sets the debug-label prefix attached to every GPU object
// the blitter creates. The default is "present". Useful when a process owns
// several blitters and captures are inspected in a GPU debugger.
func WithLabelPrefix(prefix string) Option {
	return func(o *blitterOptions) {
		if prefix != "" {
			o.labelPrefix = prefix
		}
	}
}
