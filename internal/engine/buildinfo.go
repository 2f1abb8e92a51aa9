package engine

// BuildTimestamp is this binary's own build fingerprint (spec.md §3.8
// "buildTimestamp[30]", invariant I11: "Image is valid only if ...
// buildTimestamp byte-equals the current firmware's compile timestamp").
// The original firmware bakes in its compiler's __DATE__/__TIME__; Go has
// no equivalent compile-time constant, so this is set via
// `-ldflags "-X .../internal/engine.BuildTimestamp=..."` at build time.
// Left at its zero value, every image this binary mints or reads shares
// the same (empty) fingerprint, which is a valid, if unhelpful, choice for
// local development — CI/release builds are expected to stamp a real one.
var BuildTimestamp string

func fingerprintBytes() [30]byte {
	var out [30]byte
	copy(out[:], BuildTimestamp)
	return out
}

// Fingerprint exposes this binary's build fingerprint to callers outside
// this package that open a flash.Manager independently of New — cmd/ilengine's
// dump command mounts a partition read-back without building a full Engine,
// but still needs the same fingerprint Boot would check against.
func Fingerprint() [30]byte { return fingerprintBytes() }
