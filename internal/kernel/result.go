package kernel

// Record is the per-pixel result-stream entry spec.md §6 defines:
// {iterations, flags, z_norm_sq, final_z, final_derivative}, all in
// caller-facing f32 precision.
type Record struct {
	Iterations     uint32
	Flags          Flags
	ZNormSq        float32
	FinalZRe       float32
	FinalZIm       float32
	FinalDerRe     float32
	FinalDerIm     float32
}

// ToRecord renders a pixel's persistent state into the caller-facing
// result-stream record. Call once a pixel is done (escaped or the
// iteration cap reached) — calling it mid-chunk is harmless but the
// final_z/final_derivative fields are only meaningful once escaped.
func (s *PixelState) ToRecord() Record {
	return Record{
		Iterations: s.N,
		Flags:      s.Flags,
		ZNormSq:    float32(s.ZNormSq),
		FinalZRe:   float32(s.FinalZRe),
		FinalZIm:   float32(s.FinalZIm),
		FinalDerRe: float32(s.FinalDerRe),
		FinalDerIm: float32(s.FinalDerIm),
	}
}
