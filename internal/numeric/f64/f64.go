// Package f64 adapts the plain float64 backend to the cplx.Ops protocol,
// so the generic Complex[T] compiles against it exactly as it does
// against hpfloat.Float and hdr.HDR. The perturbation kernel itself runs
// on hdr.HDR only; this backend is exercised by internal/numeric/cplx's
// tests.
package f64

// F64 is float64 wrapped with the cplx.Ops method set.
type F64 float64

func (a F64) Add(b F64) F64    { return a + b }
func (a F64) Sub(b F64) F64    { return a - b }
func (a F64) Mul(b F64) F64    { return a * b }
func (a F64) Square() F64      { return a * a }
func (a F64) Neg() F64         { return -a }
func (a F64) Float64() float64 { return float64(a) }

// From lifts a native float64.
func From(x float64) F64 { return F64(x) }
