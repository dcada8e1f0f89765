package dsp

import (
	"math"

	"github.com/cwbudde/algo-approx"
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
)

const (
	// Corner frequencies of the chip's external RC output network.
	OutputHighpassHz = 16.0
	OutputLowpassHz  = 16000.0

	butterworthQ = 0.7071067811865476
)

// FlushDenormals converts denormal numbers to zero to avoid performance issues.
func FlushDenormals(x float64) float64 {
	return dspcore.FlushDenormals(x)
}

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// OutputStage models the RC network behind a sound chip's output pin: a DC
// blocking highpass followed by a gentle lowpass. No heap allocations in Process.
type OutputStage struct {
	hp biquad.Section
	lp biquad.Section
}

// NewOutputStage creates an output stage for the given sample rate. The
// lowpass corner is kept below Nyquist; an invalid rate yields a passthrough.
func NewOutputStage(sampleRate float64) *OutputStage {
	hp := biquad.Coefficients{B0: 1}
	lp := biquad.Coefficients{B0: 1}
	if sampleRate > 0 && IsFinite(sampleRate) {
		hp = highpassCoefficients(OutputHighpassHz, sampleRate, butterworthQ)
		lpHz := math.Min(OutputLowpassHz, 0.45*sampleRate)
		lp = lowpassCoefficients(lpHz, sampleRate, butterworthQ)
	}
	return &OutputStage{
		hp: *biquad.NewSection(hp),
		lp: *biquad.NewSection(lp),
	}
}

// ProcessSample filters one sample.
func (o *OutputStage) ProcessSample(x float64) float64 {
	y := o.lp.ProcessSample(o.hp.ProcessSample(x))
	return FlushDenormals(y)
}

// Process filters buf in place.
func (o *OutputStage) Process(buf []float32) {
	for i, x := range buf {
		buf[i] = float32(o.ProcessSample(float64(x)))
	}
}

// Reset clears the filter state.
func (o *OutputStage) Reset() {
	o.hp.Reset()
	o.lp.Reset()
}

// lowpassCoefficients computes RBJ lowpass coefficients normalized by a0.
func lowpassCoefficients(cutoff, sampleRate, q float64) biquad.Coefficients {
	w0 := 2.0 * math.Pi * cutoff / sampleRate
	alpha := math.Sin(w0) / (2.0 * q)
	cosw0 := math.Cos(w0)
	inv := 1.0 / (1.0 + alpha)

	return biquad.Coefficients{
		B0: ((1.0 - cosw0) / 2.0) * inv,
		B1: (1.0 - cosw0) * inv,
		B2: ((1.0 - cosw0) / 2.0) * inv,
		A1: (-2.0 * cosw0) * inv,
		A2: (1.0 - alpha) * inv,
	}
}

// highpassCoefficients computes RBJ highpass coefficients normalized by a0.
func highpassCoefficients(cutoff, sampleRate, q float64) biquad.Coefficients {
	w0 := 2.0 * math.Pi * cutoff / sampleRate
	alpha := math.Sin(w0) / (2.0 * q)
	cosw0 := math.Cos(w0)
	inv := 1.0 / (1.0 + alpha)

	return biquad.Coefficients{
		B0: ((1.0 + cosw0) / 2.0) * inv,
		B1: -(1.0 + cosw0) * inv,
		B2: ((1.0 + cosw0) / 2.0) * inv,
		A1: (-2.0 * cosw0) * inv,
		A2: (1.0 - alpha) * inv,
	}
}

// Smoother is a one-pole parameter smoother used to avoid zipper noise when
// a control value jumps between blocks.
type Smoother struct {
	coeff  float64
	value  float64
	target float64
}

// NewSmoother creates a smoother with the given time constant in seconds.
// A non-positive time makes it follow the target immediately.
func NewSmoother(sampleRate, timeSeconds, initial float64) *Smoother {
	s := &Smoother{value: initial, target: initial}
	if sampleRate > 0 && timeSeconds > 0 && IsFinite(sampleRate*timeSeconds) {
		s.coeff = float64(approx.FastExp(float32(-1.0 / (timeSeconds * sampleRate))))
	}
	return s
}

// SetTarget sets the value the smoother moves towards.
func (s *Smoother) SetTarget(v float64) {
	s.target = v
}

// Snap jumps straight to v.
func (s *Smoother) Snap(v float64) {
	s.value = v
	s.target = v
}

// Next advances one sample and returns the smoothed value.
func (s *Smoother) Next() float64 {
	s.value = s.target + s.coeff*(s.value-s.target)
	if math.Abs(s.value-s.target) < 1e-9 {
		s.value = s.target
	}
	return s.value
}

// Value returns the current smoothed value without advancing.
func (s *Smoother) Value() float64 {
	return s.value
}
