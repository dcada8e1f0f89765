package sid

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-sid/dsp"
)

// FilterMode selects the response of the resonant filter.
type FilterMode uint8

const (
	FilterOff FilterMode = iota
	FilterLowpass
	FilterHighpass
	FilterBandpass
	FilterNotch
)

func (m FilterMode) String() string {
	switch m {
	case FilterOff:
		return "off"
	case FilterLowpass:
		return "lowpass"
	case FilterHighpass:
		return "highpass"
	case FilterBandpass:
		return "bandpass"
	case FilterNotch:
		return "notch"
	}
	return fmt.Sprintf("FilterMode(%d)", uint8(m))
}

// ParseFilterMode parses a mode name such as "lowpass" or "lp".
func ParseFilterMode(s string) (FilterMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none", "bypass":
		return FilterOff, nil
	case "lowpass", "lp":
		return FilterLowpass, nil
	case "highpass", "hp":
		return FilterHighpass, nil
	case "bandpass", "bp":
		return FilterBandpass, nil
	case "notch", "br":
		return FilterNotch, nil
	}
	return FilterOff, fmt.Errorf("unknown filter mode %q (valid: off, lowpass, highpass, bandpass, notch)", s)
}

// Filter is a two-pole state-variable filter with selectable output.
//
// The low and band integrators are the whole filter memory. They persist
// across blocks, parameter changes and mode switches, including Off.
type Filter struct {
	sampleRate float64
	params     FilterParams

	// Coefficients, recomputed once per block.
	f float64 // normalized cutoff, min(1, cutoff/nyquist)
	q float64 // damping, 1 - resonance

	low  float64
	band float64
}

// NewFilter creates a filter in Off mode with unity gain.
func NewFilter(sampleRate float64) *Filter {
	f := &Filter{sampleRate: sampleRate}
	f.Apply(DefaultFilterParams())
	return f
}

// Apply copies a parameter snapshot into the filter. Out-of-range values are
// clamped and an unknown mode falls back to Off.
func (f *Filter) Apply(p FilterParams) {
	nyquist := 0.0
	if validSampleRate(f.sampleRate) {
		nyquist = f.sampleRate / 2
	}
	p.Cutoff = clamp(p.Cutoff, 0, nyquist)
	p.Resonance = clamp(p.Resonance, 0, 1)
	p.Gain = clamp(p.Gain, 0, 1)
	if p.Mode > FilterNotch {
		p.Mode = FilterOff
	}
	f.params = p

	f.q = 1 - p.Resonance
	if nyquist > 0 {
		f.f = math.Min(1, p.Cutoff/nyquist)
	} else {
		f.f = 0
	}
}

// Next filters one sample.
func (f *Filter) Next(x float32) float32 {
	in := float64(x)
	gain := f.params.Gain
	if !validSampleRate(f.sampleRate) {
		return finiteOrZero(in * gain)
	}

	f.band += f.f * (in - f.low - f.q*f.band)
	f.low += f.f * f.band
	high := in - f.low - f.q*f.band
	notch := high + f.low

	if !dsp.IsFinite(f.low) || !dsp.IsFinite(f.band) {
		f.Reset()
		if f.params.Mode == FilterOff {
			return finiteOrZero(in * gain)
		}
		return 0
	}

	var y float64
	switch f.params.Mode {
	case FilterLowpass:
		y = f.low
	case FilterHighpass:
		y = high
	case FilterBandpass:
		y = f.band
	case FilterNotch:
		y = notch
	default:
		y = in
	}

	f.low = dsp.FlushDenormals(f.low)
	f.band = dsp.FlushDenormals(f.band)

	return finiteOrZero(y * gain)
}

// Process filters in into out. in and out may be the same slice.
func (f *Filter) Process(in, out []float32) {
	n := len(in)
	if len(out) < n {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = f.Next(in[i])
	}
}

// State returns the lowpass and bandpass integrator values.
func (f *Filter) State() (low, band float64) {
	return f.low, f.band
}

// Reset clears the integrators. Normal operation never calls it.
func (f *Filter) Reset() {
	f.low = 0
	f.band = 0
}

// Params returns the clamped parameters currently in effect.
func (f *Filter) Params() FilterParams { return f.params }

// Coefficients returns the normalized cutoff and damping in use.
func (f *Filter) Coefficients() (cutoff, damping float64) {
	return f.f, f.q
}

func finiteOrZero(y float64) float32 {
	if !dsp.IsFinite(y) || math.Abs(y) > math.MaxFloat32 {
		return 0
	}
	return float32(y)
}
