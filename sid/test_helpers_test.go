package sid

import (
	"math"
	"testing"
)

// sustainedParams returns a voice setting that reaches full level at once.
func sustainedParams(freq float64, ws Waveforms) VoiceParams {
	return VoiceParams{
		Frequency:  freq,
		PulseWidth: 0.5,
		Gate:       true,
		Envelope:   EnvelopeParams{Attack: 0, Decay: 0, Sustain: 1, Release: 0},
		Waveforms:  ws,
		Enabled:    true,
	}
}

// envelopeTrace records amplitude and phase after each sample.
type envelopeTrace struct {
	amp   []float64
	phase []EnvelopePhase
}

// at returns the trace entry for sample clock c (1-based).
func (tr *envelopeTrace) at(c uint64) (float64, EnvelopePhase) {
	return tr.amp[c-1], tr.phase[c-1]
}

// renderBlocks applies p once per block and renders n samples, appending the
// envelope state of each sample to tr.
func renderBlocks(v *Voice, p VoiceParams, n, block int, tr *envelopeTrace) []float32 {
	out := make([]float32, 0, n)
	buf := make([]float32, block)
	for n > 0 {
		m := block
		if m > n {
			m = n
		}
		v.Apply(p)
		for i := 0; i < m; i++ {
			buf[i] = v.Next()
			if tr != nil {
				tr.amp = append(tr.amp, v.Amplitude())
				tr.phase = append(tr.phase, v.Phase())
			}
		}
		out = append(out, buf[:m]...)
		n -= m
	}
	return out
}

func wrapDistance(phase float64) float64 {
	return math.Min(phase, 1-phase)
}

func assertFinite(t *testing.T, samples []float32) {
	t.Helper()
	for i, s := range samples {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			t.Fatalf("non-finite sample at %d: %v", i, s)
		}
	}
}

func maxAbs(samples []float32) float64 {
	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	return peak
}

func windowRMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func mean(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s)
	}
	return sum / float64(len(samples))
}

func sine(freq, sampleRate float64, n int, amp float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
	}
	return out
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
