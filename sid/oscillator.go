package sid

import "math"

// phaseAccumulator holds a position within one waveform cycle, in [0,1).
type phaseAccumulator float64

func (p *phaseAccumulator) advance(inc float64) {
	v := float64(*p) + inc
	if v >= 1 {
		v -= math.Floor(v)
	}
	*p = phaseAccumulator(v)
}

// The periodic waveforms all span [-0.5, +0.5].

func pulseWave(phase, width float64) float64 {
	if phase < width {
		return 0.5
	}
	return -0.5
}

func triangleWave(phase float64) float64 {
	if phase < 0.5 {
		return 2*phase - 0.5
	}
	return 1.5 - 2*phase
}

func sawtoothWave(phase float64) float64 {
	return phase - 0.5
}
