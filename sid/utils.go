package sid

import (
	"math"

	"github.com/cwbudde/algo-approx"
)

// NoteFrequency converts a semitone number (69 = A4) to a frequency in Hz.
func NoteFrequency(note int) float64 {
	const a4Freq = 440.0
	const a4Note = 69
	exponent := float32(note-a4Note) / 12.0
	return a4Freq * float64(pow2Approx(exponent))
}

func pow2Approx(x float32) float32 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}

// clamp limits v to [lo, hi]. NaN maps to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// nonNegative maps negative values and NaN to 0.
func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

func validSampleRate(sr float64) bool {
	return sr > 0 && !math.IsInf(sr, 0) && !math.IsNaN(sr)
}
