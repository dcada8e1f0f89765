package analysis

import (
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

// Metrics contains distance and similarity measurements between two audio signals.
type Metrics struct {
	SampleRate int `json:"sample_rate"`

	ReferenceFrames int `json:"reference_frames"`
	CandidateFrames int `json:"candidate_frames"`
	AlignedFrames   int `json:"aligned_frames"`
	LagSamples      int `json:"lag_samples"`

	TimeRMSE        float64 `json:"time_rmse"`
	EnvelopeRMSEDB  float64 `json:"envelope_rmse_db"`
	SpectralRMSEDB  float64 `json:"spectral_rmse_db"`
	RefPitchHz      float64 `json:"ref_pitch_hz"`
	CandPitchHz     float64 `json:"cand_pitch_hz"`
	PitchDiffCents  float64 `json:"pitch_diff_cents"`
	RefDecayDBPerS  float64 `json:"ref_decay_db_per_s"`
	CandDecayDBPerS float64 `json:"cand_decay_db_per_s"`
	DecayDiffDBPerS float64 `json:"decay_diff_db_per_s"`

	TimeNorm     float64 `json:"time_norm"`
	EnvelopeNorm float64 `json:"envelope_norm"`
	SpectralNorm float64 `json:"spectral_norm"`
	PitchNorm    float64 `json:"pitch_norm"`
	DecayNorm    float64 `json:"decay_norm"`
	Dominant     string  `json:"dominant"` // component contributing most to Score

	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

const (
	envelopeFrame = 256
	envelopeHop   = 128
)

// Score weights of the normalized components.
const (
	WeightTime     = 0.25
	WeightEnvelope = 0.20
	WeightSpectral = 0.25
	WeightPitch    = 0.20
	WeightDecay    = 0.10
)

// Compare returns objective distance metrics and a combined score in [0,1].
func Compare(reference []float64, candidate []float64, sampleRate int) Metrics {
	m := Metrics{
		SampleRate:      sampleRate,
		ReferenceFrames: len(reference),
		CandidateFrames: len(candidate),
	}
	if sampleRate <= 0 || len(reference) == 0 || len(candidate) == 0 {
		m.Score = 1.0
		m.Similarity = 0.0
		return m
	}

	ref := trimLeadingSilence(reference, 1e-6)
	cand := trimLeadingSilence(candidate, 1e-6)
	if len(ref) == 0 || len(cand) == 0 {
		m.Score = 1.0
		m.Similarity = 0.0
		return m
	}

	maxFrames := sampleRate * 12
	ref = ref[:min(len(ref), maxFrames)]
	cand = cand[:min(len(cand), maxFrames)]

	ref = normalizeRMS(ref, 0.1)
	cand = normalizeRMS(cand, 0.1)

	maxLag := min(sampleRate/2, len(ref)-1, len(cand)-1)
	maxLag = max(maxLag, 1)
	lag := estimateLag(ref, cand, maxLag)
	m.LagSamples = lag

	refA, candA := alignByLag(ref, cand, lag)
	n := min(len(refA), len(candA))
	if n < 256 {
		m.Score = 1.0
		m.Similarity = 0.0
		return m
	}
	refA = refA[:n]
	candA = candA[:n]
	m.AlignedFrames = n

	m.TimeRMSE = rmse(refA, candA)

	refEnv := RMSEnvelope(refA, envelopeFrame, envelopeHop)
	candEnv := RMSEnvelope(candA, envelopeFrame, envelopeHop)
	envN := min(len(refEnv), len(candEnv))
	if envN > 0 {
		envDiff := make([]float64, envN)
		for i := 0; i < envN; i++ {
			envDiff[i] = LinToDB(refEnv[i]) - LinToDB(candEnv[i])
		}
		m.EnvelopeRMSEDB = rms1(envDiff)
	}

	m.SpectralRMSEDB = spectralRMSEDB(refA, candA)

	m.RefPitchHz = DominantFrequency(refA, sampleRate)
	m.CandPitchHz = DominantFrequency(candA, sampleRate)
	if m.RefPitchHz > 0 && m.CandPitchHz > 0 {
		m.PitchDiffCents = math.Abs(1200 * math.Log2(m.CandPitchHz/m.RefPitchHz))
	}

	hopSec := float64(envelopeHop) / float64(sampleRate)
	m.RefDecayDBPerS = decaySlopeDBPerS(refEnv, hopSec)
	m.CandDecayDBPerS = decaySlopeDBPerS(candEnv, hopSec)
	if isFinite(m.RefDecayDBPerS) && isFinite(m.CandDecayDBPerS) {
		m.DecayDiffDBPerS = math.Abs(m.RefDecayDBPerS - m.CandDecayDBPerS)
	}

	// Normalize sub-metrics and combine.
	m.TimeNorm = clamp01(m.TimeRMSE / 0.25)
	m.EnvelopeNorm = clamp01(m.EnvelopeRMSEDB / 30.0)
	m.SpectralNorm = clamp01(m.SpectralRMSEDB / 30.0)
	m.PitchNorm = clamp01(m.PitchDiffCents / 100.0)
	m.DecayNorm = clamp01(m.DecayDiffDBPerS / 40.0)

	parts := []struct {
		name    string
		contrib float64
	}{
		{"time", WeightTime * m.TimeNorm},
		{"envelope", WeightEnvelope * m.EnvelopeNorm},
		{"spectral", WeightSpectral * m.SpectralNorm},
		{"pitch", WeightPitch * m.PitchNorm},
		{"decay", WeightDecay * m.DecayNorm},
	}
	sum, top := 0.0, -1.0
	for _, c := range parts {
		sum += c.contrib
		if c.contrib > top {
			top = c.contrib
			m.Dominant = c.name
		}
	}
	m.Score = clamp01(sum)
	m.Similarity = clamp01(math.Exp(-4.0 * m.Score))

	return m
}

// RMSEnvelope returns the RMS level of x over frames of the given length,
// spaced hop samples apart. It returns nil if x is shorter than one frame.
func RMSEnvelope(x []float64, frame int, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	n := 1 + (len(x)-frame)/hop
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hop
		out[i] = rms1(x[start : start+frame])
	}
	return out
}

// LinToDB converts a linear magnitude to decibels, flooring at -240 dB.
func LinToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}

// DominantFrequency estimates the strongest spectral peak of x in Hz.
//
// A Hann-windowed FFT of the central part of x is searched for the largest
// bin above DC, refined by parabolic interpolation on the log magnitude.
// It returns 0 when x is too short or silent.
func DominantFrequency(x []float64, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	n := fftSizeFor(len(x), 1<<16)
	if n < 64 {
		return 0
	}
	start := (len(x) - n) / 2
	buf := make([]float64, n)
	for i := range buf {
		buf[i] = x[start+i] * hann(i, n)
	}

	mags, ok := magnitudeSpectrum(buf)
	if !ok {
		return 0
	}
	peak := 1
	for k := 2; k < len(mags)-1; k++ {
		if mags[k] > mags[peak] {
			peak = k
		}
	}
	if mags[peak] <= 1e-12 {
		return 0
	}

	offset := 0.0
	if peak > 0 && peak < len(mags)-1 {
		a := LinToDB(mags[peak-1])
		b := LinToDB(mags[peak])
		c := LinToDB(mags[peak+1])
		if den := a - 2*b + c; den != 0 {
			offset = 0.5 * (a - c) / den
		}
	}
	return (float64(peak) + offset) * float64(sampleRate) / float64(n)
}

func trimLeadingSilence(x []float64, threshold float64) []float64 {
	for i := 0; i < len(x); i++ {
		if math.Abs(x[i]) > threshold {
			return x[i:]
		}
	}
	return nil
}

func normalizeRMS(x []float64, target float64) []float64 {
	if len(x) == 0 {
		return x
	}
	r := rms1(x)
	if r <= 1e-12 {
		return append([]float64(nil), x...)
	}
	g := target / r
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] * g
	}
	return out
}

// estimateLag returns the shift in [-maxLag, maxLag] that maximizes the cross
// correlation sum ref[i+lag]*cand[i]. The correlation is computed as an FFT
// convolution of ref with the reversed candidate.
func estimateLag(ref []float64, cand []float64, maxLag int) int {
	if len(ref) == 0 || len(cand) == 0 {
		return 0
	}
	a := make([]float32, len(ref))
	for i, v := range ref {
		a[i] = float32(v)
	}
	b := make([]float32, len(cand))
	for i, v := range cand {
		b[len(cand)-1-i] = float32(v)
	}
	corr := make([]float32, len(a)+len(b)-1)
	if err := algofft.ConvolveReal(corr, a, b); err != nil {
		return estimateLagDirect(ref, cand, maxLag)
	}

	// corr[k] holds the correlation at lag k-(len(cand)-1).
	zero := len(cand) - 1
	bestLag := 0
	best := math.Inf(-1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		k := zero + lag
		if k < 0 || k >= len(corr) {
			continue
		}
		if s := float64(corr[k]); s > best {
			best = s
			bestLag = lag
		}
	}
	return bestLag
}

func estimateLagDirect(ref []float64, cand []float64, maxLag int) int {
	bestLag := 0
	best := math.Inf(-1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		if s := dotAtLag(ref, cand, lag); s > best {
			best = s
			bestLag = lag
		}
	}
	return bestLag
}

func dotAtLag(a []float64, b []float64, lag int) float64 {
	var ai, bi int
	if lag >= 0 {
		ai = lag
	} else {
		bi = -lag
	}
	n := min(len(a)-ai, len(b)-bi)
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[ai+i] * b[bi+i]
	}
	return sum
}

func alignByLag(ref []float64, cand []float64, lag int) ([]float64, []float64) {
	if lag >= 0 {
		if lag >= len(ref) {
			return nil, nil
		}
		return ref[lag:], cand
	}
	o := -lag
	if o >= len(cand) {
		return nil, nil
	}
	return ref, cand[o:]
}

func rmse(a []float64, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

func rms1(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func spectralRMSEDB(a []float64, b []float64) float64 {
	n := fftSizeFor(min(len(a), len(b)), 4096)
	if n < 512 {
		return 0
	}
	aw := make([]float64, n)
	bw := make([]float64, n)
	for i := 0; i < n; i++ {
		w := hann(i, n)
		aw[i] = a[i] * w
		bw[i] = b[i] * w
	}
	ma, okA := magnitudeSpectrum(aw)
	mb, okB := magnitudeSpectrum(bw)
	if !okA || !okB {
		return 0
	}
	bins := n / 2
	var sum float64
	for k := 1; k < bins; k++ {
		d := LinToDB(ma[k]) - LinToDB(mb[k])
		sum += d * d
	}
	return math.Sqrt(sum / float64(bins-1))
}

// magnitudeSpectrum returns |X[k]| for k in [0, n/2].
func magnitudeSpectrum(x []float64) ([]float64, bool) {
	plan, err := algofft.NewPlanReal64(len(x))
	if err != nil {
		return nil, false
	}
	spec := make([]complex128, len(x)/2+1)
	plan.Forward(spec, x)
	mags := make([]float64, len(spec))
	for k, c := range spec {
		mags[k] = cmplx.Abs(c)
	}
	return mags, true
}

// fftSizeFor returns the largest power of two not above n or limit.
func fftSizeFor(n, limit int) int {
	size := 1
	for size*2 <= n && size*2 <= limit {
		size *= 2
	}
	if size > n {
		return 0
	}
	return size
}

func hann(i, n int) float64 {
	return 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
}

func decaySlopeDBPerS(env []float64, hopSec float64) float64 {
	if len(env) < 8 || hopSec <= 0 {
		return math.NaN()
	}
	peak := -math.MaxFloat64
	peakIdx := 0
	for i, v := range env {
		db := LinToDB(v)
		if db > peak {
			peak = db
			peakIdx = i
		}
	}
	start := peakIdx + 1
	if start >= len(env)-4 {
		return math.NaN()
	}

	threshold := peak - 60.0
	end := len(env)
	for i := start; i < len(env); i++ {
		if LinToDB(env[i]) < threshold {
			end = i
			break
		}
	}
	if end-start < 6 {
		return math.NaN()
	}

	var sx, sy, sxx, sxy float64
	n := float64(end - start)
	for i := start; i < end; i++ {
		x := float64(i-start) * hopSec
		y := LinToDB(env[i])
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	den := n*sxx - sx*sx
	if math.Abs(den) < 1e-12 {
		return math.NaN()
	}
	return (n*sxy - sx*sy) / den
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
