package sid

import (
	"math"
	"testing"
)

func TestFilterModesHandComputed(t *testing.T) {
	// sr=4 gives nyquist 2, so cutoff 1 is f=0.5; resonance 0.5 is q=0.5.
	cases := []struct {
		mode FilterMode
		want [2]float32
	}{
		{FilterOff, [2]float32{1, 1}},
		{FilterLowpass, [2]float32{0.25, 0.625}},
		{FilterHighpass, [2]float32{0.5, 0}},
		{FilterBandpass, [2]float32{0.5, 0.75}},
		{FilterNotch, [2]float32{0.75, 0.625}},
	}
	for _, tc := range cases {
		f := NewFilter(4)
		f.Apply(FilterParams{Cutoff: 1, Resonance: 0.5, Gain: 1, Mode: tc.mode})
		for i, want := range tc.want {
			if got := f.Next(1); got != want {
				t.Fatalf("%s sample %d: got=%v want=%v", tc.mode, i, got, want)
			}
		}
		low, band := f.State()
		if low != 0.625 || band != 0.75 {
			t.Fatalf("%s: state (%f, %f), want (0.625, 0.75)", tc.mode, low, band)
		}
	}
}

func TestFilterGainScalesOutput(t *testing.T) {
	f := NewFilter(4)
	f.Apply(FilterParams{Cutoff: 1, Resonance: 0.5, Gain: 0.5, Mode: FilterBandpass})
	if got := f.Next(1); got != 0.25 {
		t.Fatalf("got=%v want=0.25", got)
	}
}

func TestFilterOffPassesInputButKeepsIntegrating(t *testing.T) {
	f := NewFilter(48000)
	f.Apply(FilterParams{Cutoff: 2000, Resonance: 0.3, Gain: 1, Mode: FilterOff})
	in := sine(300, 48000, 512, 0.5)
	out := make([]float32, len(in))
	f.Process(in, out)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("off mode altered sample %d: %v -> %v", i, in[i], out[i])
		}
	}
	if low, band := f.State(); low == 0 && band == 0 {
		t.Fatalf("integrators must keep running while off")
	}
}

func TestFilterStateSurvivesModeSwitch(t *testing.T) {
	f := NewFilter(48000)
	p := FilterParams{Cutoff: 1500, Resonance: 0.6, Gain: 1, Mode: FilterLowpass}
	f.Apply(p)
	in := sine(220, 48000, 300, 0.5)
	f.Process(in, make([]float32, len(in)))

	low, band := f.State()
	for _, m := range []FilterMode{FilterHighpass, FilterOff, FilterNotch, FilterBandpass} {
		p.Mode = m
		f.Apply(p)
		if l, b := f.State(); l != low || b != band {
			t.Fatalf("switching to %s changed state: (%g,%g) -> (%g,%g)", m, low, band, l, b)
		}
	}

	p.Cutoff = 9000
	p.Resonance = 0.1
	f.Apply(p)
	if l, b := f.State(); l != low || b != band {
		t.Fatalf("parameter change reset the integrators")
	}
}

func TestFilterLowpassAtNyquistIsTransparent(t *testing.T) {
	// With f=1 and q=1 the lowpass integrator tracks the input every sample.
	f := NewFilter(48000)
	f.Apply(FilterParams{Cutoff: 24000, Resonance: 0, Gain: 1, Mode: FilterLowpass})
	in := sine(5000, 48000, 1024, 0.8)
	out := make([]float32, len(in))
	f.Process(in, out)
	for i := range in {
		if math.Abs(float64(out[i]-in[i])) > 1e-6 {
			t.Fatalf("sample %d: got=%v want=%v", i, out[i], in[i])
		}
	}
}

func TestFilterLowpassAttenuatesAboveCutoff(t *testing.T) {
	const sampleRate = 48000
	render := func(freq float64) float64 {
		f := NewFilter(sampleRate)
		f.Apply(FilterParams{Cutoff: 1000, Resonance: 0, Gain: 1, Mode: FilterLowpass})
		in := sine(freq, sampleRate, sampleRate/2, 0.5)
		out := make([]float32, len(in))
		f.Process(in, out)
		return windowRMS(out[len(out)/2:])
	}
	pass := render(100)
	stop := render(8000)
	if pass < 0.25 {
		t.Fatalf("100 Hz should pass, rms=%f", pass)
	}
	if stop > 0.1*pass {
		t.Fatalf("8 kHz not attenuated: pass=%f stop=%f", pass, stop)
	}
}

func TestFilterHighpassAttenuatesBelowCutoff(t *testing.T) {
	const sampleRate = 48000
	render := func(freq float64) float64 {
		f := NewFilter(sampleRate)
		f.Apply(FilterParams{Cutoff: 4000, Resonance: 0, Gain: 1, Mode: FilterHighpass})
		in := sine(freq, sampleRate, sampleRate/2, 0.5)
		out := make([]float32, len(in))
		f.Process(in, out)
		return windowRMS(out[len(out)/2:])
	}
	if low, high := render(50), render(12000); low > 0.1*high {
		t.Fatalf("50 Hz not attenuated: low=%f high=%f", low, high)
	}
}

func TestFilterClampsParameters(t *testing.T) {
	f := NewFilter(48000)
	f.Apply(FilterParams{Cutoff: 1e6, Resonance: -1, Gain: 2, Mode: FilterMode(7)})
	p := f.Params()
	if p.Cutoff != 24000 || p.Resonance != 0 || p.Gain != 1 || p.Mode != FilterOff {
		t.Fatalf("unexpected clamped params: %+v", p)
	}
	if c, d := f.Coefficients(); c != 1 || d != 1 {
		t.Fatalf("unexpected coefficients: f=%f q=%f", c, d)
	}

	f.Apply(FilterParams{Cutoff: -10, Resonance: math.NaN(), Gain: math.NaN(), Mode: FilterLowpass})
	p = f.Params()
	if p.Cutoff != 0 || p.Resonance != 0 || p.Gain != 0 {
		t.Fatalf("negative/NaN params not clamped: %+v", p)
	}
}

func TestFilterFullResonanceStaysFinite(t *testing.T) {
	f := NewFilter(48000)
	for _, m := range []FilterMode{FilterLowpass, FilterHighpass, FilterBandpass, FilterNotch} {
		f.Apply(FilterParams{Cutoff: 24000, Resonance: 1, Gain: 1, Mode: m})
		v := NewVoice(48000)
		in := renderBlocks(v, sustainedParams(997, WaveAll), 48000, 128, nil)
		out := make([]float32, len(in))
		f.Process(in, out)
		assertFinite(t, out)
	}
}

func TestFilterRecoversFromNonFiniteInput(t *testing.T) {
	f := NewFilter(48000)
	f.Apply(FilterParams{Cutoff: 1000, Resonance: 0.5, Gain: 1, Mode: FilterBandpass})
	f.Next(0.5)
	if got := f.Next(float32(math.NaN())); got != 0 {
		t.Fatalf("NaN input must produce silence, got %v", got)
	}
	if low, band := f.State(); low != 0 || band != 0 {
		t.Fatalf("state not cleared after NaN: (%f,%f)", low, band)
	}
	if got := f.Next(float32(math.Inf(1))); got != 0 {
		t.Fatalf("Inf input must produce silence, got %v", got)
	}
	out := make([]float32, 256)
	f.Process(sine(440, 48000, 256, 0.5), out)
	assertFinite(t, out)
	if windowRMS(out) == 0 {
		t.Fatalf("filter did not recover after reset")
	}
}

func TestFilterOffKeepsPassthroughAcrossStateReset(t *testing.T) {
	f := NewFilter(48000)
	f.Apply(FilterParams{Cutoff: 1000, Resonance: 0.5, Gain: 0.5, Mode: FilterOff})
	f.low = math.Inf(1)
	if got := f.Next(0.8); got != 0.4 {
		t.Fatalf("off mode should pass input through after a reset, got %v", got)
	}
	if low, band := f.State(); low != 0 || band != 0 {
		t.Fatalf("state not cleared: (%f,%f)", low, band)
	}

	f.Apply(FilterParams{Cutoff: 1000, Resonance: 0.5, Gain: 0.5, Mode: FilterLowpass})
	f.band = math.NaN()
	if got := f.Next(0.8); got != 0 {
		t.Fatalf("filtered modes output silence on reset, got %v", got)
	}
}

func TestFilterInvalidSampleRatePassesThrough(t *testing.T) {
	f := NewFilter(0)
	f.Apply(FilterParams{Cutoff: 1000, Resonance: 0.9, Gain: 0.5, Mode: FilterLowpass})
	if got := f.Next(0.8); got != 0.4 {
		t.Fatalf("got=%v want=0.4", got)
	}
	if low, band := f.State(); low != 0 || band != 0 {
		t.Fatalf("state must stay untouched, got (%f,%f)", low, band)
	}
}

func TestParseFilterMode(t *testing.T) {
	cases := map[string]FilterMode{
		"":         FilterOff,
		"off":      FilterOff,
		"LP":       FilterLowpass,
		"lowpass":  FilterLowpass,
		" hp ":     FilterHighpass,
		"bandpass": FilterBandpass,
		"notch":    FilterNotch,
	}
	for in, want := range cases {
		got, err := ParseFilterMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseFilterMode(%q) = %v, %v; want %v", in, got, err, want)
		}
		if got.String() == "" {
			t.Fatalf("empty name for %v", got)
		}
	}
	if _, err := ParseFilterMode("comb"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestFilterProcessDoesNotAllocate(t *testing.T) {
	f := NewFilter(48000)
	p := FilterParams{Cutoff: 1200, Resonance: 0.7, Gain: 0.8, Mode: FilterNotch}
	buf := sine(440, 48000, DefaultBlockSize, 0.5)
	allocs := testing.AllocsPerRun(100, func() {
		f.Apply(p)
		f.Process(buf, buf)
	})
	if allocs != 0 {
		t.Fatalf("expected no allocations per block, got %v", allocs)
	}
}
