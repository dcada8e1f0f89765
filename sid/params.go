package sid

import "math/bits"

const (
	// MaxFrequency is the upper bound of the oscillator frequency in Hz.
	MaxFrequency = 20000.0

	// DefaultBlockSize matches the render quantum of a browser AudioWorklet.
	DefaultBlockSize = 128
)

// Waveforms is a set of oscillator waveforms. Any subset may be enabled.
type Waveforms uint8

const (
	WavePulse Waveforms = 1 << iota
	WaveTriangle
	WaveSawtooth
	WaveNoise

	WaveNone Waveforms = 0
	WaveAll            = WavePulse | WaveTriangle | WaveSawtooth | WaveNoise
)

// Has reports whether every waveform in w is enabled.
func (ws Waveforms) Has(w Waveforms) bool {
	return w != 0 && ws&w == w
}

// Count returns the number of enabled waveforms.
func (ws Waveforms) Count() int {
	return bits.OnesCount8(uint8(ws & WaveAll))
}

func (ws Waveforms) String() string {
	if ws&WaveAll == 0 {
		return "none"
	}
	s := ""
	for _, w := range []struct {
		bit  Waveforms
		name string
	}{
		{WavePulse, "pulse"},
		{WaveTriangle, "triangle"},
		{WaveSawtooth, "sawtooth"},
		{WaveNoise, "noise"},
	} {
		if ws&w.bit == 0 {
			continue
		}
		if s != "" {
			s += "+"
		}
		s += w.name
	}
	return s
}

// ParseWaveform maps a waveform name to its bit.
func ParseWaveform(name string) (Waveforms, bool) {
	switch name {
	case "pulse", "square":
		return WavePulse, true
	case "triangle", "tri":
		return WaveTriangle, true
	case "sawtooth", "saw":
		return WaveSawtooth, true
	case "noise":
		return WaveNoise, true
	}
	return WaveNone, false
}

// EnvelopeParams holds the ADSR times in seconds and the sustain level.
type EnvelopeParams struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// VoiceParams is the per-block control input of a Voice.
type VoiceParams struct {
	Frequency  float64
	PulseWidth float64
	Gate       bool
	Envelope   EnvelopeParams
	Waveforms  Waveforms

	// Enabled is carried through for the host. The voice itself never
	// gates its output on it.
	Enabled bool
}

// FilterParams is the per-block control input of a Filter.
type FilterParams struct {
	Cutoff    float64
	Resonance float64
	Gain      float64
	Mode      FilterMode
}

// OutputParams controls the Synth output stage.
type OutputParams struct {
	Volume         float64
	ExternalFilter bool
}

// Patch is a complete, internally consistent parameter set for one Synth.
type Patch struct {
	Voice  VoiceParams
	Filter FilterParams
	Output OutputParams
}

// DefaultVoiceParams returns the power-on voice settings.
func DefaultVoiceParams() VoiceParams {
	return VoiceParams{
		Frequency:  440,
		PulseWidth: 0.5,
		Envelope: EnvelopeParams{
			Attack:  0.1,
			Decay:   0.1,
			Sustain: 0.5,
			Release: 0.1,
		},
		Waveforms: WavePulse,
	}
}

// DefaultFilterParams returns a transparent filter setting.
func DefaultFilterParams() FilterParams {
	return FilterParams{
		Cutoff:    1000,
		Resonance: 0,
		Gain:      1,
		Mode:      FilterOff,
	}
}

// DefaultPatch creates default parameters for the whole chain.
func DefaultPatch() Patch {
	v := DefaultVoiceParams()
	v.Enabled = true
	return Patch{
		Voice:  v,
		Filter: DefaultFilterParams(),
		Output: OutputParams{Volume: 1},
	}
}

func (p VoiceParams) sanitized() VoiceParams {
	p.Frequency = clamp(p.Frequency, 0, MaxFrequency)
	p.PulseWidth = clamp(p.PulseWidth, 0, 1)
	p.Envelope.Attack = nonNegative(p.Envelope.Attack)
	p.Envelope.Decay = nonNegative(p.Envelope.Decay)
	p.Envelope.Release = nonNegative(p.Envelope.Release)
	p.Envelope.Sustain = clamp(p.Envelope.Sustain, 0, 1)
	p.Waveforms &= WaveAll
	return p
}
