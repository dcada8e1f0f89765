package sid

// Voice is one oscillator bank with its envelope generator.
//
// Parameters are applied once per block with Apply; Process then renders the
// block sample by sample. Neither allocates.
type Voice struct {
	sampleRate float64
	silent     bool // invalid sample rate
	params     VoiceParams
	increment  float64 // frequency / sampleRate

	clock uint64 // samples rendered since construction
	env   envelope

	pulsePhase    phaseAccumulator
	trianglePhase phaseAccumulator
	sawPhase      phaseAccumulator
	noise         noiseLFSR
}

// NewVoice creates an idle voice. An invalid sample rate yields a voice that
// renders silence.
func NewVoice(sampleRate float64) *Voice {
	v := &Voice{
		sampleRate: sampleRate,
		silent:     !validSampleRate(sampleRate),
		noise:      noiseSeed,
	}
	v.Apply(DefaultVoiceParams())
	return v
}

// Apply copies a parameter snapshot into the voice and handles gate edges.
// Out-of-range values are clamped.
func (v *Voice) Apply(p VoiceParams) {
	p = p.sanitized()
	v.params = p
	v.env.params = p.Envelope
	if validSampleRate(v.sampleRate) {
		v.increment = p.Frequency / v.sampleRate
	} else {
		v.increment = 0
	}
	v.env.setGate(p.Gate, v.clock)
}

// Next renders one sample.
func (v *Voice) Next() float32 {
	v.clock++

	ws := v.params.Waveforms
	// Only the noise register is conditional; the phases always run.
	if ws&WaveNoise != 0 {
		v.noise.clock()
	}

	amp := v.env.tick(v.clock, v.sampleRate)

	v.pulsePhase.advance(v.increment)
	v.trianglePhase.advance(v.increment)
	v.sawPhase.advance(v.increment)

	var sum float64
	active := 0
	if ws&WavePulse != 0 {
		sum += pulseWave(float64(v.pulsePhase), v.params.PulseWidth)
		active++
	}
	if ws&WaveTriangle != 0 {
		sum += triangleWave(float64(v.trianglePhase))
		active++
	}
	if ws&WaveSawtooth != 0 {
		sum += sawtoothWave(float64(v.sawPhase))
		active++
	}
	if ws&WaveNoise != 0 {
		sum += v.noise.output()
		active++
	}
	if active > 1 {
		sum /= float64(active)
	}
	if v.silent {
		return 0
	}

	return float32(sum * amp)
}

// Process renders len(out) samples into out.
func (v *Voice) Process(out []float32) {
	for i := range out {
		out[i] = v.Next()
	}
}

// Phase returns the current envelope phase.
func (v *Voice) Phase() EnvelopePhase { return v.env.phase }

// Amplitude returns the envelope level of the most recent sample.
func (v *Voice) Amplitude() float64 { return v.env.level }

// SampleClock returns the number of samples rendered so far.
func (v *Voice) SampleClock() uint64 { return v.clock }

// PhaseStart returns the sample clock at which the current envelope phase began.
func (v *Voice) PhaseStart() uint64 { return v.env.start }

// NoiseRegister returns the 23-bit noise shift register.
func (v *Voice) NoiseRegister() uint32 { return uint32(v.noise) }

// Phases returns the pulse, triangle and sawtooth phase accumulators.
func (v *Voice) Phases() (pulse, triangle, sawtooth float64) {
	return float64(v.pulsePhase), float64(v.trianglePhase), float64(v.sawPhase)
}

// Params returns the clamped parameters currently in effect.
func (v *Voice) Params() VoiceParams { return v.params }

// Enabled reports the host's master enable flag. It does not affect output.
func (v *Voice) Enabled() bool { return v.params.Enabled }

// SampleRate returns the rate the voice was built for.
func (v *Voice) SampleRate() float64 { return v.sampleRate }
