package sid

import "github.com/cwbudde/algo-sid/dsp"

// volumeSmoothing is the master volume de-zipper time constant in seconds.
const volumeSmoothing = 0.005

// Synth is one voice feeding one filter, followed by the output stage.
type Synth struct {
	sampleRate float64
	voice      *Voice
	filter     *Filter
	output     *dsp.OutputStage
	volume     *dsp.Smoother
	patch      Patch
	version    uint64
}

// NewSynth creates a synth with the default patch applied.
func NewSynth(sampleRate float64) *Synth {
	s := &Synth{
		sampleRate: sampleRate,
		voice:      NewVoice(sampleRate),
		filter:     NewFilter(sampleRate),
		output:     dsp.NewOutputStage(sampleRate),
	}
	p := DefaultPatch()
	s.volume = dsp.NewSmoother(sampleRate, volumeSmoothing, p.Output.Volume)
	s.Apply(p)
	return s
}

// Apply copies a full patch into the voice, filter and output stage.
func (s *Synth) Apply(p Patch) {
	p.Output.Volume = clamp(p.Output.Volume, 0, 1)
	if p.Output.ExternalFilter && !s.patch.Output.ExternalFilter {
		s.output.Reset()
	}
	s.voice.Apply(p.Voice)
	s.filter.Apply(p.Filter)
	s.volume.SetTarget(p.Output.Volume)

	p.Voice = s.voice.Params()
	p.Filter = s.filter.Params()
	s.patch = p
}

// Process renders one block into out.
//
// The voice always runs so its clock, phases and envelope keep moving. When
// the patch disables the voice, its bus is muted before the filter.
func (s *Synth) Process(out []float32) {
	s.voice.Process(out)
	if !s.patch.Voice.Enabled {
		clear(out)
	}
	s.filter.Process(out, out)

	ext := s.patch.Output.ExternalFilter
	for i, x := range out {
		y := float64(x) * s.volume.Next()
		if ext {
			y = s.output.ProcessSample(y)
		}
		out[i] = float32(y)
	}
}

// ProcessFrom applies the latest snapshot from slot, if it changed, and then
// renders one block.
func (s *Synth) ProcessFrom(slot *ParamSlot, out []float32) {
	if slot != nil {
		if v := slot.Version(); v != s.version {
			if p, ok := slot.Load(); ok {
				s.Apply(p)
				s.version = v
			}
		}
	}
	s.Process(out)
}

// Voice returns the synth's voice generator.
func (s *Synth) Voice() *Voice { return s.voice }

// Filter returns the synth's filter stage.
func (s *Synth) Filter() *Filter { return s.filter }

// Patch returns the clamped patch currently in effect.
func (s *Synth) Patch() Patch { return s.patch }

// SampleRate returns the rate the synth was built for.
func (s *Synth) SampleRate() float64 { return s.sampleRate }
