package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cwbudde/algo-sid/sid"
)

// MaxEnvelopeTime bounds attack, decay and release in preset files, in seconds.
const MaxEnvelopeTime = 5.0

// File is the JSON schema for patch presets. Every field is optional and
// overrides the default patch when present.
type File struct {
	Frequency  *float64 `json:"frequency,omitempty"`
	PulseWidth *float64 `json:"pulse_width,omitempty"`
	Waveforms  []string `json:"waveforms"`
	Attack     *float64 `json:"attack,omitempty"`
	Decay      *float64 `json:"decay,omitempty"`
	Sustain    *float64 `json:"sustain,omitempty"`
	Release    *float64 `json:"release,omitempty"`
	Enabled    *bool    `json:"enabled,omitempty"`

	Filter *FilterSetting `json:"filter,omitempty"`
	Output *OutputSetting `json:"output,omitempty"`
}

// FilterSetting is the filter section of a preset file.
type FilterSetting struct {
	Mode      *string  `json:"mode,omitempty"`
	Cutoff    *float64 `json:"cutoff,omitempty"`
	Resonance *float64 `json:"resonance,omitempty"`
	Gain      *float64 `json:"gain,omitempty"`
}

// OutputSetting is the output section of a preset file.
type OutputSetting struct {
	Volume         *float64 `json:"volume,omitempty"`
	ExternalFilter *bool    `json:"external_filter,omitempty"`
}

// LoadJSON loads a preset JSON file and applies it on top of the default patch.
func LoadJSON(path string) (sid.Patch, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return sid.Patch{}, err
	}
	p, err := Parse(b)
	if err != nil {
		return sid.Patch{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes preset JSON and applies it on top of the default patch.
func Parse(b []byte) (sid.Patch, error) {
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return sid.Patch{}, err
	}
	p := sid.DefaultPatch()
	if err := ApplyFile(&p, &f); err != nil {
		return sid.Patch{}, err
	}
	return p, nil
}

// ApplyFile applies a parsed preset file onto an existing patch. The patch is
// left unchanged if any field is out of range.
func ApplyFile(dst *sid.Patch, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination patch")
	}
	if f == nil {
		return nil
	}
	p := *dst

	if err := setRange(&p.Voice.Frequency, f.Frequency, "frequency", 0, sid.MaxFrequency); err != nil {
		return err
	}
	if err := setRange(&p.Voice.PulseWidth, f.PulseWidth, "pulse_width", 0, 1); err != nil {
		return err
	}
	if f.Waveforms != nil {
		ws, err := parseWaveforms(f.Waveforms)
		if err != nil {
			return err
		}
		p.Voice.Waveforms = ws
	}

	env := &p.Voice.Envelope
	if err := setRange(&env.Attack, f.Attack, "attack", 0, MaxEnvelopeTime); err != nil {
		return err
	}
	if err := setRange(&env.Decay, f.Decay, "decay", 0, MaxEnvelopeTime); err != nil {
		return err
	}
	if err := setRange(&env.Sustain, f.Sustain, "sustain", 0, 1); err != nil {
		return err
	}
	if err := setRange(&env.Release, f.Release, "release", 0, MaxEnvelopeTime); err != nil {
		return err
	}
	if f.Enabled != nil {
		p.Voice.Enabled = *f.Enabled
	}

	if fs := f.Filter; fs != nil {
		if fs.Mode != nil {
			m, err := sid.ParseFilterMode(*fs.Mode)
			if err != nil {
				return fmt.Errorf("filter.mode: %w", err)
			}
			p.Filter.Mode = m
		}
		if err := setRange(&p.Filter.Cutoff, fs.Cutoff, "filter.cutoff", 0, sid.MaxFrequency); err != nil {
			return err
		}
		if err := setRange(&p.Filter.Resonance, fs.Resonance, "filter.resonance", 0, 1); err != nil {
			return err
		}
		if err := setRange(&p.Filter.Gain, fs.Gain, "filter.gain", 0, 1); err != nil {
			return err
		}
	}

	if o := f.Output; o != nil {
		if err := setRange(&p.Output.Volume, o.Volume, "output.volume", 0, 1); err != nil {
			return err
		}
		if o.ExternalFilter != nil {
			p.Output.ExternalFilter = *o.ExternalFilter
		}
	}

	*dst = p
	return nil
}

// FromPatch builds a fully populated preset file from p. The gate is not
// part of a preset.
func FromPatch(p sid.Patch) *File {
	v := p.Voice
	names := make([]string, 0, 4)
	for _, w := range []sid.Waveforms{sid.WavePulse, sid.WaveTriangle, sid.WaveSawtooth, sid.WaveNoise} {
		if v.Waveforms.Has(w) {
			names = append(names, w.String())
		}
	}
	mode := p.Filter.Mode.String()
	return &File{
		Frequency:  &v.Frequency,
		PulseWidth: &v.PulseWidth,
		Waveforms:  names,
		Attack:     &v.Envelope.Attack,
		Decay:      &v.Envelope.Decay,
		Sustain:    &v.Envelope.Sustain,
		Release:    &v.Envelope.Release,
		Enabled:    &v.Enabled,
		Filter: &FilterSetting{
			Mode:      &mode,
			Cutoff:    &p.Filter.Cutoff,
			Resonance: &p.Filter.Resonance,
			Gain:      &p.Filter.Gain,
		},
		Output: &OutputSetting{
			Volume:         &p.Output.Volume,
			ExternalFilter: &p.Output.ExternalFilter,
		},
	}
}

// SaveJSON writes p as an indented preset file.
func SaveJSON(path string, p sid.Patch) error {
	b, err := json.MarshalIndent(FromPatch(p), "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}

func setRange(dst *float64, v *float64, name string, lo, hi float64) error {
	if v == nil {
		return nil
	}
	if !(*v >= lo && *v <= hi) {
		return fmt.Errorf("%s must be in [%g,%g], got %g", name, lo, hi, *v)
	}
	*dst = *v
	return nil
}

func parseWaveforms(names []string) (sid.Waveforms, error) {
	var ws sid.Waveforms
	for _, name := range names {
		w, ok := sid.ParseWaveform(strings.ToLower(strings.TrimSpace(name)))
		if !ok {
			return 0, fmt.Errorf("waveforms: unknown waveform %q (valid: pulse, triangle, sawtooth, noise)", name)
		}
		ws |= w
	}
	return ws, nil
}
