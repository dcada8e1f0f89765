package preset

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/algo-sid/sid"
)

func writePreset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patch.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	return path
}

func TestLoadJSONAppliesVoiceFilterAndOutput(t *testing.T) {
	path := writePreset(t, `{
  "frequency": 220,
  "pulse_width": 0.25,
  "waveforms": ["pulse", "Saw", "noise"],
  "attack": 0.01,
  "decay": 0.2,
  "sustain": 0.7,
  "release": 1.5,
  "enabled": true,
  "filter": {"mode": "lp", "cutoff": 1800, "resonance": 0.6, "gain": 0.9},
  "output": {"volume": 0.8, "external_filter": true}
}`)

	p, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	v := p.Voice
	if v.Frequency != 220 || v.PulseWidth != 0.25 || !v.Enabled {
		t.Fatalf("voice fields mismatch: %+v", v)
	}
	if v.Waveforms != sid.WavePulse|sid.WaveSawtooth|sid.WaveNoise {
		t.Fatalf("waveforms mismatch: %v", v.Waveforms)
	}
	if v.Envelope != (sid.EnvelopeParams{Attack: 0.01, Decay: 0.2, Sustain: 0.7, Release: 1.5}) {
		t.Fatalf("envelope mismatch: %+v", v.Envelope)
	}
	if p.Filter != (sid.FilterParams{Cutoff: 1800, Resonance: 0.6, Gain: 0.9, Mode: sid.FilterLowpass}) {
		t.Fatalf("filter mismatch: %+v", p.Filter)
	}
	if p.Output.Volume != 0.8 || !p.Output.ExternalFilter {
		t.Fatalf("output mismatch: %+v", p.Output)
	}
	if v.Gate {
		t.Fatalf("presets never open the gate")
	}
}

func TestParseKeepsDefaultsForMissingFields(t *testing.T) {
	p, err := Parse([]byte(`{"sustain": 0.2}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := sid.DefaultPatch()
	want.Voice.Envelope.Sustain = 0.2
	if p != want {
		t.Fatalf("got %+v\nwant %+v", p, want)
	}
}

func TestParseEmptyWaveformListDisablesAll(t *testing.T) {
	p, err := Parse([]byte(`{"waveforms": []}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Voice.Waveforms != sid.WaveNone {
		t.Fatalf("expected no waveforms, got %v", p.Voice.Waveforms)
	}
}

func TestLoadJSONRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		content string
		field   string // expected in the error message, if set
	}{
		{`{"frequency": 25000}`, "frequency"},
		{`{"pulse_width": -0.1}`, "pulse_width"},
		{`{"attack": 6}`, "attack"},
		{`{"decay": 10}`, "decay"},
		{`{"sustain": 1.5}`, "sustain"},
		{`{"release": -1}`, "release"},
		{`{"waveforms": ["sine"]}`, "waveforms"},
		{`{"filter": {"mode": "comb"}}`, "filter.mode"},
		{`{"filter": {"cutoff": -1}}`, "filter.cutoff"},
		{`{"filter": {"resonance": 2}}`, "filter.resonance"},
		{`{"filter": {"gain": -0.5}}`, "filter.gain"},
		{`{"output": {"volume": 1.1}}`, "output.volume"},
		{`{"frequency": }`, ""},
		{`{"enabled": "yes"}`, ""},
		{`{"filter": 3}`, ""},
	}
	for _, tc := range cases {
		_, err := LoadJSON(writePreset(t, tc.content))
		if err == nil {
			t.Fatalf("%s: expected error", tc.content)
		}
		if tc.field != "" && !strings.Contains(err.Error(), tc.field) {
			t.Fatalf("%s: error should name %q: %v", tc.content, tc.field, err)
		}
	}
}

func TestLoadJSONMissingFile(t *testing.T) {
	if _, err := LoadJSON(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestApplyFileLeavesPatchUntouchedOnError(t *testing.T) {
	p := sid.DefaultPatch()
	before := p
	freq := 100.0
	bad := 3.0
	err := ApplyFile(&p, &File{Frequency: &freq, Sustain: &bad})
	if err == nil {
		t.Fatalf("expected error")
	}
	if p != before {
		t.Fatalf("patch modified despite error: %+v", p)
	}
	if err := ApplyFile(nil, &File{}); err == nil {
		t.Fatalf("expected error for nil destination")
	}
	if err := ApplyFile(&p, nil); err != nil {
		t.Fatalf("nil file should be a no-op: %v", err)
	}
}

func TestSaveJSONRoundTrip(t *testing.T) {
	p := sid.DefaultPatch()
	p.Voice.Frequency = 123.5
	p.Voice.Waveforms = sid.WaveTriangle | sid.WaveNoise
	p.Voice.Envelope = sid.EnvelopeParams{Attack: 0.002, Decay: 0.3, Sustain: 0.4, Release: 0.8}
	p.Filter = sid.FilterParams{Cutoff: 640, Resonance: 0.75, Gain: 0.5, Mode: sid.FilterNotch}
	p.Output = sid.OutputParams{Volume: 0.6, ExternalFilter: true}

	path := filepath.Join(t.TempDir(), "out.json")
	if err := SaveJSON(path, p); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	got, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if got != p {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, p)
	}

	p.Voice.Waveforms = sid.WaveNone
	p.Voice.Enabled = false
	if err := SaveJSON(path, p); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	got, err = LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if got.Voice.Waveforms != sid.WaveNone || got.Voice.Enabled {
		t.Fatalf("empty waveform set or disabled voice lost: %+v", got.Voice)
	}
}
