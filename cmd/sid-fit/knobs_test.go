package main

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-sid/sid"
)

func TestParseFitGroups(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[string]bool
		wantErr bool
	}{
		{name: "single group", input: "filter", want: map[string]bool{"filter": true}},
		{name: "all groups", input: "envelope,filter,voice", want: map[string]bool{"envelope": true, "filter": true, "voice": true}},
		{name: "with whitespace", input: " envelope , filter ", want: map[string]bool{"envelope": true, "filter": true}},
		{name: "invalid group", input: "envelope,bogus", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
		{name: "only separators", input: " , ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFitGroups(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseFitGroups(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFitGroups(%q) unexpected error: %v", tt.input, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k := range tt.want {
				if !got[k] {
					t.Fatalf("missing group %q in %v", k, got)
				}
			}
		})
	}
}

func TestInitCandidateUsesBasePatch(t *testing.T) {
	base := sid.DefaultPatch()
	base.Voice.Envelope = sid.EnvelopeParams{Attack: 0.01, Decay: 0.2, Sustain: 0.6, Release: 9}
	base.Filter.Cutoff = 1500
	base.Filter.Resonance = 0.3

	defs, cand := initCandidate(base, map[string]bool{"envelope": true, "filter": true}, 1.5)
	if len(defs) != 6 || len(cand.Vals) != 6 {
		t.Fatalf("expected 6 knobs, got %d defs and %d values", len(defs), len(cand.Vals))
	}
	want := map[string]float64{
		"attack":    0.01,
		"decay":     0.2,
		"sustain":   0.6,
		"release":   1.5, // clamped to the tail length
		"cutoff":    1500,
		"resonance": 0.3,
	}
	got := knobMap(defs, cand)
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("knob %s = %g, want %g", k, got[k], v)
		}
	}
}

func TestFromNormalizedMapsBounds(t *testing.T) {
	defs := []knobDef{
		{Name: "sustain", Min: 0, Max: 1},
		{Name: "cutoff", Min: 20, Max: 20000, Log: true},
	}
	lo := fromNormalized([]float64{0, 0}, defs)
	hi := fromNormalized([]float64{1, 1}, defs)
	mid := fromNormalized([]float64{0.5, 0.5}, defs)

	if lo.Vals[0] != 0 || math.Abs(lo.Vals[1]-20) > 1e-9 {
		t.Fatalf("lower bound mapping: %v", lo.Vals)
	}
	if hi.Vals[0] != 1 || math.Abs(hi.Vals[1]-20000) > 1e-6 {
		t.Fatalf("upper bound mapping: %v", hi.Vals)
	}
	// Geometric midpoint for log knobs.
	if mid.Vals[0] != 0.5 || math.Abs(mid.Vals[1]-math.Sqrt(20*20000)) > 1e-6 {
		t.Fatalf("midpoint mapping: %v", mid.Vals)
	}

	out := fromNormalized([]float64{-3, 7}, defs)
	if out.Vals[0] != 0 || math.Abs(out.Vals[1]-20000) > 1e-6 {
		t.Fatalf("positions outside [0,1] should clamp: %v", out.Vals)
	}
	short := fromNormalized(nil, defs)
	if short.Vals[0] != 0.5 {
		t.Fatalf("missing positions should default to the centre: %v", short.Vals)
	}
}

func TestApplyCandidateWritesKnobs(t *testing.T) {
	base := sid.DefaultPatch()
	base.Voice.Enabled = false
	defs, _ := initCandidate(base, map[string]bool{"envelope": true, "filter": true, "voice": true}, 2)
	vals := []float64{0.1, 0.2, 0.3, 0.4, 500, 0.5, 0.25, 0.7}
	p := applyCandidate(base, defs, candidate{Vals: vals})

	if p.Voice.Envelope != (sid.EnvelopeParams{Attack: 0.1, Decay: 0.2, Sustain: 0.3, Release: 0.4}) {
		t.Fatalf("envelope mismatch: %+v", p.Voice.Envelope)
	}
	if p.Filter.Cutoff != 500 || p.Filter.Resonance != 0.5 {
		t.Fatalf("filter mismatch: %+v", p.Filter)
	}
	if p.Voice.PulseWidth != 0.25 || p.Output.Volume != 0.7 {
		t.Fatalf("voice/output mismatch: %+v %+v", p.Voice, p.Output)
	}
	if !p.Voice.Enabled {
		t.Fatalf("fitted patches must be enabled")
	}
	if p.Filter.Mode != base.Filter.Mode || p.Voice.Waveforms != base.Voice.Waveforms {
		t.Fatalf("fields outside the knob set changed")
	}
}
