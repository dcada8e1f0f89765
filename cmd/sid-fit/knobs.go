package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-sid/internal/wavio"
	"github.com/cwbudde/algo-sid/sid"
)

type knobDef struct {
	Name string
	Min  float64
	Max  float64
	Log  bool // search in log space (frequencies)
}

type candidate struct {
	Vals []float64
}

// parseFitGroups parses a comma-separated string of group names.
// Valid groups: envelope, filter, voice.
func parseFitGroups(raw string) (map[string]bool, error) {
	valid := map[string]bool{"envelope": true, "filter": true, "voice": true}
	groups := make(map[string]bool)
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !valid[s] {
			return nil, fmt.Errorf("unknown fit group %q (valid: envelope, filter, voice)", s)
		}
		groups[s] = true
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("no fit groups specified")
	}
	return groups, nil
}

func initCandidate(base sid.Patch, groups map[string]bool, maxRelease float64) ([]knobDef, candidate) {
	defs := make([]knobDef, 0, 8)
	vals := make([]float64, 0, 8)
	addKnob := func(def knobDef, val float64) {
		defs = append(defs, def)
		vals = append(vals, val)
	}

	env := base.Voice.Envelope
	if groups["envelope"] {
		addKnob(knobDef{Name: "attack", Min: 0, Max: 1}, env.Attack)
		addKnob(knobDef{Name: "decay", Min: 0, Max: 2}, env.Decay)
		addKnob(knobDef{Name: "sustain", Min: 0, Max: 1}, env.Sustain)
		addKnob(knobDef{Name: "release", Min: 0, Max: maxRelease}, env.Release)
	}
	if groups["filter"] {
		addKnob(knobDef{Name: "cutoff", Min: 20, Max: sid.MaxFrequency, Log: true}, base.Filter.Cutoff)
		addKnob(knobDef{Name: "resonance", Min: 0, Max: 0.95}, base.Filter.Resonance)
	}
	if groups["voice"] {
		addKnob(knobDef{Name: "pulse_width", Min: 0.02, Max: 0.98}, base.Voice.PulseWidth)
		addKnob(knobDef{Name: "volume", Min: 0.05, Max: 1}, base.Output.Volume)
	}

	for i := range vals {
		vals[i] = wavio.Clamp(vals[i], defs[i].Min, defs[i].Max)
	}
	return defs, candidate{Vals: vals}
}

// fromNormalized maps an optimizer position in [0,1]^n onto knob values.
func fromNormalized(pos []float64, defs []knobDef) candidate {
	vals := make([]float64, len(defs))
	for i, d := range defs {
		u := 0.5
		if i < len(pos) {
			u = wavio.Clamp(pos[i], 0, 1)
		}
		if d.Log && d.Min > 0 {
			vals[i] = d.Min * math.Pow(d.Max/d.Min, u)
		} else {
			vals[i] = d.Min + u*(d.Max-d.Min)
		}
	}
	return candidate{Vals: vals}
}

// applyCandidate returns base with the knob values of c written into it.
func applyCandidate(base sid.Patch, defs []knobDef, c candidate) sid.Patch {
	p := base
	for i, d := range defs {
		v := c.Vals[i]
		switch d.Name {
		case "attack":
			p.Voice.Envelope.Attack = v
		case "decay":
			p.Voice.Envelope.Decay = v
		case "sustain":
			p.Voice.Envelope.Sustain = v
		case "release":
			p.Voice.Envelope.Release = v
		case "cutoff":
			p.Filter.Cutoff = v
		case "resonance":
			p.Filter.Resonance = v
		case "pulse_width":
			p.Voice.PulseWidth = v
		case "volume":
			p.Output.Volume = v
		}
	}
	p.Voice.Enabled = true
	return p
}

func knobMap(defs []knobDef, c candidate) map[string]float64 {
	m := make(map[string]float64, len(defs))
	for i, d := range defs {
		m[d.Name] = c.Vals[i]
	}
	return m
}
