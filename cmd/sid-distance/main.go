package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/cwbudde/algo-sid/analysis"
	"github.com/cwbudde/algo-sid/internal/wavio"
	"github.com/cwbudde/algo-sid/preset"
	"github.com/cwbudde/algo-sid/sid"
)

func main() {
	referencePath := flag.String("reference", "reference/lead.wav", "Reference WAV path")
	candidatePath := flag.String("candidate", "", "Candidate WAV path; if empty, render the candidate from -preset")
	presetPath := flag.String("preset", "", "Patch JSON for the rendered candidate (defaults apply otherwise)")
	freq := flag.Float64("freq", 0, "Frequency override in Hz for the rendered candidate (0 = from patch)")
	gate := flag.Float64("gate", 0.5, "Gate-on duration of the rendered candidate in seconds")
	tail := flag.Float64("tail", -1, "Render time after the gate closes (-1 = match the reference length)")
	sampleRate := flag.Int("sample-rate", 48000, "Analysis sample rate in Hz")
	writeCandidate := flag.String("write-candidate", "", "Optional path to write the rendered candidate WAV")
	jsonOut := flag.Bool("json", false, "Print metrics as JSON")
	flag.Parse()

	ref, err := loadResampled(*referencePath, *sampleRate)
	if err != nil {
		die("failed to read reference: %v", err)
	}

	var cand []float64
	if *candidatePath != "" {
		cand, err = loadResampled(*candidatePath, *sampleRate)
		if err != nil {
			die("failed to read candidate: %v", err)
		}
	} else {
		patch := sid.DefaultPatch()
		if *presetPath != "" {
			patch, err = preset.LoadJSON(*presetPath)
			if err != nil {
				die("failed to load preset: %v", err)
			}
		}
		if *freq > 0 {
			patch.Voice.Frequency = *freq
		}
		patch.Voice.Enabled = true
		renderTail := *tail
		if renderTail < 0 {
			renderTail = max(float64(len(ref))/float64(*sampleRate)-*gate, 0)
		}
		out := sid.Render(patch, float64(*sampleRate), *gate, renderTail, sid.DefaultBlockSize)
		if *writeCandidate != "" {
			if err := wavio.WriteMono(*writeCandidate, out, *sampleRate); err != nil {
				die("failed to write candidate wav: %v", err)
			}
		}
		cand = wavio.ToFloat64(out)
	}

	metrics := analysis.Compare(ref, cand, *sampleRate)
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(metrics); err != nil {
			die("json encode failed: %v", err)
		}
		return
	}
	printMetrics(os.Stdout, metrics)
}

func loadResampled(path string, sampleRate int) ([]float64, error) {
	x, sr, err := wavio.ReadMono(path)
	if err != nil {
		return nil, err
	}
	if sr == sampleRate {
		return x, nil
	}
	return wavio.Resample(x, sr, sampleRate)
}

func printMetrics(w io.Writer, m analysis.Metrics) {
	lagMs := 0.0
	if m.SampleRate > 0 {
		lagMs = 1000.0 * float64(m.LagSamples) / float64(m.SampleRate)
	}
	fmt.Fprintf(w, "Reference frames: %d\n", m.ReferenceFrames)
	fmt.Fprintf(w, "Candidate frames: %d\n", m.CandidateFrames)
	fmt.Fprintf(w, "Aligned frames:   %d\n", m.AlignedFrames)
	fmt.Fprintf(w, "Lag:              %d samples (%.3f ms)\n", m.LagSamples, lagMs)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Component        Raw          Norm   Weight  Contribution\n")
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	printComp := func(name, key, raw string, norm, weight float64) {
		marker := ""
		if m.Dominant == key {
			marker = " ◄"
		}
		fmt.Fprintf(w, "%-16s %-12s %5.1f%%  ×%.2f   → %.4f%s\n", name, raw, norm*100, weight, norm*weight, marker)
	}
	printComp("Time RMSE", "time", fmt.Sprintf("%.6f", m.TimeRMSE), m.TimeNorm, analysis.WeightTime)
	printComp("Envelope RMSE", "envelope", fmt.Sprintf("%.1f dB", m.EnvelopeRMSEDB), m.EnvelopeNorm, analysis.WeightEnvelope)
	printComp("Spectral RMSE", "spectral", fmt.Sprintf("%.1f dB", m.SpectralRMSEDB), m.SpectralNorm, analysis.WeightSpectral)
	printComp("Pitch diff", "pitch", fmt.Sprintf("%.1f ct", m.PitchDiffCents), m.PitchNorm, analysis.WeightPitch)
	printComp("Decay diff", "decay", fmt.Sprintf("%.1f dB/s", m.DecayDiffDBPerS), m.DecayNorm, analysis.WeightDecay)
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Score:            %.4f  (0 best, 1 worst)\n", m.Score)
	fmt.Fprintf(w, "Similarity:       %.2f%%\n", m.Similarity*100.0)
	fmt.Fprintf(w, "Dominant factor:  %s\n", m.Dominant)
	fmt.Fprintf(w, "\nPitch: ref=%.2f Hz  cand=%.2f Hz\n", m.RefPitchHz, m.CandPitchHz)
	fmt.Fprintf(w, "Decay slopes: ref=%.1f dB/s  cand=%.1f dB/s\n", m.RefDecayDBPerS, m.CandDecayDBPerS)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
