package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/cwbudde/algo-sid/analysis"
	"github.com/cwbudde/algo-sid/internal/wavio"
	"github.com/cwbudde/algo-sid/preset"
	"github.com/cwbudde/algo-sid/sid"
)

func main() {
	presetPath := flag.String("preset", "", "Patch JSON file (optional, defaults apply otherwise)")
	freq := flag.Float64("freq", 0, "Oscillator frequency override in Hz (0 = from patch)")
	note := flag.Int("note", -1, "Semitone number override (69 = A4 = 440 Hz, -1 = off)")
	waveforms := flag.String("waveforms", "", "Comma separated waveform override, e.g. pulse,noise")
	filterMode := flag.String("filter", "", "Filter mode override: off, lowpass, highpass, bandpass, notch")
	cutoff := flag.Float64("cutoff", -1, "Filter cutoff override in Hz (-1 = from patch)")
	resonance := flag.Float64("resonance", -1, "Filter resonance override 0..1 (-1 = from patch)")
	gate := flag.Float64("gate", 0.5, "Gate-on duration in seconds")
	tail := flag.Float64("tail", 0.5, "Render time after the gate closes, in seconds")
	decayDBFS := flag.Float64("decay-dbfs", math.Inf(-1), "Trim trailing blocks quieter than this dBFS (e.g. -90). Disabled by default")
	sampleRate := flag.Int("sample-rate", 48000, "Render sample rate in Hz")
	outputRate := flag.Int("output-rate", 0, "Output WAV sample rate in Hz (0 = render rate)")
	blockSize := flag.Int("block", sid.DefaultBlockSize, "Block size in frames")
	output := flag.String("output", "output.wav", "Output WAV file path")
	flag.Parse()

	patch := sid.DefaultPatch()
	if *presetPath != "" {
		p, err := preset.LoadJSON(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
		patch = p
	}
	if err := applyOverrides(&patch, *freq, *note, *waveforms, *filterMode, *cutoff, *resonance); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Rendering %.2f Hz %s, gate %.3fs + tail %.3fs at %d Hz (filter: %s)...\n",
		patch.Voice.Frequency, patch.Voice.Waveforms, *gate, *tail, *sampleRate, patch.Filter.Mode)

	samples := sid.Render(patch, float64(*sampleRate), *gate, *tail, *blockSize)
	if len(samples) == 0 {
		fmt.Fprintf(os.Stderr, "Error: nothing rendered (check -sample-rate, -gate and -tail)\n")
		os.Exit(1)
	}
	if !math.IsInf(*decayDBFS, -1) {
		before := len(samples)
		samples = trimTail(samples, *blockSize, math.Pow(10, *decayDBFS/20))
		fmt.Printf("Trimmed %d silent frames below %.1f dBFS\n", before-len(samples), *decayDBFS)
	}

	peak, rms := wavio.Stats(samples)
	pitch := analysis.DominantFrequency(wavio.ToFloat64(samples), *sampleRate)
	fmt.Printf("Peak %.1f dBFS, RMS %.1f dBFS, dominant frequency %.2f Hz\n",
		analysis.LinToDB(peak), analysis.LinToDB(rms), pitch)

	rate := *sampleRate
	if *outputRate > 0 && *outputRate != rate {
		resampled, err := wavio.Resample32(samples, rate, *outputRate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resampling to %d Hz: %v\n", *outputRate, err)
			os.Exit(1)
		}
		samples = resampled
		rate = *outputRate
	}

	if err := wavio.WriteMono(*output, samples, rate); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully wrote %s (%d frames at %d Hz)\n", *output, len(samples), rate)
}

func applyOverrides(p *sid.Patch, freq float64, note int, waveforms, filterMode string, cutoff, resonance float64) error {
	if note >= 0 {
		p.Voice.Frequency = sid.NoteFrequency(note)
	}
	if freq > 0 {
		p.Voice.Frequency = freq
	}
	if waveforms != "" {
		var ws sid.Waveforms
		for _, name := range strings.Split(waveforms, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" || name == "none" {
				continue
			}
			w, ok := sid.ParseWaveform(name)
			if !ok {
				return fmt.Errorf("unknown waveform %q", name)
			}
			ws |= w
		}
		p.Voice.Waveforms = ws
	}
	if filterMode != "" {
		m, err := sid.ParseFilterMode(filterMode)
		if err != nil {
			return err
		}
		p.Filter.Mode = m
	}
	if cutoff >= 0 {
		p.Filter.Cutoff = cutoff
	}
	if resonance >= 0 {
		p.Filter.Resonance = resonance
	}
	p.Voice.Enabled = true
	return nil
}

// trimTail drops trailing blocks whose RMS stays below threshold.
func trimTail(samples []float32, blockSize int, threshold float64) []float32 {
	if blockSize < 1 {
		blockSize = sid.DefaultBlockSize
	}
	end := len(samples)
	for end > 0 {
		start := max(end-blockSize, 0)
		if _, rms := wavio.Stats(samples[start:end]); rms >= threshold {
			break
		}
		end = start
	}
	return samples[:end]
}
