package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/cwbudde/algo-sid/analysis"
	"github.com/cwbudde/algo-sid/internal/wavio"
	"github.com/cwbudde/algo-sid/preset"
	"github.com/cwbudde/algo-sid/sid"
)

func main() {
	referencePath := flag.String("reference", "reference/lead.wav", "Reference WAV path")
	presetPath := flag.String("preset", "", "Base patch JSON path (optional, defaults apply otherwise)")
	outputPreset := flag.String("output-preset", "out/fit/fitted.json", "Path to write the best fitted patch JSON")
	outputWAV := flag.String("output-wav", "", "Optional path to write a render of the best patch")
	reportPath := flag.String("report", "", "Optional report JSON path (default: <output-preset>.report.json)")
	fit := flag.String("fit", "envelope,filter", "Comma-separated knob groups to fit: envelope, filter, voice")
	freq := flag.Float64("freq", 0, "Oscillator frequency in Hz (0 = measure from the reference)")
	gate := flag.Float64("gate", 0.5, "Gate-on duration of the reference in seconds")
	sampleRate := flag.Int("sample-rate", 48000, "Render/analysis sample rate")
	blockSize := flag.Int("block", sid.DefaultBlockSize, "Render block size in frames")
	seed := flag.Int64("seed", 1, "Random seed")
	timeBudget := flag.Float64("time-budget", 60.0, "Optimization time budget in seconds")
	maxEvals := flag.Int("max-evals", 4000, "Maximum objective evaluations")
	reportEvery := flag.Int("report-every", 50, "Print progress every N evaluations")
	topK := flag.Int("top-k", 5, "How many top candidates to keep in report")
	resume := flag.Bool("resume", true, "Resume from previous best_knobs report when available")
	workers := flag.String("workers", "1", "Parallel optimization workers running independent Mayfly rounds (number or 'auto')")

	mayflyVariant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	mayflyPop := flag.Int("mayfly-pop", 10, "Male and female population size per Mayfly run")
	mayflyRoundEvals := flag.Int("mayfly-round-evals", 240, "Target eval budget per Mayfly round")
	flag.Parse()

	groups, err := parseFitGroups(*fit)
	if err != nil {
		die("invalid --fit: %v", err)
	}
	if *outputPreset == "" {
		die("output-preset must not be empty")
	}
	if *maxEvals < 1 {
		die("max-evals must be >= 1")
	}
	if *timeBudget <= 0 {
		die("time-budget must be > 0")
	}
	if *gate < 0 {
		die("gate must be >= 0")
	}
	if *reportEvery < 1 {
		*reportEvery = 1
	}
	if *mayflyPop < 2 {
		*mayflyPop = 2
	}
	if *mayflyRoundEvals < *mayflyPop*2 {
		*mayflyRoundEvals = *mayflyPop * 2
	}
	if *topK < 1 {
		*topK = 1
	}
	if *blockSize < 1 {
		*blockSize = sid.DefaultBlockSize
	}
	parsedWorkers, err := wavio.ParseWorkers(*workers)
	if err != nil {
		die("invalid workers value: %v", err)
	}

	base := sid.DefaultPatch()
	if *presetPath != "" {
		base, err = preset.LoadJSON(*presetPath)
		if err != nil {
			die("failed to load preset: %v", err)
		}
	}

	refRaw, refSR, err := wavio.ReadMono(*referencePath)
	if err != nil {
		die("failed to read reference: %v", err)
	}
	ref := refRaw
	if refSR != *sampleRate {
		ref, err = wavio.Resample(refRaw, refSR, *sampleRate)
		if err != nil {
			die("failed to resample reference: %v", err)
		}
	}
	refDuration := float64(len(ref)) / float64(*sampleRate)
	tail := max(refDuration-*gate, 0)

	if *freq > 0 {
		base.Voice.Frequency = *freq
	} else if f := analysis.DominantFrequency(ref, *sampleRate); f > 0 {
		base.Voice.Frequency = min(f, sid.MaxFrequency)
		fmt.Printf("Measured reference frequency %.2f Hz\n", f)
	}
	base.Voice.Enabled = true

	defs, initCand := initCandidate(base, groups, max(tail, 0.05))
	if *resume {
		path := *reportPath
		if path == "" {
			path = *outputPreset + ".report.json"
		}
		if resumed, ok, err := loadCandidateFromReport(path, defs, initCand); err != nil {
			fmt.Fprintf(os.Stderr, "resume skipped (%s): %v\n", path, err)
		} else if ok {
			initCand = resumed
			fmt.Printf("Resumed candidate from %s\n", path)
		}
	}

	cfg := &optimizationConfig{
		reference:        ref,
		base:             base,
		defs:             defs,
		initCandidate:    initCand,
		sampleRate:       *sampleRate,
		gate:             *gate,
		tail:             tail,
		blockSize:        *blockSize,
		seed:             *seed,
		timeBudget:       time.Duration(*timeBudget * float64(time.Second)),
		maxEvals:         *maxEvals,
		reportEvery:      *reportEvery,
		mayflyVariant:    strings.ToLower(*mayflyVariant),
		mayflyPop:        *mayflyPop,
		mayflyRoundEvals: *mayflyRoundEvals,
		workers:          parsedWorkers,
		topK:             *topK,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := runOptimization(ctx, cfg)
	if err != nil {
		die("optimization failed: %v", err)
	}

	paths := outputPaths{
		preset:    *outputPreset,
		report:    *reportPath,
		wav:       *outputWAV,
		reference: *referencePath,
		base:      *presetPath,
	}
	if err := writeOutputs(paths, cfg, result); err != nil {
		die("failed to write outputs: %v", err)
	}

	fmt.Printf("Done evals=%d elapsed=%.1fs best_score=%.4f best_similarity=%.2f%% variant=%s\n",
		result.evals, result.elapsed.Seconds(), result.bestMetrics.Score, result.bestMetrics.Similarity*100.0, cfg.mayflyVariant)
}

func loadCandidateFromReport(path string, defs []knobDef, fallback candidate) (candidate, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fallback, false, nil
		}
		return fallback, false, err
	}

	var rep struct {
		BestKnobs map[string]float64 `json:"best_knobs"`
	}
	if err := json.Unmarshal(b, &rep); err != nil {
		return fallback, false, err
	}
	if len(rep.BestKnobs) == 0 {
		return fallback, false, nil
	}

	vals := make([]float64, len(fallback.Vals))
	copy(vals, fallback.Vals)
	updated := false
	for i, d := range defs {
		if v, ok := rep.BestKnobs[d.Name]; ok {
			vals[i] = wavio.Clamp(v, d.Min, d.Max)
			updated = true
		}
	}
	if !updated {
		return fallback, false, nil
	}
	return candidate{Vals: vals}, true, nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
