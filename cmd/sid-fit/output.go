package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-sid/analysis"
	"github.com/cwbudde/algo-sid/internal/wavio"
	"github.com/cwbudde/algo-sid/preset"
	"github.com/cwbudde/algo-sid/sid"
)

type runReport struct {
	ReferencePath  string             `json:"reference_path"`
	PresetPath     string             `json:"preset_path,omitempty"`
	OutputPreset   string             `json:"output_preset"`
	OutputWAV      string             `json:"output_wav,omitempty"`
	SampleRate     int                `json:"sample_rate"`
	GateSec        float64            `json:"gate_seconds"`
	TailSec        float64            `json:"tail_seconds"`
	DurationSec    float64            `json:"elapsed_seconds"`
	Evaluations    int                `json:"evaluations"`
	MayflyVariant  string             `json:"mayfly_variant"`
	BestScore      float64            `json:"best_score"`
	BestSimilarity float64            `json:"best_similarity"`
	BestMetrics    analysis.Metrics   `json:"best_metrics"`
	BestKnobs      map[string]float64 `json:"best_knobs"`
	TopCandidates  []topCandidate     `json:"top_candidates,omitempty"`
}

type outputPaths struct {
	preset    string
	report    string
	wav       string
	reference string
	base      string
}

// writeOutputs persists the best patch, the run report and, when requested,
// a render of the best patch.
func writeOutputs(paths outputPaths, cfg *optimizationConfig, res *optimizationResult) error {
	if err := ensureDir(paths.preset); err != nil {
		return err
	}
	if err := preset.SaveJSON(paths.preset, res.bestPatch); err != nil {
		return err
	}

	if paths.wav != "" {
		out := sid.Render(res.bestPatch, float64(cfg.sampleRate), cfg.gate, cfg.tail, cfg.blockSize)
		if err := wavio.WriteMono(paths.wav, out, cfg.sampleRate); err != nil {
			return err
		}
	}

	rep := runReport{
		ReferencePath:  paths.reference,
		PresetPath:     paths.base,
		OutputPreset:   paths.preset,
		OutputWAV:      paths.wav,
		SampleRate:     cfg.sampleRate,
		GateSec:        cfg.gate,
		TailSec:        cfg.tail,
		DurationSec:    res.elapsed.Seconds(),
		Evaluations:    res.evals,
		MayflyVariant:  cfg.mayflyVariant,
		BestScore:      res.bestMetrics.Score,
		BestSimilarity: res.bestMetrics.Similarity,
		BestMetrics:    res.bestMetrics,
		BestKnobs:      knobMap(cfg.defs, res.best),
		TopCandidates:  res.top,
	}
	reportPath := paths.report
	if reportPath == "" {
		reportPath = paths.preset + ".report.json"
	}
	return writeJSON(reportPath, rep)
}

func writeJSON(path string, v any) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
