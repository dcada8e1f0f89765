package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/mayfly"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-sid/analysis"
	"github.com/cwbudde/algo-sid/internal/wavio"
	"github.com/cwbudde/algo-sid/sid"
)

type topCandidate struct {
	Eval       int                `json:"eval"`
	Score      float64            `json:"score"`
	Similarity float64            `json:"similarity"`
	Knobs      map[string]float64 `json:"knobs"`
}

type optimizationConfig struct {
	reference        []float64
	base             sid.Patch
	defs             []knobDef
	initCandidate    candidate
	sampleRate       int
	gate             float64
	tail             float64
	blockSize        int
	seed             int64
	timeBudget       time.Duration
	maxEvals         int
	reportEvery      int
	mayflyVariant    string
	mayflyPop        int
	mayflyRoundEvals int
	workers          int
	topK             int
}

type optimizationEval struct {
	metrics analysis.Metrics
	patch   sid.Patch
}

type optimizationResult struct {
	best        candidate
	bestMetrics analysis.Metrics
	bestPatch   sid.Patch
	top         []topCandidate
	evals       int
	elapsed     time.Duration
}

type optimizationState struct {
	mu       sync.Mutex
	best     candidate
	bestEval optimizationEval
	top      []topCandidate
}

// runOptimization runs independent Mayfly rounds on cfg.workers goroutines
// until the time budget or eval budget is spent or ctx is cancelled.
func runOptimization(ctx context.Context, cfg *optimizationConfig) (*optimizationResult, error) {
	variant := strings.ToLower(cfg.mayflyVariant)
	if _, err := newMayflyConfig(variant, cfg.mayflyPop, len(cfg.defs), 1); err != nil {
		return nil, err
	}
	if len(cfg.defs) == 0 {
		return nil, fmt.Errorf("no knobs to optimize")
	}

	start := time.Now()
	deadline := start.Add(cfg.timeBudget)

	best := cloneCandidate(cfg.initCandidate)
	initialEval := evaluateCandidate(cfg, best)
	fmt.Printf("Start score=%.4f similarity=%.2f%%\n", initialEval.metrics.Score, initialEval.metrics.Similarity*100.0)

	state := &optimizationState{
		best:     best,
		bestEval: initialEval,
		top:      updateTopCandidates(nil, cfg.topK, 1, initialEval.metrics, cfg.defs, best),
	}

	var evals int64 = 1
	var rounds int64
	var improves int64

	workers := max(cfg.workers, 1)
	stopped := func() bool {
		return ctx.Err() != nil || time.Now().After(deadline)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				if gctx.Err() != nil || time.Now().After(deadline) {
					return nil
				}
				remaining := cfg.maxEvals - int(atomic.LoadInt64(&evals))
				if remaining <= 0 {
					return nil
				}

				round := atomic.AddInt64(&rounds, 1)
				budget := min(cfg.mayflyRoundEvals, remaining)
				iters := max(1, budget/(2*cfg.mayflyPop))

				mcfg, err := newMayflyConfig(variant, cfg.mayflyPop, len(cfg.defs), iters)
				if err != nil {
					return err
				}
				mcfg.Rand = rand.New(rand.NewSource(cfg.seed + round*7919))
				mcfg.ObjectiveFunc = func(pos []float64) float64 {
					if stopped() {
						return currentBestScore(state) + 1.0
					}
					evalNum, ok := reserveEval(&evals, cfg.maxEvals)
					if !ok {
						return currentBestScore(state) + 1.0
					}

					cand := fromNormalized(pos, cfg.defs)
					res := evaluateCandidate(cfg, cand)

					state.mu.Lock()
					state.top = updateTopCandidates(state.top, cfg.topK, int(evalNum), res.metrics, cfg.defs, cand)
					improved := res.metrics.Score < state.bestEval.metrics.Score
					if improved {
						state.best = cand
						state.bestEval = res
					}
					bestScore := state.bestEval.metrics.Score
					state.mu.Unlock()

					if improved {
						n := atomic.AddInt64(&improves, 1)
						fmt.Printf("Improved #%d eval=%d score=%.4f sim=%.2f%%\n", n, evalNum, res.metrics.Score, res.metrics.Similarity*100.0)
					}
					if cfg.reportEvery > 0 && evalNum%int64(cfg.reportEvery) == 0 {
						fmt.Printf("Progress eval=%d/%d elapsed=%.1fs best=%.4f\n", evalNum, cfg.maxEvals, time.Since(start).Seconds(), bestScore)
					}
					return res.metrics.Score
				}

				if _, err := runMayfly(mcfg); err != nil {
					fmt.Fprintf(os.Stderr, "mayfly round %d failed: %v\n", round, err)
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	return &optimizationResult{
		best:        cloneCandidate(state.best),
		bestMetrics: state.bestEval.metrics,
		bestPatch:   state.bestEval.patch,
		top:         cloneTopCandidates(state.top),
		evals:       int(atomic.LoadInt64(&evals)),
		elapsed:     time.Since(start),
	}, nil
}

// evaluateCandidate renders the candidate with the reference's gate timing
// and scores it.
func evaluateCandidate(cfg *optimizationConfig, cand candidate) optimizationEval {
	p := applyCandidate(cfg.base, cfg.defs, cand)
	out := sid.Render(p, float64(cfg.sampleRate), cfg.gate, cfg.tail, cfg.blockSize)
	return optimizationEval{
		metrics: analysis.Compare(cfg.reference, wavio.ToFloat64(out), cfg.sampleRate),
		patch:   p,
	}
}

func cloneCandidate(c candidate) candidate {
	vals := make([]float64, len(c.Vals))
	copy(vals, c.Vals)
	return candidate{Vals: vals}
}

func cloneTopCandidates(in []topCandidate) []topCandidate {
	out := make([]topCandidate, len(in))
	for i := range in {
		entry := in[i]
		entry.Knobs = make(map[string]float64, len(in[i].Knobs))
		for k, v := range in[i].Knobs {
			entry.Knobs[k] = v
		}
		out[i] = entry
	}
	return out
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported mayfly variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = max(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

func reserveEval(evals *int64, maxEvals int) (int64, bool) {
	for {
		cur := atomic.LoadInt64(evals)
		if cur >= int64(maxEvals) {
			return 0, false
		}
		if atomic.CompareAndSwapInt64(evals, cur, cur+1) {
			return cur + 1, true
		}
	}
}

func currentBestScore(state *optimizationState) float64 {
	state.mu.Lock()
	score := state.bestEval.metrics.Score
	state.mu.Unlock()
	return score
}

func updateTopCandidates(top []topCandidate, topK int, eval int, metrics analysis.Metrics, defs []knobDef, cand candidate) []topCandidate {
	top = append(top, topCandidate{
		Eval:       eval,
		Score:      metrics.Score,
		Similarity: metrics.Similarity,
		Knobs:      knobMap(defs, cand),
	})
	sort.Slice(top, func(i, j int) bool {
		if top[i].Score == top[j].Score {
			return top[i].Eval < top[j].Eval
		}
		return top[i].Score < top[j].Score
	})
	if len(top) > topK {
		top = top[:topK]
	}
	return top
}
