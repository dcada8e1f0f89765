package sid

import "math"

// EnvelopePhase is the state of the ADSR envelope generator.
type EnvelopePhase uint8

const (
	PhaseIdle EnvelopePhase = iota
	PhaseAttack
	PhaseDecay
	PhaseSustain
	PhaseRelease
)

func (p EnvelopePhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAttack:
		return "attack"
	case PhaseDecay:
		return "decay"
	case PhaseSustain:
		return "sustain"
	case PhaseRelease:
		return "release"
	}
	return "unknown"
}

// envelope is a linear ADSR driven by elapsed time since the last phase
// transition. Levels are pure functions of (phase, elapsed, params).
type envelope struct {
	params EnvelopeParams
	phase  EnvelopePhase
	start  uint64 // sample clock at phase entry
	level  float64
	gate   bool
}

func (e *envelope) enter(p EnvelopePhase, now uint64) {
	e.phase = p
	e.start = now
}

// setGate applies gate edges. A rising edge restarts Attack and a falling
// edge starts Release, from whatever phase the envelope is in.
func (e *envelope) setGate(gate bool, now uint64) {
	if gate == e.gate {
		return
	}
	e.gate = gate
	if gate {
		e.enter(PhaseAttack, now)
		return
	}
	e.enter(PhaseRelease, now)
}

func (e *envelope) elapsed(now uint64, sampleRate float64) float64 {
	if !validSampleRate(sampleRate) {
		return math.Inf(1)
	}
	return float64(now-e.start) / sampleRate
}

// tick evaluates the level at sample clock now, advancing the phase when its
// time budget is used up. A zero time constant completes on the first tick.
func (e *envelope) tick(now uint64, sampleRate float64) float64 {
	elapsed := e.elapsed(now, sampleRate)
	p := &e.params

	switch e.phase {
	case PhaseAttack:
		if elapsed < p.Attack {
			e.level = elapsed / p.Attack
		} else {
			e.level = 1
			e.enter(PhaseDecay, now)
		}
	case PhaseDecay:
		if elapsed < p.Decay {
			e.level = 1 - (elapsed/p.Decay)*(1-p.Sustain)
		} else {
			e.level = p.Sustain
			e.enter(PhaseSustain, now)
		}
	case PhaseSustain:
		e.level = p.Sustain
	case PhaseRelease:
		// Release always ramps down from the sustain level.
		if elapsed < p.Release {
			e.level = p.Sustain * (1 - elapsed/p.Release)
		} else {
			e.level = 0
			e.enter(PhaseIdle, now)
		}
	default:
		e.level = 0
	}
	return e.level
}
