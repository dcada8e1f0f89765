package sid

import (
	"sync"
	"sync/atomic"
)

// ParamSlot hands complete Patch snapshots from control goroutines to the
// audio callback.
//
// Writers publish a fresh copy behind an atomic pointer, so the reader always
// observes every field of one logical update together. Load never blocks and
// never allocates; writers serialize among themselves only.
type ParamSlot struct {
	current atomic.Pointer[Patch]
	version atomic.Uint64
	mu      sync.Mutex // writers only
}

// NewParamSlot creates a slot holding p.
func NewParamSlot(p Patch) *ParamSlot {
	s := &ParamSlot{}
	s.Publish(p)
	return s
}

// Publish replaces the current snapshot.
func (s *ParamSlot) Publish(p Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(p)
}

// Update applies fn to a copy of the current snapshot and publishes the result.
func (s *ParamSlot) Update(fn func(p *Patch)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p Patch
	if cur := s.current.Load(); cur != nil {
		p = *cur
	} else {
		p = DefaultPatch()
	}
	fn(&p)
	s.store(p)
}

func (s *ParamSlot) store(p Patch) {
	cp := p
	s.current.Store(&cp)
	s.version.Add(1)
}

// Load returns the latest snapshot. ok is false if nothing was published yet.
func (s *ParamSlot) Load() (p Patch, ok bool) {
	cur := s.current.Load()
	if cur == nil {
		return Patch{}, false
	}
	return *cur, true
}

// Version returns the number of snapshots published so far.
func (s *ParamSlot) Version() uint64 {
	return s.version.Load()
}
