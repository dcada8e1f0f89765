package main

import (
	"encoding/binary"
	"math"

	"github.com/cwbudde/algo-sid/sid"
)

// synthStream adapts a Synth to the io.Reader that oto pulls float32LE mono
// bytes from. It renders fixed-size blocks so parameter snapshots are only
// picked up on block boundaries.
type synthStream struct {
	synth *sid.Synth
	slot  *sid.ParamSlot
	block []float32
	pos   int // next unread frame in block
}

func newSynthStream(s *sid.Synth, slot *sid.ParamSlot, blockSize int) *synthStream {
	if blockSize < 1 {
		blockSize = sid.DefaultBlockSize
	}
	block := make([]float32, blockSize)
	return &synthStream{synth: s, slot: slot, block: block, pos: len(block)}
}

func (st *synthStream) Read(p []byte) (int, error) {
	n := len(p) / 4
	for i := 0; i < n; i++ {
		if st.pos == len(st.block) {
			st.synth.ProcessFrom(st.slot, st.block)
			st.pos = 0
		}
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(st.block[st.pos]))
		st.pos++
	}
	return n * 4, nil
}
