package sid

import "math"

// Render plays p offline: the gate is held open for gateSeconds, then closed
// for tailSeconds of release. The gate edge lands on the block boundary at or
// after gateSeconds, the way a host applies parameter changes.
func Render(p Patch, sampleRate float64, gateSeconds, tailSeconds float64, blockSize int) []float32 {
	if blockSize < 1 {
		blockSize = DefaultBlockSize
	}
	if !validSampleRate(sampleRate) {
		return nil
	}
	gateFrames := int(math.Ceil(math.Max(gateSeconds, 0) * sampleRate))
	total := gateFrames + int(math.Max(tailSeconds, 0)*sampleRate)

	s := NewSynth(sampleRate)
	out := make([]float32, total)
	for i := 0; i < total; i += blockSize {
		p.Voice.Gate = i < gateFrames
		s.Apply(p)
		s.Process(out[i:min(i+blockSize, total)])
	}
	return out
}
