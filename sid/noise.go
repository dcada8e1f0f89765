package sid

const (
	noiseSeed = 0x000001
	noiseMask = 0x7FFFFF // 23 bits
)

// noiseLFSR is the 23-bit noise shift register (taps at bits 22 and 17).
type noiseLFSR uint32

func (n *noiseLFSR) clock() {
	r := uint32(*n)
	fb := ((r >> 22) ^ (r >> 17)) & 1
	*n = noiseLFSR(((r << 1) | fb) & noiseMask)
}

func (n noiseLFSR) output() float64 {
	if n&1 != 0 {
		return 0.5
	}
	return -0.5
}
