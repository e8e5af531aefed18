package dsp

import "math/cmplx"

// FmDiscriminator turns a stream of IQ samples into signed int16
// frequency-offset samples, one phase-difference per input sample,
// carrying the previous sample as state across chunks.
//
// The discriminator itself (phasor times the conjugate of the previous
// phasor, then Phase) is the same one hztools-go-fm's Demodulator.Read
// uses for FM audio; here it is adapted to emit quantized int16 offsets
// suitable for the pulse detector's per-burst carrier estimate, rather
// than float32 audio samples.
type FmDiscriminator struct {
	prev complex128
	have bool
}

// NewFmDiscriminator returns a discriminator with no carried history; its
// first output sample is 0 (there is no prior phasor to difference
// against, so the first phasor is differenced against itself).
func NewFmDiscriminator() *FmDiscriminator {
	return &FmDiscriminator{}
}

// fmScale converts a phase difference in radians (-pi, pi] to the int16
// range, so a full-scale deviation of +/-pi maps to +/-32767.
const fmScale = 32767.0 / 3.141592653589793

// FeedCU8 demodulates interleaved unsigned 8-bit IQ samples centred on
// 128.
func (d *FmDiscriminator) FeedCU8(iq []byte) []int16 {
	n := len(iq) / 2
	out := make([]int16, n)
	for k := 0; k < n; k++ {
		i := float64(int32(iq[2*k])-128) / 128
		q := float64(int32(iq[2*k+1])-128) / 128
		out[k] = d.step(complex(i, q))
	}
	return out
}

// FeedCS16 demodulates interleaved signed 16-bit IQ samples.
func (d *FmDiscriminator) FeedCS16(iq []int16) []int16 {
	n := len(iq) / 2
	out := make([]int16, n)
	for k := 0; k < n; k++ {
		i := float64(iq[2*k]) / 32768
		q := float64(iq[2*k+1]) / 32768
		out[k] = d.step(complex(i, q))
	}
	return out
}

func (d *FmDiscriminator) step(phasor complex128) int16 {
	if !d.have {
		d.prev = phasor
		d.have = true
	}
	phase := cmplx.Phase(phasor * cmplx.Conj(d.prev))
	d.prev = phasor
	return int16(clampInt32(int32(phase*fmScale), -32768, 32767))
}

// Reset clears the carried previous-sample state.
func (d *FmDiscriminator) Reset() {
	d.have = false
	d.prev = 0
}
