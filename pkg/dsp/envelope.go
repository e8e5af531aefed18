package dsp

import "math"

// FullScale is the nominal full-scale envelope amplitude both detectors
// below target; it is not a hard clip, just the level a 0 dBFS carrier
// produces.
const FullScale = 16384

// EnvelopeCU8 computes the AM envelope of interleaved unsigned 8-bit IQ
// samples centred on 128: for each (i, q) pair it returns
// (i-128)^2 + (q-128)^2, clipped to fit an int16. This is squared
// amplitude, not amplitude -- the detector consumes it as-is, the same
// way the rest of the pipeline treats any monotonic power proxy.
//
// iq must have an even length; the result has len(iq)/2 samples.
func EnvelopeCU8(iq []byte) []int16 {
	n := len(iq) / 2
	out := make([]int16, n)
	for k := 0; k < n; k++ {
		i := int32(iq[2*k]) - 128
		q := int32(iq[2*k+1]) - 128
		v := i*i + q*q
		out[k] = int16(clampInt32(v, 0, 32767))
	}
	return out
}

// MagnitudeCS16 computes sqrt(i*i + q*q) for interleaved signed 16-bit IQ
// samples, with Q0.15 scaling so that a full-scale input produces a
// full-scale (around FullScale) output.
//
// iq must have an even length; the result has len(iq)/2 samples.
func MagnitudeCS16(iq []int16) []int16 {
	n := len(iq) / 2
	out := make([]int16, n)
	for k := 0; k < n; k++ {
		i := float64(iq[2*k])
		q := float64(iq[2*k+1])
		mag := math.Sqrt(i*i+q*q) / 32768 * FullScale
		out[k] = int16(clampInt32(int32(mag), 0, 32767))
	}
	return out
}
