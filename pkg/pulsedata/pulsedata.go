// Package pulsedata holds the in-memory representation of a captured RF
// burst: an ordered sequence of (pulse, gap) sample-count pairs together
// with the carrier statistics the detector accumulated while framing it.
package pulsedata

import (
	"fmt"

	"hz.tools/rf"
)

// MaxPulses is the largest number of (pulse, gap) entries a single burst
// may hold before the detector is forced to either emit or Shift.
const MaxPulses = 1200

// MinPulseSamples is the shortest pulse width, in samples, the detector
// treats as real rather than spurious.
const MinPulseSamples = 10

// MinPulses is the pulse count the embedded FSK sub-detector must exceed,
// while the OOK burst is still in its first pulse, before the burst is
// promoted to an FSK burst.
const MinPulses = 16

// PulseData is a captured burst: pulse[i] is the duration of the i-th
// mark (carrier on), gap[i] is the duration of the space that follows it,
// both measured in samples, never in microseconds or clock ticks.
//
// The zero value is a cleared, ready-to-use PulseData.
type PulseData struct {
	// Offset is the absolute sample index of the first mark, relative to
	// the stream origin.
	Offset int64

	// SampleRate is the sample rate, in Hz, that Pulse/Gap durations are
	// measured against.
	SampleRate uint32

	// DepthBits is the ADC sample depth the source delivered.
	DepthBits uint32

	// StartAgo/EndAgo are "samples ago" offsets within the most recently
	// delivered input chunk at the time this burst was opened/closed.
	StartAgo int64
	EndAgo   int64

	// NumPulses is the number of valid entries in Pulse/Gap.
	NumPulses int

	// Pulse[i] is the i-th mark duration; Gap[i] is the space that
	// follows it. For the last entry, Gap may be a synthetic
	// terminating gap rather than a measured one.
	Pulse [MaxPulses]int32
	Gap   [MaxPulses]int32

	// Carrier statistics. The detector sets OOKLowEstimate and
	// OOKHighEstimate on every burst it emits, and FSKF1Est/FSKF2Est on
	// FSK bursts only. The Hz and dB fields are not computed by the
	// detector; pulsefile.Load fills them from header lines.
	OOKLowEstimate  int16
	OOKHighEstimate int16
	FSKF1Est        int16
	FSKF2Est        int16

	Freq1Hz      rf.Hz
	Freq2Hz      rf.Hz
	CenterFreqHz rf.Hz
	RSSIDb       float64
	SNRDb        float64
	NoiseDb      float64
	RangeDb      float64
}

// IsFSK reports whether this burst was tagged FSK by the detector.
// Per the burst invariant, FSKF2Est is non-zero iff the burst is FSK.
func (p *PulseData) IsFSK() bool {
	return p.FSKF2Est != 0
}

// Clear resets p to the zero burst.
func (p *PulseData) Clear() {
	*p = PulseData{}
}

// TotalSamples returns the number of samples spanned by all recorded
// pulses and gaps.
func (p *PulseData) TotalSamples() int64 {
	var total int64
	for i := 0; i < p.NumPulses; i++ {
		total += int64(p.Pulse[i]) + int64(p.Gap[i])
	}
	return total
}

// Shift discards the oldest half of the recorded entries and advances
// Offset by the number of samples those entries spanned, so that a long
// burst can keep accumulating without exceeding MaxPulses. It is the
// detector's FSK-path overflow recovery: trade the oldest history for
// the ability to keep decoding.
func (p *PulseData) Shift() {
	const half = MaxPulses / 2
	if p.NumPulses <= half {
		return
	}

	var dropped int64
	for i := 0; i < half; i++ {
		dropped += int64(p.Pulse[i]) + int64(p.Gap[i])
	}

	copy(p.Pulse[:], p.Pulse[half:p.NumPulses])
	copy(p.Gap[:], p.Gap[half:p.NumPulses])
	for i := p.NumPulses - half; i < p.NumPulses; i++ {
		p.Pulse[i] = 0
		p.Gap[i] = 0
	}

	p.NumPulses -= half
	p.Offset += dropped
}

// Bit flags passed to DumpRaw identifying which logic-trace channel a
// burst's pulses belong to, so multiple bursts can be rasterized into one
// shared trace buffer.
const (
	// BitOOK marks OOK pulses in a dump_raw buffer.
	BitOOK = 0x02
	// BitFSK marks FSK pulses in a dump_raw buffer.
	BitFSK = 0x04

	rawGapBit = 0x01
)

// DumpRaw rasterizes the burst into buf, which covers the absolute sample
// range [bufOffset, bufOffset+len(buf)). Each pulse sample is written as
// 0x01|bits, each gap sample as 0x01. Writes that fall outside buf are
// silently clipped rather than causing an error or panic — logic dumpers
// routinely overlay bursts whose Offset predates the start of the current
// trace window.
func (p *PulseData) DumpRaw(buf []byte, bufOffset int64, bits byte) {
	pos := p.Offset
	for i := 0; i < p.NumPulses; i++ {
		writeRun(buf, bufOffset, pos, int64(p.Pulse[i]), rawGapBit|bits)
		pos += int64(p.Pulse[i])
		writeRun(buf, bufOffset, pos, int64(p.Gap[i]), rawGapBit)
		pos += int64(p.Gap[i])
	}
}

func writeRun(buf []byte, bufOffset, start, length int64, value byte) {
	if length <= 0 {
		return
	}
	from := start - bufOffset
	to := from + length
	if from < 0 {
		from = 0
	}
	if to > int64(len(buf)) {
		to = int64(len(buf))
	}
	for i := from; i < to; i++ {
		buf[i] = value
	}
}

// String implements a short, one-line human summary.
func (p *PulseData) String() string {
	kind := "OOK"
	if p.IsFSK() {
		kind = "FSK"
	}
	return fmt.Sprintf("PulseData{%s offset=%d pulses=%d rate=%d}",
		kind, p.Offset, p.NumPulses, p.SampleRate)
}
