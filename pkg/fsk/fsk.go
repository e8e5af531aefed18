// Package fsk implements the per-sample FSK sub-state-machine that rides
// inside the first pulse of an OOK burst, looking for a frequency-shift
// signal the amplitude-only OOK detector can't see on its own. Two
// interchangeable algorithms are provided, selected by the
// caller per burst: Classic (a four-state running-estimate slicer) and
// MinMax (a simpler running min/max midpoint slicer).
package fsk

import "github.com/n6drc/pulsecore/pkg/pulsedata"

// Algorithm selects which FSK sub-detector variant Feed runs.
type Algorithm int

const (
	// Classic tracks two running frequency estimates (fast for the
	// estimate the current sample is closer to, slow for the other)
	// and flips state when the sample becomes closer to the other
	// estimate than the current one.
	Classic Algorithm = iota
	// MinMax tracks a decaying running max/min of the frequency signal
	// and classifies each sample against their midpoint. Simpler, more
	// robust to slow carrier drift.
	MinMax
)

type state int

const (
	stateInit state = iota
	stateFH
	stateFL
)

// Tuning constants for the two sub-detector algorithms.
const (
	fskDefaultFMDelta = 6000
	fskDeltaHalf      = fskDefaultFMDelta / 2
	fskEstFast        = 16
	fskEstSlow        = 64

	minMaxSkipSamples = 40
	minMaxDecay       = 10
)

// SubDetector carries one burst's worth of FSK classification state. Its
// Data field accumulates the (pulse, gap) pairs of the high/low-frequency
// run lengths found so far; pkg/pulsedetect promotes a burst to FSK once
// Data.NumPulses exceeds pulsedata.MinPulses.
type SubDetector struct {
	Algo Algorithm
	Data pulsedata.PulseData

	state       state
	pulseLength int32

	// Classic state.
	f1Est, f2Est int32
	primeCount   int32

	// MinMax state.
	maxVal, minVal int32
	settleCount    int
}

// New returns a SubDetector ready to start classifying the first pulse of
// a burst.
func New(algo Algorithm) *SubDetector {
	return &SubDetector{Algo: algo}
}

// Reset clears all per-burst state so the detector can be reused for the
// next burst.
func (d *SubDetector) Reset() {
	data := d.Data
	data.Clear()
	*d = SubDetector{Algo: d.Algo, Data: data}
}

// FreqEstimates returns the sub-detector's current estimate of the two
// FSK frequencies: Classic's tracked f1Est/f2Est, or MinMax's tracked
// maxVal/minVal (its stand-in for the same two bands).
func (d *SubDetector) FreqEstimates() (f1, f2 int32) {
	if d.Algo == MinMax {
		return d.maxVal, d.minVal
	}
	return d.f1Est, d.f2Est
}

// Feed classifies one more fm sample. It is only meaningful while the
// enclosing OOK pulse detector is still inside its very first pulse
// (only meaningful for the burst's very first pulse).
func (d *SubDetector) Feed(fm int16) {
	switch d.Algo {
	case MinMax:
		d.feedMinMax(fm)
	default:
		d.feedClassic(fm)
	}
}

func (d *SubDetector) feedClassic(fm int16) {
	v := int32(fm)

	if d.state == stateInit {
		d.pulseLength++
		d.primeCount++
		d.f1Est += (v - d.f1Est) / d.primeCount

		diff := v - d.f1Est
		switch {
		case diff > fskDeltaHalf:
			// The initial segment was LOW: swap estimates, the
			// initial segment becomes a degenerate zero-length
			// pulse paired with the measured gap, then start
			// tracking the high segment we just entered.
			d.f2Est = d.f1Est
			d.f1Est = v
			d.Data.Pulse[0] = 0
			d.Data.Gap[0] = d.pulseLength
			d.Data.NumPulses = 1
			d.state = stateFH
			d.pulseLength = 0
		case diff < -fskDeltaHalf:
			// The initial segment was HIGH.
			d.Data.Pulse[0] = d.pulseLength
			d.state = stateFL
			d.pulseLength = 0
		}
		return
	}

	d.pulseLength++

	var closer, other *int32
	if d.state == stateFH {
		closer, other = &d.f1Est, &d.f2Est
	} else {
		closer, other = &d.f2Est, &d.f1Est
	}
	*closer += (v - *closer) / fskEstFast
	*other += (v - *other) / fskEstSlow

	distClose := abs32(v - *closer)
	distOther := abs32(v - *other)
	if distOther < distClose {
		d.transition()
	}
}

func (d *SubDetector) feedMinMax(fm int16) {
	v := int32(fm)

	if v > d.maxVal {
		d.maxVal = v
	} else {
		d.maxVal -= minMaxDecay
	}
	if v < d.minVal {
		d.minVal = v
	} else {
		d.minVal += minMaxDecay
	}
	mid := (d.maxVal + d.minVal) / 2

	classified := stateFL
	if v > mid {
		classified = stateFH
	}

	d.settleCount++
	if d.settleCount <= minMaxSkipSamples {
		d.state = classified
		d.pulseLength++
		return
	}

	if d.state == stateInit {
		d.state = classified
		d.pulseLength = 0
		return
	}

	if classified != d.state {
		d.transition()
		return
	}
	d.pulseLength++
}

// transition commits the just-finished run (currently in d.state, of
// length d.pulseLength) into Data, then flips state for the segment
// about to begin. A too-short run (spurious, below
// pulsedata.MinPulseSamples) is rewound: rather than opening a new
// (pulse, gap) pair for noise, its length is folded into the
// neighbouring interval it interrupted.
func (d *SubDetector) transition() {
	length := d.pulseLength
	spurious := length < pulsedata.MinPulseSamples

	switch d.state {
	case stateFH:
		if spurious {
			if d.Data.NumPulses > 0 {
				// Reopen the previous gap and keep counting it.
				d.Data.NumPulses--
				d.pulseLength = d.Data.Gap[d.Data.NumPulses] + length
				d.state = stateFL
				return
			}
		} else if d.Data.NumPulses < pulsedata.MaxPulses {
			d.Data.Pulse[d.Data.NumPulses] = length
		}
	case stateFL:
		if spurious {
			if d.Data.NumPulses < pulsedata.MaxPulses {
				// Reopen the pulse just recorded and keep counting it.
				d.pulseLength = d.Data.Pulse[d.Data.NumPulses] + length
				d.state = stateFH
				return
			}
		} else if d.Data.NumPulses < pulsedata.MaxPulses {
			d.Data.Gap[d.Data.NumPulses] = length
			d.Data.NumPulses++
		}
	}

	if d.state == stateFH {
		d.state = stateFL
	} else {
		d.state = stateFH
	}
	d.pulseLength = 0

	if d.Data.NumPulses >= pulsedata.MaxPulses {
		d.Data.Shift()
	}
}

// WrapUp flushes the trailing, still-open interval into Data, as a final
// (possibly incomplete) pulse or gap, and reports the completed pulse
// count.
func (d *SubDetector) WrapUp() int {
	if d.Data.NumPulses < pulsedata.MaxPulses {
		switch d.state {
		case stateFH:
			d.Data.Pulse[d.Data.NumPulses] = d.pulseLength
			d.Data.NumPulses++
		case stateFL:
			d.Data.Gap[d.Data.NumPulses] = d.pulseLength
			d.Data.NumPulses++
		}
	}
	return d.Data.NumPulses
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
