// Package analyzer classifies a completed PulseData into a modulation
// guess, mirroring the OOK detector's own shape: build
// histograms over pulse/gap/period widths, fuse them, then walk a
// decision table. It is grounded on gherlein-gocat's scanner reporting
// code for the "summarize what was just measured into one line of
// output" idiom, generalized from frequency-hit counts to pulse-width
// clusters.
package analyzer

import (
	"fmt"
	"math"

	"github.com/n6drc/pulsecore/pkg/histogram"
	"github.com/n6drc/pulsecore/pkg/pulsedata"
	"github.com/n6drc/pulsecore/pkg/rfraw"
)

// Modulation is the classifier's best guess at the pulse train's coding.
type Modulation int

const (
	ModUnknown Modulation = iota
	ModFSKOrNoise
	ModPreamble
	ModPPM
	ModPWMFixedGap
	ModPWMFixedPeriod
	ModManchester
	ModPWMDelimiter
	ModNRZ
	ModPWMSync
	ModNoClue
)

func (m Modulation) String() string {
	switch m {
	case ModFSKOrNoise:
		return "FSK_OR_NOISE"
	case ModPreamble:
		return "PREAMBLE"
	case ModPPM:
		return "OOK_PULSE_PPM"
	case ModPWMFixedGap:
		return "OOK_PULSE_PWM_FIXED_GAP"
	case ModPWMFixedPeriod:
		return "OOK_PULSE_PWM_FIXED_PERIOD"
	case ModManchester:
		return "OOK_PULSE_MANCHESTER_ZEROBIT"
	case ModPWMDelimiter:
		return "OOK_PULSE_PWM"
	case ModNRZ:
		return "OOK_PULSE_NRZ"
	case ModPWMSync:
		return "OOK_PULSE_PWM"
	default:
		return "OOK_PULSE_NOCLUE"
	}
}

// ModulationSpec is the classifier's verdict for one PulseData.
type ModulationSpec struct {
	Modulation Modulation

	ShortWidthUS float64
	LongWidthUS  float64

	HasSync      bool
	SyncWidthUS  float64
	HasGapLimit  bool
	GapLimitUS   float64
	ResetLimitUS float64
	HasTolerance bool
	ToleranceUS  float64
}

// Tolerance is the fuse/accumulate tolerance used throughout.
const Tolerance = histogram.DefaultTolerance

// PulseAnalyzer accumulates the pulse/gap/period/timings histograms
// and classifies them into a ModulationSpec.
type PulseAnalyzer struct {
	Pulses  histogram.Cluster
	Gaps    histogram.Cluster
	Periods histogram.Cluster
	Timings histogram.Cluster
}

func samplesToUS(samples int32, sampleRate uint32) float64 {
	if sampleRate == 0 {
		return float64(samples)
	}
	return float64(samples) * 1e6 / float64(sampleRate)
}

// Analyze builds the histograms for pd and classifies them. ok is false
// only when pd has no usable pulses at all.
func (a *PulseAnalyzer) Analyze(pd *pulsedata.PulseData) (ModulationSpec, bool) {
	n := pd.NumPulses
	if n < 1 {
		return ModulationSpec{}, false
	}

	a.Pulses = histogram.Cluster{}
	a.Gaps = histogram.Cluster{}
	a.Periods = histogram.Cluster{}
	a.Timings = histogram.Cluster{}

	for i := 0; i < n; i++ {
		p := float64(pd.Pulse[i])
		a.Pulses.Accumulate(p, Tolerance)
		a.Timings.Accumulate(p, Tolerance)
		if i < n-1 {
			g := float64(pd.Gap[i])
			a.Gaps.Accumulate(g, Tolerance)
			a.Timings.Accumulate(g, Tolerance)
			a.Periods.Accumulate(p+g, Tolerance)
		}
	}

	a.Pulses.Fuse(Tolerance)
	a.Gaps.Fuse(Tolerance)
	a.Periods.Fuse(Tolerance)
	a.Timings.Fuse(Tolerance)

	a.Pulses.SortByMean()
	a.Gaps.SortByMean()

	// A leading FSK artifact shows up as a zero-width pulse bin; drop it
	// once sorted to the front.
	if len(a.Pulses.Bins) > 0 && a.Pulses.Bins[0].Mean == 0 {
		a.Pulses.Delete(0)
	}

	if n == 1 {
		return ModulationSpec{Modulation: ModFSKOrNoise}, true
	}

	spec := a.classify(pd.SampleRate)
	return spec, true
}

func (a *PulseAnalyzer) classify(sampleRate uint32) ModulationSpec {
	np := len(a.Pulses.Bins)
	ng := len(a.Gaps.Bins)
	nper := len(a.Periods.Bins)

	spec := ModulationSpec{ResetLimitUS: a.resetLimitUS(sampleRate)}

	switch {
	case np == 1 && ng == 1:
		spec.Modulation = ModPreamble

	case np == 1 && ng > 1:
		spec.Modulation = ModPPM
		spec.ShortWidthUS = samplesToUS(int32(a.Gaps.Bins[0].Mean), sampleRate)
		spec.LongWidthUS = samplesToUS(int32(a.Gaps.Bins[1].Mean), sampleRate)

	case np == 2 && ng == 1:
		spec.Modulation = ModPWMFixedGap
		a.fillShortLongFromPulses(&spec, sampleRate)

	case np == 2 && ng == 2 && nper == 1:
		spec.Modulation = ModPWMFixedPeriod
		a.fillShortLongFromPulses(&spec, sampleRate)

	case np == 2 && ng == 2 && nper == 3:
		spec.Modulation = ModManchester
		a.fillShortLongFromPulses(&spec, sampleRate)

	case np == 2 && ng >= 3:
		spec.Modulation = ModPWMDelimiter
		a.fillShortLongFromPulses(&spec, sampleRate)
		spec.HasGapLimit = true
		spec.GapLimitUS = samplesToUS(int32(a.Gaps.Bins[1].Mean), sampleRate)

	case np >= 3 && ng >= 3 && a.allIntegerMultiples():
		spec.Modulation = ModNRZ
		shortest := a.Pulses.Bins[0].Mean
		spec.ShortWidthUS = samplesToUS(int32(shortest), sampleRate)
		spec.ResetLimitUS = samplesToUS(int32(shortest*1024), sampleRate)

	case np == 3:
		spec.Modulation = ModPWMSync
		a.fillSyncShortLong(&spec, sampleRate)

	default:
		spec.Modulation = ModNoClue
	}

	return spec
}

func (a *PulseAnalyzer) fillShortLongFromPulses(spec *ModulationSpec, sampleRate uint32) {
	if len(a.Pulses.Bins) < 2 {
		return
	}
	spec.ShortWidthUS = samplesToUS(int32(a.Pulses.Bins[0].Mean), sampleRate)
	spec.LongWidthUS = samplesToUS(int32(a.Pulses.Bins[1].Mean), sampleRate)
}

// fillSyncShortLong picks the lowest-count pulse bin as the sync symbol
// and sorts the remaining two into short/long.
func (a *PulseAnalyzer) fillSyncShortLong(spec *ModulationSpec, sampleRate uint32) {
	bins := append([]histogramBinRef(nil), refBins(a.Pulses.Bins)...)
	syncIdx := 0
	for i := range bins {
		if bins[i].count < bins[syncIdx].count {
			syncIdx = i
		}
	}
	spec.HasSync = true
	spec.SyncWidthUS = samplesToUS(int32(bins[syncIdx].mean), sampleRate)

	var rest []histogramBinRef
	for i := range bins {
		if i != syncIdx {
			rest = append(rest, bins[i])
		}
	}
	if len(rest) == 2 && rest[0].mean > rest[1].mean {
		rest[0], rest[1] = rest[1], rest[0]
	}
	if len(rest) == 2 {
		spec.ShortWidthUS = samplesToUS(int32(rest[0].mean), sampleRate)
		spec.LongWidthUS = samplesToUS(int32(rest[1].mean), sampleRate)
	}
}

type histogramBinRef struct {
	mean  float64
	count int
}

func refBins(bins []histogram.Bin) []histogramBinRef {
	out := make([]histogramBinRef, len(bins))
	for i, b := range bins {
		out[i] = histogramBinRef{mean: b.Mean, count: b.Count}
	}
	return out
}

// allIntegerMultiples reports whether every pulse-bin mean is within
// 12.5% of an integer multiple of the shortest pulse bin's mean.
func (a *PulseAnalyzer) allIntegerMultiples() bool {
	if len(a.Pulses.Bins) == 0 {
		return false
	}
	shortest := a.Pulses.Bins[0].Mean
	if shortest <= 0 {
		return false
	}
	for _, b := range a.Pulses.Bins {
		ratio := b.Mean / shortest
		nearest := math.Round(ratio)
		if nearest == 0 {
			return false
		}
		if math.Abs(ratio-nearest)/nearest > 0.125 {
			return false
		}
	}
	return true
}

func (a *PulseAnalyzer) resetLimitUS(sampleRate uint32) float64 {
	if len(a.Gaps.Bins) == 0 {
		return 0
	}
	largest := a.Gaps.Bins[0]
	for _, b := range a.Gaps.Bins {
		if b.Max > largest.Max {
			largest = b
		}
	}
	return samplesToUS(int32(largest.Max)+1, sampleRate)
}

// FlexLine renders the classifier's verdict into an rtl_433-style flex
// decoder parameter line.
func FlexLine(name string, spec ModulationSpec) string {
	line := fmt.Sprintf("n=%s,m=%s,s=%.0f,l=%.0f,r=%.0f",
		name, spec.Modulation, spec.ShortWidthUS, spec.LongWidthUS, spec.ResetLimitUS)
	if spec.HasGapLimit {
		line += fmt.Sprintf(",g=%.0f", spec.GapLimitUS)
	}
	if spec.HasTolerance {
		line += fmt.Sprintf(",t=%.0f", spec.ToleranceUS)
	}
	if spec.HasSync {
		line += fmt.Sprintf(",y=%.0f", spec.SyncWidthUS)
	}
	return line
}

// SynthesizeRfRaw converts pd into RfRaw text when the combined timings
// histogram fits within RfRaw's 8-bucket nibble-index limit. missed
// reports how many trailing pulses could not be
// placed when the burst needed splitting beyond the 32-code cap.
func (a *PulseAnalyzer) SynthesizeRfRaw(pd *pulsedata.PulseData) (text string, missed int, ok bool) {
	if len(a.Timings.Bins) > 8 {
		return "", 0, false
	}

	vals := make([]uint16, len(a.Timings.Bins))
	for i, b := range a.Timings.Bins {
		vals[i] = uint16(b.Mean)
	}

	n := pd.NumPulses
	pulseIdx := make([]int, 0, n)
	gapIdx := make([]int, 0, n)
	for i := 0; i < n; i++ {
		pulseIdx = append(pulseIdx, a.Timings.FindBinIndex(float64(pd.Pulse[i])))
		if i < n-1 {
			gapIdx = append(gapIdx, a.Timings.FindBinIndex(float64(pd.Gap[i])))
		} else {
			// The final pulse has no following gap; pad with bucket 0
			// so the nibble stream stays pulse/gap paired.
			gapIdx = append(gapIdx, 0)
		}
	}

	if len(a.Gaps.Bins) <= 2 {
		code, err := rfraw.EncodeBurst(vals, pulseIdx, gapIdx)
		if err != nil {
			return "", 0, false
		}
		return rfraw.Encode([]rfraw.Code{code}), 0, true
	}

	// Split into B0 blocks of splitAt consecutive pulses each, capped at
	// maxBlocks blocks. Block boundaries are fixed pulse counts and do not
	// follow gap widths. A block identical to the one before it raises
	// that block's repeat count instead of being emitted again; anything
	// left over is reported as missed.
	const splitAt = 4
	const maxBlocks = 32

	var codes []rfraw.Code
	i := 0
	for i < len(pulseIdx) && len(codes) < maxBlocks {
		end := i + splitAt
		if end > len(pulseIdx) {
			end = len(pulseIdx)
		}
		gEnd := end
		if gEnd > len(gapIdx) {
			gEnd = len(gapIdx)
		}
		code, err := rfraw.EncodeBurst(vals, pulseIdx[i:end], gapIdx[i:gEnd])
		if err != nil {
			return "", n - i, false
		}
		code.Kind, code.Repeats = 0, 1
		if len(codes) > 0 && sameCode(codes[len(codes)-1], code) {
			codes[len(codes)-1].Repeats++
		} else {
			codes = append(codes, code)
		}
		i = end
	}

	return rfraw.Encode(codes), n - i, true
}

func sameCode(a, b rfraw.Code) bool {
	if a.Kind != b.Kind || len(a.Nibbles) != len(b.Nibbles) {
		return false
	}
	for i := range a.Nibbles {
		if a.Nibbles[i] != b.Nibbles[i] {
			return false
		}
	}
	return true
}
