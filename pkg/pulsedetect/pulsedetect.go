// Package pulsedetect implements the OOK pulse-framing state machine:
// the core that turns a stream of envelope/FM samples into discrete
// bursts of (pulse, gap) pairs. It is the busiest piece
// of the pipeline and is grounded on gherlein-gocat's pkg/scanner
// control loop (a resumable state machine threaded through repeated
// Scan calls, carrying hold/lost counters across calls) generalized
// from "which frequency is the signal on" to "am I inside a pulse".
package pulsedetect

import (
	"os"

	"github.com/n6drc/pulsecore/pkg/estimator"
	"github.com/n6drc/pulsecore/pkg/fsk"
	"github.com/n6drc/pulsecore/pkg/pulsedata"
)

// logWriter is where the detector's one user-visible diagnostic (an
// unknown-state fallthrough) is written.
// Kept as a var, not a hardcoded os.Stderr reference, so tests can
// redirect it.
var logWriter = os.Stderr

// Millisecond-denominated tuning constants, named directly after
// the detector's level tracking.
const (
	MinGapMS     = 10
	MaxGapMS     = 100
	MaxGapRatio  = 10
	MaxPulseMS   = 100
	MinPulseSamp = pulsedata.MinPulseSamples
	MinPulses    = pulsedata.MinPulses
)

type state int

const (
	stateIdle state = iota
	statePulse
	stateGapStart
	stateGap
)

// Result reports what, if anything, Feed produced.
type Result int

const (
	// None means the chunk was fully consumed with no burst completing.
	None Result = iota
	// OOK means Data holds a completed amplitude-only burst.
	OOK
	// FSK means Data holds a completed burst promoted to FSK.
	FSK
)

// FeedResult is the return value of Detector.Feed.
type FeedResult struct {
	Kind Result
	Data pulsedata.PulseData
}

// Detector is the resumable OOK/FSK pulse framer. Build one with
// NewDetector; the zero value has no level estimator and is not usable.
type Detector struct {
	SampleRate uint32

	level *estimator.LevelEstimator
	hold  int64 // lead-in counter

	state       state
	pulseLength int32
	maxPulse    int32

	// data_counter: position within the current chunk. Zero at the start
	// of each Feed call; carried only within one Feed invocation, since a
	// burst completion returns control to the caller mid-chunk.
	dataCounter int

	data pulsedata.PulseData

	fskAlgo fsk.Algorithm
	fskSub  *fsk.SubDetector

	chunkAge int64 // sum of the lengths of all slices passed to Feed (a re-fed remainder counts again); not read
}

// NewDetector returns a Detector using the given thresholds.
// highLowRatioDB should be 9 for amplitude-domain envelopes (CU8/CS16 AM)
// or 11 for magnitude-domain ones.
func NewDetector(sampleRate uint32, minHighLevel, maxHighLevel int32, highLowRatioDB float64, fixedHighLevel int32, fskAlgo fsk.Algorithm) *Detector {
	lvl := estimator.NewLevelEstimator(minHighLevel, maxHighLevel, highLowRatioDB)
	lvl.FixedHigh = fixedHighLevel
	return &Detector{
		SampleRate: sampleRate,
		level:      lvl,
		fskAlgo:    fskAlgo,
		fskSub:     fsk.New(fskAlgo),
	}
}

func (d *Detector) samplesPerMS() int32 {
	v := int32(d.SampleRate / 1000)
	if v < 1 {
		v = 1
	}
	return v
}

// Feed advances the state machine by one chunk of envelope/fm samples,
// both of which must have equal length. sampleOffset is the absolute
// sample index of envelope[0]. It returns as soon as a burst completes;
// the second return value reports how many leading samples of the chunk
// were consumed, and the caller is expected to re-invoke Feed with
// envelope[consumed:]/fm[consumed:] to keep draining it.
func (d *Detector) Feed(envelope, fm []int16, sampleOffset int64) (FeedResult, int) {
	if len(envelope) != len(fm) {
		panic("pulsedetect: envelope and fm must have equal length")
	}

	if d.dataCounter == 0 {
		d.ageBursts(int64(len(envelope)))
	}

	for d.dataCounter < len(envelope) {
		am := envelope[d.dataCounter]
		fmSample := fm[d.dataCounter]

		if res, ok := d.step(am, fmSample, sampleOffset, len(envelope)); ok {
			res.Data.EndAgo = int64(len(envelope) - d.dataCounter)
			consumed := d.dataCounter + 1
			d.dataCounter = 0
			return res, consumed
		}
		d.dataCounter++
	}

	d.dataCounter = 0
	return FeedResult{Kind: None}, len(envelope)
}

func (d *Detector) ageBursts(chunkLen int64) {
	d.data.StartAgo += chunkLen
	d.data.EndAgo += chunkLen
	d.chunkAge += chunkLen
}

func (d *Detector) above(am int16) bool { return d.level.Above(am) }
func (d *Detector) below(am int16) bool { return d.level.Below(am) }

func (d *Detector) step(am, fmSample int16, sampleOffset int64, chunkLen int) (FeedResult, bool) {
	switch d.state {
	case stateIdle:
		return d.stepIdle(am, sampleOffset, chunkLen)
	case statePulse:
		return d.stepPulse(am, fmSample)
	case stateGapStart:
		return d.stepGapStart(am)
	case stateGap:
		return d.stepGap(am)
	default:
		// InternalInvariant: unknown state, reset rather than crash.
		logWriter.WriteString("pulsedetect: unknown state, resetting to IDLE\n")
		d.state = stateIdle
		return FeedResult{}, false
	}
}

func (d *Detector) stepIdle(am int16, sampleOffset int64, chunkLen int) (FeedResult, bool) {
	d.level.UpdateIdle(am)

	if !d.above(am) {
		d.hold = 0
		return FeedResult{}, false
	}
	d.hold++
	if d.hold <= estimator.EstLowRatio {
		return FeedResult{}, false
	}

	d.data.Clear()
	d.data.SampleRate = d.SampleRate
	d.data.Offset = sampleOffset + int64(d.dataCounter)
	d.data.StartAgo = int64(chunkLen - d.dataCounter)
	d.pulseLength = 0
	d.maxPulse = 0
	d.fskSub = fsk.New(d.fskAlgo)
	d.state = statePulse
	return FeedResult{}, false
}

func (d *Detector) stepPulse(am, fmSample int16) (FeedResult, bool) {
	d.pulseLength++

	if d.below(am) {
		if d.pulseLength < MinPulseSamp {
			if d.data.NumPulses == 0 {
				d.state = stateIdle
				d.hold = 0
				return FeedResult{}, false
			}
			// Too short to be a real pulse this far into a burst: force
			// end-of-burst here. This short pulse is not recorded; the
			// gap stored before it stays the burst's last gap.
			return d.endBurst()
		}
		d.data.Pulse[d.data.NumPulses] = d.pulseLength
		if d.pulseLength > d.maxPulse {
			d.maxPulse = d.pulseLength
		}
		d.pulseLength = 0
		d.state = stateGapStart
		return FeedResult{}, false
	}

	d.level.UpdateHigh(am)
	if d.data.NumPulses == 0 {
		d.fskSub.Feed(fmSample)
	}

	if d.pulseLength > MaxPulseMS*d.samplesPerMS() {
		// Past MaxPulseMS the pulse length is recorded and the state
		// moves to GapStart. If the carrier is still on at the next
		// sample, GapStart folds it straight back into the pulse, so a
		// carrier that stays on keeps the pulse open; the burst is not
		// ended here.
		d.data.Pulse[d.data.NumPulses] = d.pulseLength
		if d.pulseLength > d.maxPulse {
			d.maxPulse = d.pulseLength
		}
		d.pulseLength = 0
		d.state = stateGapStart
	}
	return FeedResult{}, false
}

func (d *Detector) stepGapStart(am int16) (FeedResult, bool) {
	d.pulseLength++

	if d.above(am) {
		// Spurious gap: undo, fold back into the pulse.
		d.pulseLength += d.data.Pulse[d.data.NumPulses]
		d.state = statePulse
		return FeedResult{}, false
	}

	if d.pulseLength < MinPulseSamp {
		return FeedResult{}, false
	}

	if d.data.NumPulses == 0 && d.fskSub.Data.NumPulses > MinPulses {
		return d.promoteFSK(), true
	}

	d.state = stateGap
	return FeedResult{}, false
}

func (d *Detector) stepGap(am int16) (FeedResult, bool) {
	d.pulseLength++

	if d.above(am) {
		d.data.Gap[d.data.NumPulses] = d.pulseLength
		d.data.NumPulses++
		d.pulseLength = 0
		if d.data.NumPulses >= pulsedata.MaxPulses {
			return d.endBurst()
		}
		d.state = statePulse
		return FeedResult{}, false
	}

	spm := d.samplesPerMS()
	hitRatio := d.pulseLength > MaxGapRatio*d.maxPulse && d.pulseLength > MinGapMS*spm
	hitAbsolute := d.pulseLength > MaxGapMS*spm
	if hitRatio || hitAbsolute {
		d.data.Gap[d.data.NumPulses] = d.pulseLength
		d.data.NumPulses++
		return d.endBurst()
	}
	return FeedResult{}, false
}

func (d *Detector) endBurst() (FeedResult, bool) {
	d.data.EndAgo = 0
	d.data.OOKLowEstimate = int16(clamp32(d.level.Low, -32768, 32767))
	d.data.OOKHighEstimate = int16(clamp32(d.level.High, -32768, 32767))
	out := d.data
	d.state = stateIdle
	d.hold = 0
	d.pulseLength = 0
	return FeedResult{Kind: OOK, Data: out}, true
}

func (d *Detector) promoteFSK() FeedResult {
	d.fskSub.WrapUp()
	fskData := d.fskSub.Data
	fskData.SampleRate = d.SampleRate
	fskData.Offset = d.data.Offset
	fskData.StartAgo = d.data.StartAgo
	fskData.EndAgo = 0
	f1, f2 := d.fskSub.FreqEstimates()
	fskData.FSKF1Est = int16(clamp32(f1, -32768, 32767))
	fskData.FSKF2Est = int16(clamp32(f2, -32768, 32767))
	fskData.OOKLowEstimate = int16(clamp32(d.level.Low, -32768, 32767))
	fskData.OOKHighEstimate = int16(clamp32(d.level.High, -32768, 32767))

	d.state = stateIdle
	d.hold = 0
	d.pulseLength = 0
	return FeedResult{Kind: FSK, Data: fskData}
}

func clamp32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
