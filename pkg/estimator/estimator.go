// Package estimator provides the two small adaptive-tracking primitives
// the OOK detector's threshold logic is built from: a slow/fast-blended
// level estimator and a debounce hold counter.
//
// Both are rewrites of gherlein-gocat's pkg/scanner algorithms
// (FrequencySmoother's fast/slow exponential blend, SignalTracker's
// hold-counter/lost-threshold hysteresis) generalized from "is this RSSI
// reading still the active signal" to "is this envelope sample still
// inside a pulse" -- the same shape of problem (debouncing a noisy
// scalar against a slowly adapting baseline), with amplitude-domain
// ratios in place of the original frequency-domain ones.
package estimator

import "math"

// LevelEstimator tracks the OOK low (noise floor) and high (carrier)
// amplitude estimates used by the pulse detector.
type LevelEstimator struct {
	// Low is the adaptive noise-floor estimate.
	Low int32
	// High is the adaptive carrier-level estimate, derived from Low and
	// clamped to [MinHigh, MaxHigh].
	High int32

	MinHigh int32
	MaxHigh int32

	// HighLowRatio scales Low into a candidate High estimate. It is a
	// plain linear multiplier; callers derive it from a dB figure (9 dB
	// for amplitude inputs, 11 dB for magnitude inputs) with
	// RatioFromDB.
	HighLowRatio float64

	// FixedHigh, when non-zero, overrides the computed threshold
	// entirely.
	FixedHigh int32
}

// Rate divisors for the two estimator update paths.
const (
	EstLowRatio  = 1024 // slow: idle noise-floor tracking
	EstHighRatio = 64   // fast: tracking the carrier while inside a pulse
)

// RatioFromDB converts a decibel ratio into the linear multiplier
// LevelEstimator.HighLowRatio expects, using the voltage/amplitude-domain
// dB convention: 10^(db/20).
func RatioFromDB(db float64) float64 {
	return math.Pow(10, db/20)
}

// NewLevelEstimator returns an estimator with Low/High at zero, ready to
// be driven by UpdateIdle from the first sample.
func NewLevelEstimator(minHigh, maxHigh int32, highLowRatioDB float64) *LevelEstimator {
	return &LevelEstimator{
		MinHigh:      minHigh,
		MaxHigh:      maxHigh,
		HighLowRatio: RatioFromDB(highLowRatioDB),
	}
}

// UpdateIdle folds one idle-state (not inside a pulse) amplitude sample
// into Low, then re-derives High. The update includes the anti-dead-zone
// correction: when the ratio-scaled delta rounds
// to zero but a real difference exists, nudge by one unit so a
// persistent small offset is not ignored forever.
func (e *LevelEstimator) UpdateIdle(am int16) {
	diff := int32(am) - e.Low
	delta := diff / EstLowRatio
	if delta == 0 {
		switch {
		case diff > 0:
			delta = 1
		case diff < 0:
			delta = -1
		}
	}
	e.Low += delta

	hi := int32(float64(e.Low) * e.HighLowRatio)
	e.High = clamp(hi, e.MinHigh, e.MaxHigh)
}

// UpdateHigh folds one in-pulse amplitude sample into High directly, at
// the faster EstHighRatio rate.
func (e *LevelEstimator) UpdateHigh(am int16) {
	e.High += (int32(am) - e.High) / EstHighRatio
}

// Threshold returns the OOK above/below decision threshold.
func (e *LevelEstimator) Threshold() int32 {
	if e.FixedHigh != 0 {
		return e.FixedHigh
	}
	return (e.Low + e.High) / 2
}

// Hysteresis returns the +/- band around Threshold used to debounce the
// above/below classification (threshold/8, roughly +/-12%).
func (e *LevelEstimator) Hysteresis() int32 {
	return e.Threshold() / 8
}

// Above reports whether am is above threshold+hysteresis.
func (e *LevelEstimator) Above(am int16) bool {
	return int32(am) > e.Threshold()+e.Hysteresis()
}

// Below reports whether am is below threshold-hysteresis.
func (e *LevelEstimator) Below(am int16) bool {
	return int32(am) < e.Threshold()-e.Hysteresis()
}

func clamp(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// HoldCounter debounces a boolean condition: it reports true only once
// the condition has held continuously for more than threshold samples,
// and resets the moment the condition lapses. pkg/pulsedetect applies the
// same rule as its lead-in gate (the above-threshold condition must hold
// for more samples than the threshold before leaving idle), but keeps its
// own counter rather than using a HoldCounter.
type HoldCounter struct {
	count     int64
	Threshold int64
}

// NewHoldCounter returns a counter requiring more than threshold
// consecutive true ticks before Tick reports stable.
func NewHoldCounter(threshold int64) *HoldCounter {
	return &HoldCounter{Threshold: threshold}
}

// Tick advances the counter by one sample and reports whether the
// condition has now held for longer than Threshold.
func (h *HoldCounter) Tick(active bool) bool {
	if active {
		h.count++
	} else {
		h.count = 0
	}
	return h.count > h.Threshold
}

// Reset zeros the counter.
func (h *HoldCounter) Reset() {
	h.count = 0
}

// Count returns the current run length.
func (h *HoldCounter) Count() int64 {
	return h.count
}
