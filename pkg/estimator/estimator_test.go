package estimator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestRatioFromDB(t *testing.T) {
	assert.InDelta(t, 1.0, RatioFromDB(0), 1e-9)
	assert.InDelta(t, 10.0, RatioFromDB(20), 1e-9)
}

func TestUpdateIdleTracksRisingFloor(t *testing.T) {
	e := NewLevelEstimator(0, 32767, 9.0)
	for i := 0; i < 5000; i++ {
		e.UpdateIdle(1000)
	}
	assert.InDelta(t, 1000, int(e.Low), 2)
}

func TestUpdateIdleAntiDeadZone(t *testing.T) {
	e := NewLevelEstimator(0, 32767, 9.0)
	e.Low = 500
	e.UpdateIdle(501)
	assert.Equal(t, int32(501), e.Low)
}

func TestUpdateHighFasterThanIdle(t *testing.T) {
	e := NewLevelEstimator(0, 32767, 9.0)
	e.High = 0
	e.UpdateHigh(1000)
	fast := e.High

	e2 := NewLevelEstimator(0, 32767, 9.0)
	e2.Low = 0
	e2.UpdateIdle(1000)

	assert.Greater(t, int(fast), 0)
	assert.Greater(t, int(fast), int(e2.Low))
}

func TestThresholdHonorsFixedHigh(t *testing.T) {
	e := NewLevelEstimator(0, 32767, 9.0)
	e.FixedHigh = 5000
	e.Low, e.High = 100, 200
	assert.Equal(t, int32(5000), e.Threshold())
}

func TestAboveBelowHysteresisBand(t *testing.T) {
	e := NewLevelEstimator(0, 32767, 9.0)
	e.Low, e.High = 100, 300
	thresh := e.Threshold()
	hyst := e.Hysteresis()

	assert.True(t, e.Above(int16(thresh+hyst+1)))
	assert.False(t, e.Above(int16(thresh+hyst)))
	assert.True(t, e.Below(int16(thresh-hyst-1)))
	assert.False(t, e.Below(int16(thresh-hyst)))
}

func TestHighClampedToRange(t *testing.T) {
	e := NewLevelEstimator(10, 1000, 40.0)
	for i := 0; i < 20000; i++ {
		e.UpdateIdle(30000)
	}
	assert.LessOrEqual(t, e.High, int32(1000))
	assert.GreaterOrEqual(t, e.High, int32(10))
}

func TestHoldCounterDebounce(t *testing.T) {
	h := NewHoldCounter(3)
	for i := 0; i < 3; i++ {
		assert.False(t, h.Tick(true))
	}
	assert.True(t, h.Tick(true))
	assert.Equal(t, int64(4), h.Count())
}

func TestHoldCounterResetsOnLapse(t *testing.T) {
	h := NewHoldCounter(2)
	h.Tick(true)
	h.Tick(true)
	h.Tick(true)
	assert.True(t, h.Tick(true))

	h.Tick(false)
	assert.Equal(t, int64(0), h.Count())
}

func TestHoldCounterResetMethod(t *testing.T) {
	h := NewHoldCounter(1)
	h.Tick(true)
	h.Reset()
	assert.Equal(t, int64(0), h.Count())
}

func TestHoldCounterNeverNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := NewHoldCounter(rapid.Int64Range(0, 100).Draw(rt, "threshold"))
		n := rapid.IntRange(0, 50).Draw(rt, "ticks")
		for i := 0; i < n; i++ {
			active := rapid.Bool().Draw(rt, "active")
			h.Tick(active)
			assert.GreaterOrEqual(t, h.Count(), int64(0))
		}
	})
}
