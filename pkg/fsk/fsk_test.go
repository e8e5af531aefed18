package fsk

import (
	"testing"

	"github.com/n6drc/pulsecore/pkg/pulsedata"
	"github.com/stretchr/testify/assert"
)

func TestNewStartsAtInit(t *testing.T) {
	d := New(Classic)
	assert.Equal(t, Classic, d.Algo)
	assert.Equal(t, stateInit, d.state)
}

func TestResetPreservesAlgoAndClearsData(t *testing.T) {
	d := New(MinMax)
	d.Data.NumPulses = 5
	d.pulseLength = 99
	d.Reset()

	assert.Equal(t, MinMax, d.Algo)
	assert.Equal(t, 0, d.Data.NumPulses)
	assert.Equal(t, int32(0), d.pulseLength)
}

func TestFeedMinMaxClassifiesHighLow(t *testing.T) {
	d := New(MinMax)
	for i := 0; i < minMaxSkipSamples+5; i++ {
		d.Feed(5000)
	}
	assert.Equal(t, stateFH, d.state)

	for i := 0; i < 5; i++ {
		d.Feed(-5000)
	}
	assert.Equal(t, stateFL, d.state)
}

func TestFeedMinMaxRecordsTransition(t *testing.T) {
	d := New(MinMax)
	for i := 0; i < minMaxSkipSamples+50; i++ {
		d.Feed(5000)
	}
	for i := 0; i < 50; i++ {
		d.Feed(-5000)
	}
	for i := 0; i < 50; i++ {
		d.Feed(5000)
	}
	assert.Greater(t, d.Data.NumPulses, 0)
}

func TestFeedClassicPrimesThenTracksSegments(t *testing.T) {
	d := New(Classic)
	for i := 0; i < 20; i++ {
		d.Feed(10000)
	}
	for i := 0; i < 5; i++ {
		d.Feed(-10000)
	}
	assert.NotEqual(t, stateInit, d.state)
}

func TestWrapUpFlushesOpenInterval(t *testing.T) {
	d := New(MinMax)
	for i := 0; i < minMaxSkipSamples+10; i++ {
		d.Feed(5000)
	}
	before := d.Data.NumPulses
	n := d.WrapUp()
	assert.GreaterOrEqual(t, n, before)
}

func TestWrapUpRespectsMaxPulses(t *testing.T) {
	d := New(MinMax)
	d.Data.NumPulses = pulsedata.MaxPulses
	n := d.WrapUp()
	assert.Equal(t, pulsedata.MaxPulses, n)
}

func TestFreqEstimatesClassicReadsF1F2(t *testing.T) {
	d := New(Classic)
	d.f1Est = 6000
	d.f2Est = -6000

	f1, f2 := d.FreqEstimates()
	assert.Equal(t, int32(6000), f1)
	assert.Equal(t, int32(-6000), f2)
}

func TestFreqEstimatesMinMaxReadsMaxMin(t *testing.T) {
	d := New(MinMax)
	d.maxVal = 6000
	d.minVal = -6000

	f1, f2 := d.FreqEstimates()
	assert.Equal(t, int32(6000), f1)
	assert.Equal(t, int32(-6000), f2)
}

func TestAbs32(t *testing.T) {
	assert.Equal(t, int32(5), abs32(5))
	assert.Equal(t, int32(5), abs32(-5))
	assert.Equal(t, int32(0), abs32(0))
}
