package analyzer

import (
	"strings"
	"testing"

	"github.com/n6drc/pulsecore/pkg/pulsedata"
	"github.com/n6drc/pulsecore/pkg/rfraw"
	"github.com/stretchr/testify/assert"
)

func burst(sampleRate uint32, pulses, gaps []int32) pulsedata.PulseData {
	var pd pulsedata.PulseData
	pd.SampleRate = sampleRate
	pd.NumPulses = len(pulses)
	for i, p := range pulses {
		pd.Pulse[i] = p
		if i < len(gaps) {
			pd.Gap[i] = gaps[i]
		}
	}
	return pd
}

func TestAnalyzeEmptyBurstNotOK(t *testing.T) {
	var a PulseAnalyzer
	var pd pulsedata.PulseData
	_, ok := a.Analyze(&pd)
	assert.False(t, ok)
}

func TestAnalyzeSinglePulseIsFSKOrNoise(t *testing.T) {
	var a PulseAnalyzer
	pd := burst(1000000, []int32{100}, []int32{200})
	spec, ok := a.Analyze(&pd)
	assert.True(t, ok)
	assert.Equal(t, ModFSKOrNoise, spec.Modulation)
}

func TestClassifyPreamble(t *testing.T) {
	var a PulseAnalyzer
	pd := burst(1000000, []int32{100, 100, 100}, []int32{200, 200, 200})
	spec, ok := a.Analyze(&pd)
	assert.True(t, ok)
	assert.Equal(t, ModPreamble, spec.Modulation)
}

func TestClassifyPPM(t *testing.T) {
	var a PulseAnalyzer
	pd := burst(1000000, []int32{100, 100, 100, 100}, []int32{200, 400, 200})
	spec, ok := a.Analyze(&pd)
	assert.True(t, ok)
	assert.Equal(t, ModPPM, spec.Modulation)
}

func TestClassifyPWMFixedGap(t *testing.T) {
	var a PulseAnalyzer
	pd := burst(1000000, []int32{100, 300, 100, 300}, []int32{500, 500, 500})
	spec, ok := a.Analyze(&pd)
	assert.True(t, ok)
	assert.Equal(t, ModPWMFixedGap, spec.Modulation)
}

func TestClassifyPWMFixedPeriod(t *testing.T) {
	var a PulseAnalyzer
	pd := burst(1000000, []int32{100, 300, 100, 300}, []int32{300, 100, 300})
	spec, ok := a.Analyze(&pd)
	assert.True(t, ok)
	assert.Equal(t, ModPWMFixedPeriod, spec.Modulation)
}

func TestClassifyManchester(t *testing.T) {
	var a PulseAnalyzer
	pd := burst(1000000, []int32{100, 300, 100, 300}, []int32{50, 250, 250})
	spec, ok := a.Analyze(&pd)
	assert.True(t, ok)
	assert.Equal(t, ModManchester, spec.Modulation)
}

func TestClassifyPWMDelimiter(t *testing.T) {
	var a PulseAnalyzer
	pd := burst(1000000, []int32{100, 300, 100, 300, 100}, []int32{50, 150, 300, 600})
	spec, ok := a.Analyze(&pd)
	assert.True(t, ok)
	assert.Equal(t, ModPWMDelimiter, spec.Modulation)
	assert.True(t, spec.HasGapLimit)
}

func TestClassifyNRZ(t *testing.T) {
	var a PulseAnalyzer
	pulses := []int32{100, 200, 300, 100, 200, 300}
	gaps := []int32{50, 150, 250, 50, 150}
	pd := burst(1000000, pulses, gaps)
	spec, ok := a.Analyze(&pd)
	assert.True(t, ok)
	assert.Equal(t, ModNRZ, spec.Modulation)
}

func TestClassifyPWMSync(t *testing.T) {
	var a PulseAnalyzer
	pulses := []int32{100, 250, 600, 100, 250, 600}
	gaps := []int32{50, 80, 50, 80, 50}
	pd := burst(1000000, pulses, gaps)
	spec, ok := a.Analyze(&pd)
	assert.True(t, ok)
	assert.Equal(t, ModPWMSync, spec.Modulation)
	assert.True(t, spec.HasSync)
}

func TestFlexLineFormat(t *testing.T) {
	spec := ModulationSpec{Modulation: ModPPM, ShortWidthUS: 100, LongWidthUS: 400, ResetLimitUS: 1000}
	line := FlexLine("mysensor", spec)
	assert.True(t, strings.HasPrefix(line, "n=mysensor,m=OOK_PULSE_PPM"))
	assert.True(t, strings.Contains(line, "s=100"))
	assert.True(t, strings.Contains(line, "l=400"))
}

func TestFlexLineOptionalFields(t *testing.T) {
	spec := ModulationSpec{Modulation: ModPWMDelimiter, HasGapLimit: true, GapLimitUS: 900, HasSync: true, SyncWidthUS: 50}
	line := FlexLine("s", spec)
	assert.True(t, strings.Contains(line, "g=900"))
	assert.True(t, strings.Contains(line, "y=50"))
}

func TestSynthesizeRfRawRoundTrip(t *testing.T) {
	var a PulseAnalyzer
	pd := burst(1000000, []int32{500, 1000, 500}, []int32{200, 200})
	_, ok := a.Analyze(&pd)
	assert.True(t, ok)

	text, missed, okRaw := a.SynthesizeRfRaw(&pd)
	assert.True(t, okRaw)
	assert.Equal(t, 0, missed)
	assert.True(t, rfraw.Check(text))

	var decoded pulsedata.PulseData
	assert.NoError(t, rfraw.Decode(&decoded, text))
	assert.Equal(t, pd.NumPulses, decoded.NumPulses)
}

func TestSynthesizeRfRawRejectsTooManyBuckets(t *testing.T) {
	var a PulseAnalyzer
	pulses := make([]int32, 20)
	for i := range pulses {
		pulses[i] = int32(i*1000 + 100)
	}
	pd := burst(1000000, pulses, nil)
	a.Analyze(&pd)

	_, _, ok := a.SynthesizeRfRaw(&pd)
	assert.False(t, ok)
}
