package pulsedata

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestClear(t *testing.T) {
	var p PulseData
	p.NumPulses = 3
	p.Pulse[0] = 100
	p.Offset = 55
	p.Clear()

	assert.Equal(t, PulseData{}, p)
}

func TestIsFSK(t *testing.T) {
	var p PulseData
	assert.False(t, p.IsFSK())
	p.FSKF2Est = 1200
	assert.True(t, p.IsFSK())
}

func TestTotalSamples(t *testing.T) {
	var p PulseData
	p.NumPulses = 2
	p.Pulse[0], p.Gap[0] = 10, 20
	p.Pulse[1], p.Gap[1] = 30, 40
	assert.Equal(t, int64(100), p.TotalSamples())
}

func TestShiftNoop(t *testing.T) {
	var p PulseData
	p.NumPulses = 10
	p.Shift()
	assert.Equal(t, 10, p.NumPulses)
	assert.Equal(t, int64(0), p.Offset)
}

func TestShiftDropsOldestHalf(t *testing.T) {
	var p PulseData
	p.NumPulses = MaxPulses
	for i := 0; i < MaxPulses; i++ {
		p.Pulse[i] = int32(i + 1)
		p.Gap[i] = 1
	}

	p.Shift()

	assert.Equal(t, MaxPulses/2, p.NumPulses)
	assert.Equal(t, int32(MaxPulses/2+1), p.Pulse[0])
	assert.Greater(t, p.Offset, int64(0))
}

func TestShiftPreservesOffsetInvariant(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var p PulseData
		n := rapid.IntRange(0, MaxPulses).Draw(rt, "n")
		p.NumPulses = n
		for i := 0; i < n; i++ {
			p.Pulse[i] = rapid.Int32Range(1, 1000).Draw(rt, "pulse")
			p.Gap[i] = rapid.Int32Range(1, 1000).Draw(rt, "gap")
		}
		before := p.TotalSamples()
		p.Shift()
		after := p.TotalSamples()
		assert.Equal(t, before, p.Offset+after)
		assert.LessOrEqual(t, p.NumPulses, n)
	})
}

func TestDumpRawClipsToBuffer(t *testing.T) {
	var p PulseData
	p.Offset = 2
	p.NumPulses = 1
	p.Pulse[0] = 3
	p.Gap[0] = 3

	buf := make([]byte, 4)
	p.DumpRaw(buf, 0, BitOOK)

	assert.Equal(t, byte(0), buf[0])
	assert.Equal(t, byte(0), buf[1])
	assert.Equal(t, byte(rawGapBit|BitOOK), buf[2])
	assert.Equal(t, byte(rawGapBit|BitOOK), buf[3])
}

func TestStringReflectsKind(t *testing.T) {
	var p PulseData
	p.SampleRate = 250000
	p.NumPulses = 4
	assert.True(t, strings.Contains(p.String(), "OOK"))

	p.FSKF2Est = 900
	assert.True(t, strings.Contains(p.String(), "FSK"))
}

func TestVCDHeaderAndBurst(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, VCDHeader(&buf, 250000))
	assert.True(t, strings.Contains(buf.String(), "$timescale"))

	var p PulseData
	p.SampleRate = 250000
	p.NumPulses = 1
	p.Pulse[0] = 10
	p.Gap[0] = 20

	buf.Reset()
	assert.NoError(t, p.VCD(&buf, "0"))
	out := buf.String()
	assert.True(t, strings.Contains(out, "10"))
	assert.True(t, strings.Contains(out, "00"))
}
