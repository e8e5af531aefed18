package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestEnvelopeCU8Centred(t *testing.T) {
	iq := []byte{128, 128, 255, 128, 128, 0}
	out := EnvelopeCU8(iq)

	assert.Equal(t, 3, len(out))
	assert.Equal(t, int16(0), out[0])
	assert.Equal(t, int16(127*127), out[1])
	assert.Equal(t, int16(128*128), out[2])
}

func TestEnvelopeCU8NeverNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 64).Draw(rt, "n")
		iq := make([]byte, n*2)
		for i := range iq {
			iq[i] = byte(rapid.IntRange(0, 255).Draw(rt, "b"))
		}
		out := EnvelopeCU8(iq)
		for _, v := range out {
			assert.GreaterOrEqual(t, v, int16(0))
		}
	})
}

func TestMagnitudeCS16FullScale(t *testing.T) {
	iq := []int16{32767, 0}
	out := MagnitudeCS16(iq)
	assert.Equal(t, 1, len(out))
	assert.InDelta(t, FullScale, int(out[0]), 2)
}

func TestLowPassFilterResetClearsState(t *testing.T) {
	f := NewLowPassFilter()
	buf := []int16{1000, 1000, 1000, 1000}
	f.Apply(buf)
	first := buf[len(buf)-1]

	f.Reset()
	buf2 := []int16{1000, 1000, 1000, 1000}
	f.Apply(buf2)

	assert.Equal(t, first, buf2[len(buf2)-1])
}

func TestLowPassFilterConvergesToDC(t *testing.T) {
	f := NewLowPassFilter()
	buf := make([]int16, 2000)
	for i := range buf {
		buf[i] = 5000
	}
	f.Apply(buf)
	assert.InDelta(t, 5000, int(buf[len(buf)-1]), 50)
}

func TestFmDiscriminatorFirstSampleIsZero(t *testing.T) {
	d := NewFmDiscriminator()
	iq := []byte{128, 128, 255, 128}
	out := d.FeedCU8(iq)
	assert.Equal(t, int16(0), out[0])
}

func TestFmDiscriminatorResetClearsHistory(t *testing.T) {
	d := NewFmDiscriminator()
	iq := []byte{255, 128, 128, 255}
	first := d.FeedCU8(iq)

	d.Reset()
	second := d.FeedCU8(iq)

	assert.Equal(t, first, second)
}

func TestFmDiscriminatorConstantToneIsZero(t *testing.T) {
	d := NewFmDiscriminator()
	iq := make([]byte, 20)
	for i := 0; i < len(iq); i += 2 {
		iq[i] = 200
		iq[i+1] = 128
	}
	out := d.FeedCU8(iq)
	for i := 1; i < len(out); i++ {
		assert.Equal(t, int16(0), out[i])
	}
}
