package pulsedata

import (
	"fmt"
	"io"
)

// vcdScale returns the VCD timestamp scale factor (ticks per sample) and
// the $timescale text to emit for it. Per spec, bursts captured at or
// below 500 kHz use a 1 microsecond timescale; above that, 100
// nanoseconds, so that sample-to-sample deltas never round to zero.
func vcdScale(sampleRate uint32) (scale float64, timescale string) {
	if sampleRate <= 500000 {
		return 1e6 / float64(sampleRate), "1 us"
	}
	return 1e7 / float64(sampleRate), "100 ns"
}

// VCDHeader writes a Value-Change-Dump header declaring the three
// one-bit wires a pulse capture uses: frame ("/"), AM ("'"), FM (`"`).
func VCDHeader(w io.Writer, sampleRate uint32) error {
	_, scale := vcdScale(sampleRate)
	_, err := fmt.Fprintf(w,
		"$date today $end\n"+
			"$version pulsecore $end\n"+
			"$timescale %s $end\n"+
			"$scope module pulse $end\n"+
			"$var wire 1 / frame $end\n"+
			"$var wire 1 ' AM $end\n"+
			"$var wire 1 \" FM $end\n"+
			"$upscope $end\n"+
			"$enddefinitions $end\n",
		scale)
	return err
}

// VCD appends this burst's value changes to w, on wire chID ("/", "'", or
// `"`). Multiple bursts may append to the same file; each call only emits
// the transitions for its own pulse/gap run.
func (p *PulseData) VCD(w io.Writer, chID string) error {
	scale, _ := vcdScale(p.SampleRate)

	pos := p.Offset
	for i := 0; i < p.NumPulses; i++ {
		if err := vcdChange(w, pos, scale, chID, 1); err != nil {
			return err
		}
		pos += int64(p.Pulse[i])
		if err := vcdChange(w, pos, scale, chID, 0); err != nil {
			return err
		}
		pos += int64(p.Gap[i])
	}
	return nil
}

func vcdChange(w io.Writer, samplePos int64, scale float64, chID string, value int) error {
	ts := int64(float64(samplePos) * scale)
	_, err := fmt.Fprintf(w, "#%d\n%d%s\n", ts, value, chID)
	return err
}
