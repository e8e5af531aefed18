// pulsecore reads a captured IQ/AM sample file, runs it through the
// OOK/FSK pulse detector, classifies each completed burst, and prints a
// summary line per burst -- optionally emitting RfRaw text, a pulse-dump
// file, or a VCD logic trace alongside it.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/n6drc/pulsecore/pkg/analyzer"
	"github.com/n6drc/pulsecore/pkg/config"
	"github.com/n6drc/pulsecore/pkg/dsp"
	"github.com/n6drc/pulsecore/pkg/fileformat"
	"github.com/n6drc/pulsecore/pkg/fsk"
	"github.com/n6drc/pulsecore/pkg/pulsedata"
	"github.com/n6drc/pulsecore/pkg/pulsedetect"
	"github.com/n6drc/pulsecore/pkg/pulsefile"
)

var (
	input        = pflag.StringP("input", "i", "", "input sample file, as a file-format descriptor (e.g. cu8:capture.cu8)")
	chunkSamples = pflag.Int("chunk", 16384, "samples per read chunk")
	fixedHigh    = pflag.Int32("fixed-high", 0, "fixed OOK high level override (0 disables)")
	fskAlgoFlag  = pflag.String("fsk", "classic", "FSK sub-detector algorithm: classic or minmax")
	dumpPulses   = pflag.String("dump", "", "write each burst to this pulse-dump file")
	vcdOut       = pflag.String("vcd", "", "write each burst's logic trace to this VCD file")
	rfrawOut     = pflag.Bool("rfraw", false, "print RfRaw text for each burst when it fits the 8-bucket limit")
	quiet        = pflag.BoolP("quiet", "q", false, "suppress the per-burst summary line")
	configPath   = pflag.String("config", "", "YAML file of flex-decoder presets and default sample rate (see pkg/config)")
	presetName   = pflag.String("preset", "", "flag a burst's summary line when its modulation matches this named preset")
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -i <descriptor> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Demodulate a captured sample file into OOK/FSK bursts.\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if *input == "" {
		pflag.Usage()
		return fmt.Errorf("-i/--input is required")
	}

	desc, err := fileformat.Parse(*input)
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	if desc.Path == "" {
		return fmt.Errorf("descriptor %q did not include a path; use <tag>:<path>", *input)
	}

	algo := fsk.Classic
	if *fskAlgoFlag == "minmax" {
		algo = fsk.MinMax
	}

	cfg := config.Defaults()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			return err
		}
	}
	var preset config.FlexPreset
	if *presetName != "" {
		var found bool
		preset, found = cfg.Find(*presetName)
		if !found {
			return fmt.Errorf("no preset named %q in config", *presetName)
		}
	}

	f, err := os.Open(desc.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", desc.Path, err)
	}
	defer f.Close()

	sampleRate := cfg.DefaultSampleRate
	if desc.HasRate {
		sampleRate = desc.SampleHz
	}

	det := pulsedetect.NewDetector(sampleRate, 0, 32767, 9.0, *fixedHigh, algo)

	var dumpW *bufio.Writer
	if *dumpPulses != "" {
		df, err := os.Create(*dumpPulses)
		if err != nil {
			return fmt.Errorf("create %s: %w", *dumpPulses, err)
		}
		defer df.Close()
		dumpW = bufio.NewWriter(df)
		defer dumpW.Flush()
	}

	var vcdW *bufio.Writer
	if *vcdOut != "" {
		vf, err := os.Create(*vcdOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", *vcdOut, err)
		}
		defer vf.Close()
		vcdW = bufio.NewWriter(vf)
		defer vcdW.Flush()
	}

	if vcdW != nil {
		if err := pulsedata.VCDHeader(vcdW, sampleRate); err != nil {
			return fmt.Errorf("vcd header: %w", err)
		}
	}

	buf := make([]byte, *chunkSamples*sampleWidth(desc))
	lpf := dsp.NewLowPassFilter()
	fm := dsp.NewFmDiscriminator()
	var sampleOffset int64
	var a analyzer.PulseAnalyzer
	bursts := 0

	reader := bufio.NewReaderSize(f, len(buf))
	for {
		n, readErr := reader.Read(buf)
		if n > 0 {
			env, fmOut := demod(desc, buf[:n], lpf, fm)
			bursts += drainChunk(det, &a, env, fmOut, sampleOffset, dumpW, vcdW, preset)
			sampleOffset += int64(len(env))
		}
		if readErr != nil {
			break
		}
	}

	if !*quiet {
		fmt.Printf("%d burst(s) decoded\n", bursts)
	}
	return nil
}

func sampleWidth(desc fileformat.Descriptor) int {
	bytesPerSample := int(desc.Width) / 8
	if bytesPerSample < 1 {
		bytesPerSample = 1
	}
	return bytesPerSample * desc.Channels
}

// demod runs every input through the cu8 (8-bit unsigned IQ) path; desc
// is not consulted, so cs16/cf32 input is demodulated as if it were cu8.
func demod(desc fileformat.Descriptor, raw []byte, lpf *dsp.LowPassFilter, fm *dsp.FmDiscriminator) ([]int16, []int16) {
	env := dsp.EnvelopeCU8(raw)
	lpf.Apply(env)
	fmOut := fm.FeedCU8(raw)
	return env, fmOut
}

// drainChunk feeds one demodulated chunk through det until every sample
// is consumed, handling each completed burst as it emerges, and returns
// how many bursts completed.
func drainChunk(det *pulsedetect.Detector, a *analyzer.PulseAnalyzer, env, fmOut []int16, offset int64, dumpW, vcdW *bufio.Writer, preset config.FlexPreset) int {
	bursts := 0
	consumedTotal := 0
	rest, fmRest := env, fmOut
	for len(rest) > 0 {
		res, consumed := det.Feed(rest, fmRest, offset+int64(consumedTotal))
		consumedTotal += consumed
		rest = rest[consumed:]
		fmRest = fmRest[consumed:]

		if res.Kind == pulsedetect.None {
			continue
		}
		handleBurst(a, res, dumpW, vcdW, preset)
		bursts++
	}
	return bursts
}

func handleBurst(a *analyzer.PulseAnalyzer, res pulsedetect.FeedResult, dumpW, vcdW *bufio.Writer, preset config.FlexPreset) {
	pd := res.Data
	spec, ok := a.Analyze(&pd)

	if !*quiet {
		kind := "OOK"
		if res.Kind == pulsedetect.FSK {
			kind = "FSK"
		}
		if ok {
			match := ""
			if preset.Name != "" && spec.Modulation.String() == preset.Modulation {
				match = " preset=" + preset.Name
			}
			fmt.Printf("%s burst: offset=%d pulses=%d modulation=%s short=%.0fus long=%.0fus%s\n",
				kind, pd.Offset, pd.NumPulses, spec.Modulation, spec.ShortWidthUS, spec.LongWidthUS, match)
		} else {
			fmt.Printf("%s burst: offset=%d pulses=%d\n", kind, pd.Offset, pd.NumPulses)
		}
	}

	if dumpW != nil {
		if err := pulsefile.Dump(dumpW, &pd); err != nil {
			fmt.Fprintf(os.Stderr, "dump: %v\n", err)
		}
	}
	if vcdW != nil {
		if err := pd.VCD(vcdW, "0"); err != nil {
			fmt.Fprintf(os.Stderr, "vcd: %v\n", err)
		}
	}
	if *rfrawOut {
		if text, missed, okRaw := a.SynthesizeRfRaw(&pd); okRaw {
			if missed > 0 {
				fmt.Fprintf(os.Stderr, "rfraw: %d pulses missed\n", missed)
			}
			fmt.Println(text)
		}
	}
}
