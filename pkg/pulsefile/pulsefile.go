// Package pulsefile implements the textual OOK/FSK pulse-train format:
// "; key value" header comments followed by "mark_us gap_us" data lines,
// terminated by ";end".
//
// Load/Dump live in their own package, rather than as PulseData methods,
// because the format's data lines may also be RfRaw codes (lines
// starting with aa/AA are delegated to pkg/rfraw), and pkg/rfraw itself
// depends on pkg/pulsedata — putting the text-format reader in
// pkg/pulsedata would create an import cycle. Keeping pulsedata a plain
// data type and composing the format on top of it here turns what would
// otherwise be implicit, mixed-unit global state into explicit,
// composable value types.
package pulsefile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/n6drc/pulsecore/pkg/pulsedata"
	"github.com/n6drc/pulsecore/pkg/rfraw"
	"hz.tools/rf"
)

// ErrMalformedInput is returned for data lines that are neither a valid
// "mark gap" pair nor a recognizable RfRaw code. Callers should skip the
// line and continue rather than treat the whole load as fatal; Load
// itself stops at the first malformed line since it has no well-defined
// resynchronization point within a single burst.
var ErrMalformedInput = fmt.Errorf("pulsefile: malformed input")

// Load reads one burst from r in the textual pulse format. sampleRate is
// used both as the default burst sample rate (overridden by a
// ";samplerate" header line, if present) and as the factor converting
// the file's microsecond durations to samples.
func Load(r io.Reader, sampleRate uint32) (*pulsedata.PulseData, error) {
	pd := &pulsedata.PulseData{SampleRate: sampleRate}

	scanner := bufio.NewScanner(r)
	sawData := false
	for scanner.Scan() {
		line := strings.TrimRight(strings.TrimSpace(scanner.Text()), "\r")
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ";") {
			if err := parseHeader(pd, line); err != nil {
				return nil, err
			}
			if strings.TrimSpace(strings.TrimPrefix(line, ";")) == "end" {
				break
			}
			continue
		}

		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "aa") {
			if err := rfraw.Decode(pd, line); err != nil {
				return nil, fmt.Errorf("pulsefile: %w: %v", ErrMalformedInput, err)
			}
			sawData = true
			continue
		}

		markUs, gapUs, err := parseDataLine(line)
		if err != nil {
			return nil, fmt.Errorf("pulsefile: %w: %q", ErrMalformedInput, line)
		}
		if pd.NumPulses >= pulsedata.MaxPulses {
			break
		}
		toSample := float64(pd.SampleRate) / 1e6
		pd.Pulse[pd.NumPulses] = int32(float64(markUs) * toSample)
		pd.Gap[pd.NumPulses] = int32(float64(gapUs) * toSample)
		pd.NumPulses++
		sawData = true
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawData {
		return nil, fmt.Errorf("pulsefile: %w: no data lines", ErrMalformedInput)
	}
	return pd, nil
}

func parseDataLine(line string) (mark, gap int64, err error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, ErrMalformedInput
	}
	mark, err = strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	gap, err = strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return mark, gap, nil
}

func parseHeader(pd *pulsedata.PulseData, line string) error {
	body := strings.TrimSpace(strings.TrimPrefix(line, ";"))
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return nil
	}
	key := strings.ToLower(fields[0])
	value := ""
	if len(fields) > 1 {
		value = fields[1]
	}

	switch key {
	case "samplerate":
		if v, err := strconv.ParseUint(value, 10, 32); err == nil {
			pd.SampleRate = uint32(v)
		}
	case "sampledepth":
		if v, err := strconv.ParseUint(value, 10, 32); err == nil {
			pd.DepthBits = uint32(v)
		}
	case "freq1":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			pd.Freq1Hz = rf.Hz(v)
		}
	case "freq2":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			pd.Freq2Hz = rf.Hz(v)
		}
	case "centerfreq":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			pd.CenterFreqHz = rf.Hz(v)
		}
	case "rssi":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			pd.RSSIDb = v
		}
	case "snr":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			pd.SNRDb = v
		}
	case "noise":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			pd.NoiseDb = v
		}
	case "range":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			pd.RangeDb = v
		}
	}
	return nil
}

// Dump writes pd in the textual pulse format: a small header block
// followed by one "mark_us gap_us" line per entry and a terminating
// ";end".
func Dump(w io.Writer, pd *pulsedata.PulseData) error {
	toUs := 1e6 / float64(pd.SampleRate)

	kind := "ook"
	if pd.IsFSK() {
		kind = "fsk"
	}

	lines := []string{
		"; pulse data",
		"; version 1",
		"; timescale 1us",
		fmt.Sprintf("; samplerate %d", pd.SampleRate),
		fmt.Sprintf("; sampledepth %d", pd.DepthBits),
		fmt.Sprintf("; freq1 %.0f", float64(pd.Freq1Hz)),
		fmt.Sprintf("; freq2 %.0f", float64(pd.Freq2Hz)),
		fmt.Sprintf("; centerfreq %.0f", float64(pd.CenterFreqHz)),
		fmt.Sprintf("; rssi %.1f", pd.RSSIDb),
		fmt.Sprintf("; snr %.1f", pd.SNRDb),
		fmt.Sprintf("; noise %.1f", pd.NoiseDb),
		fmt.Sprintf("; range %.1f", pd.RangeDb),
		fmt.Sprintf("; %s %d pulses", kind, pd.NumPulses),
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}

	for i := 0; i < pd.NumPulses; i++ {
		markUs := int64(float64(pd.Pulse[i]) * toUs)
		gapUs := int64(float64(pd.Gap[i]) * toUs)
		if _, err := fmt.Fprintf(w, "%d %d\n", markUs, gapUs); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "; end")
	return err
}
