// Package fileformat parses the file-format descriptor string used to
// tell the pipeline what a sample file contains: tags like "cu8", "cs16.iq", "cu8.433.92M", "cu8.250ksps", or a forced
// "<tag>:<path>" prefix. Grounded on gherlein-gocat's pkg/config, which
// parses a similarly compact device-profile string into a bitmask of
// enum fields; this package keeps that "small string grammar, explicit
// parse errors, no regexp" shape.
package fileformat

import (
	"fmt"
	"strconv"
	"strings"

	"hz.tools/rf"
)

// Kind is the content-kind component of a descriptor's bitmask.
type Kind uint32

const (
	KindUnknown Kind = 0
	KindIQ      Kind = 1 << 0
	KindAM      Kind = 1 << 1
	KindFM      Kind = 1 << 2
	KindLogic   Kind = 1 << 3
	KindVCD     Kind = 1 << 4
	KindOOK     Kind = 1 << 5
)

// Width is the sample width in bits.
type Width uint32

const (
	Width8  Width = 8
	Width12 Width = 12
	Width16 Width = 16
	Width32 Width = 32
	Width64 Width = 64
)

// Descriptor is the parsed form of a file-format tag string.
type Descriptor struct {
	Kind     Kind
	Channels int // 1 or 2
	Signed   bool
	Float    bool
	Width    Width

	Path      string // set when the "<tag>:<path>" form was used
	FreqHz    rf.Hz
	HasFreq   bool
	SampleHz  uint32
	HasRate   bool
}

// ErrUnsupported is returned when a descriptor string does not map to a
// known bitmask.
var ErrUnsupported = fmt.Errorf("fileformat: unsupported descriptor")

// knownTags maps the base tag (before any frequency/rate suffix) to its
// bitmask fields. "ook"/"vcd"/"logic" are core's allowed raw formats;
// "am"/"fm" are post-detector single-channel forms; "cu8"/"cs16"/"cf32"
// are IQ formats.
var knownTags = map[string]Descriptor{
	"cu8":   {Kind: KindIQ, Channels: 2, Signed: false, Width: Width8},
	"cs16":  {Kind: KindIQ, Channels: 2, Signed: true, Width: Width16},
	"cf32":  {Kind: KindIQ, Channels: 2, Signed: true, Float: true, Width: Width32},
	"am":    {Kind: KindAM, Channels: 1, Signed: true, Width: Width16},
	"fm":    {Kind: KindFM, Channels: 1, Signed: true, Width: Width16},
	"logic": {Kind: KindLogic, Channels: 1, Signed: false, Width: Width8},
	"vcd":   {Kind: KindVCD, Channels: 1},
	"ook":   {Kind: KindOOK},
	// "iq" carries no layout of its own; it exists so a redundant
	// suffix like "cu8.iq" parses instead of erroring on an unknown
	// suffix tag.
	"iq": {Kind: KindIQ},
}

// CoreInputKinds are the kinds allowed as input to the detection core.
var CoreInputKinds = []Kind{KindIQ, KindAM, KindOOK}

// Parse parses a descriptor string such as "cu8", "cs16.iq",
// "cu8.433.92M", "cu8.250ksps", or "am:/tmp/capture.am". A frequency or
// rate token may stand before or after the format tag, but a string with
// no format tag at all, such as a bare "433.92M", is rejected with
// ErrUnsupported.
func Parse(s string) (Descriptor, error) {
	var d Descriptor

	if idx := strings.Index(s, ":"); idx >= 0 && !looksLikeSuffix(s[:idx]) {
		d.Path = s[idx+1:]
		s = s[:idx]
	}

	parts := splitDescriptorParts(s)
	base := parts[0]

	freqOrRate, isTag := parseFreqOrRate(base)
	if !isTag {
		tag, ok := knownTags[strings.ToLower(base)]
		if !ok {
			return Descriptor{}, fmt.Errorf("%w: %q", ErrUnsupported, base)
		}
		d.Kind = tag.Kind
		d.Channels = tag.Channels
		d.Signed = tag.Signed
		d.Float = tag.Float
		d.Width = tag.Width
	} else {
		applyFreqOrRate(&d, freqOrRate)
	}

	for _, suffix := range parts[1:] {
		if freqOrRate, ok := parseFreqOrRate(suffix); ok {
			applyFreqOrRate(&d, freqOrRate)
			continue
		}
		tag, ok := knownTags[strings.ToLower(suffix)]
		if !ok {
			return Descriptor{}, fmt.Errorf("%w: suffix %q", ErrUnsupported, suffix)
		}
		// A suffix tag only contributes its content Kind (e.g.
		// "cu8.iq" is redundant but valid); the base tag's layout wins.
		d.Kind |= tag.Kind
	}

	if d.Kind == KindUnknown {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnsupported, s)
	}
	return d, nil
}

// splitDescriptorParts splits a descriptor string on "." the way a tag
// string needs: a frequency token like "433.92M" contains a literal
// decimal point that must NOT be treated as a suffix separator. It
// splits naively first, then greedily re-merges adjacent fragments
// whenever the merge itself parses as a frequency/rate token and the
// unmerged fragment does not parse as a known tag or token on its own.
func splitDescriptorParts(s string) []string {
	raw := strings.Split(s, ".")
	var parts []string
	for i := 0; i < len(raw); i++ {
		cur := raw[i]
		for i+1 < len(raw) {
			if _, ok := parseFreqOrRate(cur); ok {
				break
			}
			if _, ok := knownTags[strings.ToLower(cur)]; ok {
				break
			}
			candidate := cur + "." + raw[i+1]
			if _, ok := parseFreqOrRate(candidate); !ok {
				break
			}
			cur = candidate
			i++
		}
		parts = append(parts, cur)
	}
	return parts
}

type freqOrRate struct {
	isRate bool
	hz     float64
}

// parseFreqOrRate recognizes "433.92M" (a centre frequency) and
// "250ksps" (a sample rate). ok is false when text is neither.
func parseFreqOrRate(text string) (freqOrRate, bool) {
	lower := strings.ToLower(text)
	switch {
	case strings.HasSuffix(lower, "sps"):
		numPart := strings.TrimSuffix(lower, "sps")
		v, mult, ok := parseMagnitude(numPart)
		if !ok {
			return freqOrRate{}, false
		}
		return freqOrRate{isRate: true, hz: v * mult}, true
	case len(lower) > 0 && (strings.HasSuffix(lower, "m") || strings.HasSuffix(lower, "k") || strings.HasSuffix(lower, "g")):
		v, mult, ok := parseMagnitude(lower)
		if !ok {
			return freqOrRate{}, false
		}
		return freqOrRate{isRate: false, hz: v * mult}, true
	default:
		return freqOrRate{}, false
	}
}

func parseMagnitude(text string) (value, multiplier float64, ok bool) {
	if text == "" {
		return 0, 0, false
	}
	suffix := text[len(text)-1]
	mult := 1.0
	numeric := text
	switch suffix {
	case 'k':
		mult = 1e3
		numeric = text[:len(text)-1]
	case 'm':
		mult = 1e6
		numeric = text[:len(text)-1]
	case 'g':
		mult = 1e9
		numeric = text[:len(text)-1]
	}
	v, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return 0, 0, false
	}
	return v, mult, true
}

func applyFreqOrRate(d *Descriptor, fr freqOrRate) {
	if fr.isRate {
		d.HasRate = true
		d.SampleHz = uint32(fr.hz)
	} else {
		d.HasFreq = true
		d.FreqHz = rf.Hz(fr.hz)
	}
}

// looksLikeSuffix reports whether the text before the first ':' is a
// frequency/rate token, in which case the ':' does not start a path.
// Anything else before the first ':' is taken as the forced-override
// tag, so a Windows-style drive letter such as "C:" is read as a tag and
// rejected as unknown.
func looksLikeSuffix(prefix string) bool {
	_, ok := parseFreqOrRate(prefix)
	return ok
}
