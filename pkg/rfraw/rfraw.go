// Package rfraw implements the RfRaw ASCII-hex bucket-and-index textual
// burst format, originally defined by Portisch/
// OpenMQTTGateway and adopted by rtl_433 as a copy/paste-friendly way to
// move a captured burst between tools. Two code shapes are supported:
//
//	0xaa 0xb1 <nbins> [bins...] <nibbles...> 0x55          ("B1", single bucket code)
//	0xaa 0xb0 <len> <nbins> <repeats> [bins...] <nibbles...> 0x55  ("B0", repeated code)
//
// Text is ASCII hex, case-insensitive, with "- : space tab" treated as
// separators and ignored.
package rfraw

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/n6drc/pulsecore/pkg/pulsedata"
)

// ErrMalformed is returned when text does not parse as a well-formed
// RfRaw code.
var ErrMalformed = fmt.Errorf("rfraw: malformed code")

// pulseFlag marks a nibble as indexing a pulse (mark) bucket rather than
// a gap (space) bucket, in the "new" nibble format. The low 3 bits of the
// nibble are the bucket index, so at most 8 buckets are addressable this
// way -- matching the analyzer's 8-bucket gate on RfRaw
// synthesis.
const pulseFlag = 0x8

// Check reports whether text looks like an RfRaw code: the first four
// non-separator hex nibbles spell "aa b0" or "aa b1".
func Check(text string) bool {
	nibbles := nibbleStream(text)
	if len(nibbles) < 4 {
		return false
	}
	if nibbles[0] != 0xa || nibbles[1] != 0xa || nibbles[2] != 0xb {
		return false
	}
	return nibbles[3] == 0x0 || nibbles[3] == 0x1
}

// Decode parses one or more RfRaw codes out of text and appends the
// pulses/gaps they describe to pd, extending pd.NumPulses by each
// code's bucket sequence repeated Repeats times. It sets pd.SampleRate
// to 1,000,000 (RfRaw bucket values are in microseconds).
func Decode(pd *pulsedata.PulseData, text string) error {
	codes, err := Parse(text)
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		return fmt.Errorf("%w: no codes found", ErrMalformed)
	}

	pd.SampleRate = 1000000

	for _, code := range codes {
		for rep := 0; rep < int(code.effectiveRepeats()); rep++ {
			i := 0
			for i < len(code.Nibbles) {
				if pd.NumPulses >= pulsedata.MaxPulses {
					return nil
				}
				pulseNibble := code.Nibbles[i]
				i++
				var gapNibble byte
				if i < len(code.Nibbles) {
					gapNibble = code.Nibbles[i]
					i++
				}
				pulseIdx := int(pulseNibble & 0x7)
				gapIdx := int(gapNibble & 0x7)
				if pulseIdx >= len(code.Bins) || gapIdx >= len(code.Bins) {
					return fmt.Errorf("%w: nibble indexes bucket %d/%d out of range",
						ErrMalformed, pulseIdx, gapIdx)
				}
				pd.Pulse[pd.NumPulses] = int32(code.Bins[pulseIdx])
				pd.Gap[pd.NumPulses] = int32(code.Bins[gapIdx])
				pd.NumPulses++
			}
		}
	}
	return nil
}

// Code is one parsed (or to-be-encoded) RfRaw code block.
type Code struct {
	// Kind is 0 for a "B0" repeated code, 1 for a "B1" single code.
	Kind int
	// Bins holds up to 8 distinct pulse/gap width values, in
	// microseconds.
	Bins []uint16
	// Nibbles is the bucket-index sequence, alternating pulse, gap,
	// pulse, gap, ... Pulse nibbles have pulseFlag set.
	Nibbles []byte
	// Repeats is the repetition count for a B0 code (ignored for B1).
	Repeats byte
}

func (c Code) effectiveRepeats() byte {
	if c.Kind == 0 && c.Repeats > 0 {
		return c.Repeats
	}
	return 1
}

// Parse extracts every RfRaw code present in text.
func Parse(text string) ([]Code, error) {
	nibbles := nibbleStream(text)
	var codes []Code

	pos := 0
	for pos < len(nibbles) {
		// Skip to the next "aa" marker.
		if pos+4 > len(nibbles) || nibbles[pos] != 0xa || nibbles[pos+1] != 0xa || nibbles[pos+2] != 0xb {
			pos++
			continue
		}
		kind := nibbles[pos+3]
		if kind != 0 && kind != 1 {
			pos++
			continue
		}
		pos += 4

		code := Code{Kind: int(kind)}
		if kind == 0 {
			if pos+2 > len(nibbles) {
				return nil, fmt.Errorf("%w: truncated B0 header", ErrMalformed)
			}
			_ = nibbleByte(nibbles, pos) // payload length, informational only
			pos += 2
			if pos+2 > len(nibbles) {
				return nil, fmt.Errorf("%w: truncated B0 nbins", ErrMalformed)
			}
			nbins := int(nibbleByte(nibbles, pos))
			pos += 2
			if pos+2 > len(nibbles) {
				return nil, fmt.Errorf("%w: truncated B0 repeats", ErrMalformed)
			}
			code.Repeats = nibbleByte(nibbles, pos)
			pos += 2
			bins, next, err := readBins(nibbles, pos, nbins)
			if err != nil {
				return nil, err
			}
			code.Bins = bins
			pos = next
		} else {
			if pos+2 > len(nibbles) {
				return nil, fmt.Errorf("%w: truncated B1 nbins", ErrMalformed)
			}
			nbins := int(nibbleByte(nibbles, pos))
			pos += 2
			bins, next, err := readBins(nibbles, pos, nbins)
			if err != nil {
				return nil, err
			}
			code.Bins = bins
			pos = next
		}

		// Nibbles run until the 0x55 terminator byte.
		start := pos
		for pos+2 <= len(nibbles) && !(nibbles[pos] == 0x5 && nibbles[pos+1] == 0x5) {
			pos++
		}
		code.Nibbles = append(code.Nibbles, nibbles[start:pos]...)
		if pos+2 <= len(nibbles) {
			pos += 2 // skip terminator
		}

		codes = append(codes, code)
	}

	if len(codes) == 0 {
		return nil, fmt.Errorf("%w: no \"aa b0\"/\"aa b1\" marker found", ErrMalformed)
	}
	return codes, nil
}

func readBins(nibbles []byte, pos, nbins int) ([]uint16, int, error) {
	bins := make([]uint16, 0, nbins)
	for b := 0; b < nbins; b++ {
		if pos+4 > len(nibbles) {
			return nil, 0, fmt.Errorf("%w: truncated bucket table", ErrMalformed)
		}
		v := uint16(nibbles[pos])<<12 | uint16(nibbles[pos+1])<<8 | uint16(nibbles[pos+2])<<4 | uint16(nibbles[pos+3])
		bins = append(bins, v)
		pos += 4
	}
	return bins, pos, nil
}

func nibbleByte(nibbles []byte, pos int) byte {
	return nibbles[pos]<<4 | nibbles[pos+1]
}

// nibbleStream lowercases text, drops separators ("- : space tab" and
// any other non-hex rune), and returns one nibble value (0-15) per hex
// digit.
func nibbleStream(text string) []byte {
	var out []byte
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= '0' && r <= '9':
			out = append(out, byte(r-'0'))
		case r >= 'a' && r <= 'f':
			out = append(out, byte(r-'a'+10))
		default:
			// separator or stray character: ignore
		}
	}
	return out
}

// Encode synthesizes RfRaw text for the given codes, each terminated by
// 0x55, space-separated in the conventional "AA B1 ..." layout.
func Encode(codes []Code) string {
	var sb strings.Builder
	for i, code := range codes {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(encodeOne(code))
	}
	return sb.String()
}

func encodeOne(code Code) string {
	var sb strings.Builder
	sb.WriteString("AA ")
	if code.Kind == 1 {
		sb.WriteString("B1 ")
		fmt.Fprintf(&sb, "%02X ", len(code.Bins))
	} else {
		sb.WriteString("B0 ")
		payloadLen := 3 + 2*len(code.Bins) + (len(code.Nibbles)+1)/2
		fmt.Fprintf(&sb, "%02X ", payloadLen)
		fmt.Fprintf(&sb, "%02X ", len(code.Bins))
		fmt.Fprintf(&sb, "%02X ", code.effectiveRepeats())
	}
	for _, bin := range code.Bins {
		fmt.Fprintf(&sb, "%04X ", bin)
	}
	for i := 0; i < len(code.Nibbles); i += 2 {
		hi := code.Nibbles[i]
		var lo byte
		if i+1 < len(code.Nibbles) {
			lo = code.Nibbles[i+1]
		}
		fmt.Fprintf(&sb, "%02X ", hi<<4|lo)
	}
	sb.WriteString("55")
	return sb.String()
}

// EncodeBurst builds the bucket table and pulse/gap nibble sequence for
// a captured burst whose widths have already been quantized to at most
// 8 distinct values, as pkg/analyzer does before calling this. vals is
// the bucket table; pulseIdx/gapIdx are, per burst entry, the index into
// vals the pulse and gap width round to.
func EncodeBurst(vals []uint16, pulseIdx, gapIdx []int) (Code, error) {
	if len(vals) > 8 {
		return Code{}, fmt.Errorf("rfraw: %d buckets exceeds the 8-bucket nibble limit", len(vals))
	}
	if len(pulseIdx) != len(gapIdx) {
		return Code{}, fmt.Errorf("rfraw: pulse/gap index count mismatch")
	}
	code := Code{Kind: 1, Bins: append([]uint16(nil), vals...)}
	for i := range pulseIdx {
		code.Nibbles = append(code.Nibbles, pulseFlag|byte(pulseIdx[i]), byte(gapIdx[i]))
	}
	return code, nil
}

// ParseUint16 is a small helper for reading a RfRaw bucket word from a
// plain hex string (used by callers building Code values by hand, e.g.
// in tests).
func ParseUint16(hex string) (uint16, error) {
	v, err := strconv.ParseUint(hex, 16, 16)
	return uint16(v), err
}
