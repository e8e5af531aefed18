// Package sample defines the two collaborator boundaries the detection
// core sits between: an upstream Source of raw IQ/AM chunks, and
// downstream Slicers that turn a completed burst into protocol-level
// Records. Neither is implemented here -- both are external
// collaborators -- this package only fixes the contract,
// the way gherlein-gocat's pkg/yardstick separates the device
// transport interface from anything that consumes it.
package sample

import (
	"time"

	"github.com/n6drc/pulsecore/pkg/analyzer"
	"github.com/n6drc/pulsecore/pkg/pulsedata"
)

// Chunk is one delivery from a Source: interleaved IQ (or already
// demodulated AM) samples, plus how many bytes each sample occupies.
type Chunk struct {
	Bytes           []byte
	SampleSizeBytes int // 1 or 2
}

// Source yields sample chunks to the detection pipeline. Implementations
// own the underlying transport (file, SDR, network) and are expected to
// block in Next until a chunk is ready or an error ends the stream.
type Source interface {
	Next() (Chunk, error)
	Close() error
}

// Record is one protocol-level decode a Slicer extracts from a burst.
// The core never constructs or inspects a Record; it is opaque from the
// detector's point of view.
type Record struct {
	Name      string
	Fields    map[string]string
	Timestamp time.Time
}

// Slicer turns one completed burst, together with the analyzer's
// classification, into zero or more Records. Nothing in this module
// calls a Slicer; cmd/pulsecore prints the analyzer's classification
// instead.
type Slicer interface {
	Slice(pd *pulsedata.PulseData, spec analyzer.ModulationSpec) []Record
}
