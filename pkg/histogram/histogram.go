// Package histogram implements the tolerance-clustered histogram
// PulseAnalyzer builds over pulse widths, gap widths and periods
// Mean/variance bookkeeping is delegated to
// gonum's stat package, the way madpsy-ka9q_ubersdr leans on
// gonum.org/v1/gonum for its own signal-statistics work, rather than
// hand-rolling running-mean arithmetic.
package histogram

import "gonum.org/v1/gonum/stat"

// MaxBins bounds how many distinct clusters a Cluster will ever hold.
const MaxBins = 16

// DefaultTolerance is the relative-difference threshold accumulate/fuse
// use by default.
const DefaultTolerance = 0.20

// Bin is one accumulated cluster of samples considered "the same" width.
type Bin struct {
	Count int
	Sum   float64
	Mean  float64
	Min   float64
	Max   float64

	values []float64
}

// Cluster holds up to MaxBins Bins, built by repeated Accumulate calls.
type Cluster struct {
	Bins []Bin
}

// same reports whether two means are within tolerance of one another,
// clusters being "the same".
func same(a, b, tolerance float64) bool {
	m := a
	if b > m {
		m = b
	}
	if m == 0 {
		return a == b
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < tolerance*m
}

// Accumulate adds value to the first bin whose current mean is within
// tolerance, opening a new bin if none matches and MaxBins has not been
// reached. Values that would open a bin beyond MaxBins are folded into
// the closest existing bin instead of being dropped.
func (c *Cluster) Accumulate(value, tolerance float64) {
	for i := range c.Bins {
		if same(c.Bins[i].Mean, value, tolerance) {
			c.addTo(i, value)
			return
		}
	}
	if len(c.Bins) < MaxBins {
		c.Bins = append(c.Bins, Bin{})
		c.addTo(len(c.Bins)-1, value)
		return
	}
	c.addTo(c.closest(value), value)
}

func (c *Cluster) closest(value float64) int {
	best := 0
	bestDist := -1.0
	for i := range c.Bins {
		d := value - c.Bins[i].Mean
		if d < 0 {
			d = -d
		}
		if bestDist < 0 || d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func (c *Cluster) addTo(i int, value float64) {
	b := &c.Bins[i]
	b.values = append(b.values, value)
	b.Count++
	b.Sum += value
	b.Mean = stat.Mean(b.values, nil)
	if b.Count == 1 || value < b.Min {
		b.Min = value
	}
	if b.Count == 1 || value > b.Max {
		b.Max = value
	}
}

// Variance returns the sample variance of bin i's accumulated values.
func (c *Cluster) Variance(i int) float64 {
	if c.Bins[i].Count < 2 {
		return 0
	}
	return stat.Variance(c.Bins[i].values, nil)
}

// Fuse repeatedly merges any two bins whose means are within tolerance
// until no further merge is possible: an O(n^2) walk repeated until
// stable.
func (c *Cluster) Fuse(tolerance float64) {
	for {
		merged := false
		for i := 0; i < len(c.Bins); i++ {
			for j := i + 1; j < len(c.Bins); j++ {
				if same(c.Bins[i].Mean, c.Bins[j].Mean, tolerance) {
					c.mergeInto(i, j)
					merged = true
					break
				}
			}
			if merged {
				break
			}
		}
		if !merged {
			return
		}
	}
}

func (c *Cluster) mergeInto(i, j int) {
	dst, src := &c.Bins[i], &c.Bins[j]
	dst.values = append(dst.values, src.values...)
	dst.Count += src.Count
	dst.Sum += src.Sum
	dst.Mean = stat.Mean(dst.values, nil)
	if src.Min < dst.Min {
		dst.Min = src.Min
	}
	if src.Max > dst.Max {
		dst.Max = src.Max
	}
	c.Delete(j)
}

// SortByMean orders Bins ascending by Mean, ties broken by original
// index (a stable sort preserves that automatically).
func (c *Cluster) SortByMean() {
	bubbleSort(c.Bins, func(a, b Bin) bool { return a.Mean > b.Mean })
}

// SortByCount orders Bins descending by Count, ties broken by original
// index.
func (c *Cluster) SortByCount() {
	bubbleSort(c.Bins, func(a, b Bin) bool { return a.Count < b.Count })
}

// bubbleSort is a plain stable bubble sort: the deterministic
// adjacent-swap behaviour is exactly what a stable tie-break needs.
func bubbleSort(bins []Bin, swapIf func(a, b Bin) bool) {
	n := len(bins)
	for i := 0; i < n; i++ {
		for j := 0; j < n-i-1; j++ {
			if swapIf(bins[j], bins[j+1]) {
				bins[j], bins[j+1] = bins[j+1], bins[j]
			}
		}
	}
}

// FindBinIndex returns the first bin whose [Min, Max] range contains
// value, or -1 if none does.
func (c *Cluster) FindBinIndex(value float64) int {
	for i := range c.Bins {
		if value >= c.Bins[i].Min && value <= c.Bins[i].Max {
			return i
		}
	}
	return -1
}

// Delete removes bin i, compacting the slice left.
func (c *Cluster) Delete(i int) {
	c.Bins = append(c.Bins[:i], c.Bins[i+1:]...)
}
