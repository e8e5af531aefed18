package histogram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestAccumulateGroupsWithinTolerance(t *testing.T) {
	var c Cluster
	c.Accumulate(100, 0.2)
	c.Accumulate(105, 0.2)
	c.Accumulate(500, 0.2)

	assert.Equal(t, 2, len(c.Bins))
	assert.Equal(t, 2, c.Bins[0].Count)
	assert.Equal(t, 1, c.Bins[1].Count)
}

func TestAccumulateMinMax(t *testing.T) {
	var c Cluster
	c.Accumulate(100, 0.2)
	c.Accumulate(110, 0.2)
	c.Accumulate(90, 0.2)

	assert.Equal(t, float64(90), c.Bins[0].Min)
	assert.Equal(t, float64(110), c.Bins[0].Max)
}

func TestAccumulateFoldsBeyondMaxBins(t *testing.T) {
	var c Cluster
	for i := 0; i < MaxBins; i++ {
		c.Accumulate(float64(i*10000), 0.01)
	}
	assert.Equal(t, MaxBins, len(c.Bins))

	c.Accumulate(999999999, 0.01)
	assert.Equal(t, MaxBins, len(c.Bins))
}

func TestFuseMergesCloseBins(t *testing.T) {
	var c Cluster
	c.Bins = []Bin{
		{Count: 1, Mean: 100, Min: 100, Max: 100},
		{Count: 1, Mean: 103, Min: 103, Max: 103},
		{Count: 1, Mean: 500, Min: 500, Max: 500},
	}
	for i := range c.Bins {
		c.Bins[i].values = []float64{c.Bins[i].Mean}
	}

	c.Fuse(0.2)

	assert.Equal(t, 2, len(c.Bins))
}

func TestFuseIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var c Cluster
		n := rapid.IntRange(0, 20).Draw(rt, "n")
		for i := 0; i < n; i++ {
			c.Accumulate(rapid.Float64Range(1, 10000).Draw(rt, "v"), 0.2)
		}
		c.Fuse(0.2)
		firstLen := len(c.Bins)
		c.Fuse(0.2)
		assert.Equal(t, firstLen, len(c.Bins))
	})
}

func TestSortByMeanAscending(t *testing.T) {
	var c Cluster
	c.Accumulate(500, 0.01)
	c.Accumulate(100, 0.01)
	c.Accumulate(300, 0.01)

	c.SortByMean()

	for i := 1; i < len(c.Bins); i++ {
		assert.LessOrEqual(t, c.Bins[i-1].Mean, c.Bins[i].Mean)
	}
}

func TestSortByCountDescending(t *testing.T) {
	var c Cluster
	c.Accumulate(100, 0.01)
	c.Accumulate(200, 0.01)
	c.Accumulate(200, 0.01)
	c.Accumulate(200, 0.01)

	c.SortByCount()

	for i := 1; i < len(c.Bins); i++ {
		assert.GreaterOrEqual(t, c.Bins[i-1].Count, c.Bins[i].Count)
	}
}

func TestFindBinIndex(t *testing.T) {
	var c Cluster
	c.Accumulate(100, 0.2)
	c.Accumulate(105, 0.2)
	c.Accumulate(900, 0.2)

	idx := c.FindBinIndex(102)
	assert.Equal(t, 0, idx)
	assert.Equal(t, -1, c.FindBinIndex(-5))
}

func TestDeleteCompactsSlice(t *testing.T) {
	var c Cluster
	c.Bins = []Bin{{Mean: 1}, {Mean: 2}, {Mean: 3}}
	c.Delete(1)
	assert.Equal(t, 2, len(c.Bins))
	assert.Equal(t, float64(1), c.Bins[0].Mean)
	assert.Equal(t, float64(3), c.Bins[1].Mean)
}

func TestVarianceSingleSampleIsZero(t *testing.T) {
	var c Cluster
	c.Accumulate(42, 0.2)
	assert.Equal(t, float64(0), c.Variance(0))
}
