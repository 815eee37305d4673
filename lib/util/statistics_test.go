package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStats(t *testing.T) {
	assert.Equal(t, Stats{}, NewStats(nil))

	s := NewStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
	assert.Equal(t, 5.0, s.Mean)
	assert.Equal(t, 40.0, s.Sum)
	assert.InDelta(t, 2.0, s.StdDeviation, 1e-9)
	assert.InDelta(t, 2.0/9.0, s.MinMaxRatio, 1e-9)
}

func TestNewStatsInt(t *testing.T) {
	s := NewStatsInt([]int64{10, 20, 30})
	assert.Equal(t, 20.0, s.Mean)
	assert.Equal(t, 60.0, s.Sum)
}

func TestNewDistributionStats(t *testing.T) {
	even := NewDistributionStats([]float64{5, 5, 5, 5})
	assert.InDelta(t, 1.0, even.DistributionQuality, 1e-9)

	skewed := NewDistributionStats([]float64{0, 0, 0, 100})
	assert.Less(t, skewed.DistributionQuality, even.DistributionQuality)
	assert.Zero(t, skewed.MinMaxRatio)

	zeros := NewDistributionStats([]float64{0, 0})
	assert.InDelta(t, 1.0, zeros.DistributionQuality, 1e-9)
}
