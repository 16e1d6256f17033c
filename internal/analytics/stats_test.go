package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 5.0, Mean([]float64{5}))
	assert.InDelta(t, 2.5, Mean([]float64{1, 2, 3, 4}), 1e-9)
}

func TestStdDevGuards(t *testing.T) {
	assert.Equal(t, 0.0, StdDev(nil, 0))
	assert.Equal(t, 0.0, StdDev([]float64{42}, 42))
}

func TestStdDevSample(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	mean := Mean(values)
	// sample (n-1) standard deviation
	assert.InDelta(t, 2.138, StdDev(values, mean), 0.001)
}

func TestZScoreSymmetry(t *testing.T) {
	mean, stddev := 50.0, 10.0
	above := ZScore(60, mean, stddev)
	below := ZScore(40, mean, stddev)
	assert.InDelta(t, above, -below, 1e-9)
	assert.InDelta(t, 1.0, above, 1e-9)
}

func TestZScoreZeroStdDev(t *testing.T) {
	assert.Equal(t, 0.0, ZScore(100, 50, 0))
}

func TestLinearTrendSlope(t *testing.T) {
	xs := []float64{0, 1, 2, 3, 4}

	assert.InDelta(t, 2.0, LinearTrendSlope(xs, []float64{1, 3, 5, 7, 9}), 1e-9)
	assert.Equal(t, 0.0, LinearTrendSlope(xs, []float64{5, 5, 5, 5, 5}))
	assert.Equal(t, 0.0, LinearTrendSlope(nil, nil))
	// constant x has a degenerate denominator
	assert.Equal(t, 0.0, LinearTrendSlope([]float64{2, 2, 2}, []float64{1, 2, 3}))
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, Median(nil))
	assert.Equal(t, 3.0, Median([]float64{5, 1, 3}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 2, 3}))
}
