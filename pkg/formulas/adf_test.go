package formulas

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whiteNoise(seed int64, n int, sigma float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64() * sigma
	}
	return out
}

func randomWalk(seed int64, n int, start float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	out[0] = start
	for i := 1; i < n; i++ {
		out[i] = out[i-1] + rng.NormFloat64()
	}
	return out
}

func TestADFTest_StationaryNoise(t *testing.T) {
	result, err := ADFTest(whiteNoise(7, 500, 0.1))
	require.NoError(t, err)

	assert.Less(t, result.Statistic, -5.0)
	assert.Less(t, result.PValue, 0.01)
	assert.GreaterOrEqual(t, result.UsedLag, 0)
	assert.Greater(t, result.NObs, 400)
}

func TestADFTest_MeanRevertingAR1(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	series := make([]float64, 400)
	for i := 1; i < len(series); i++ {
		series[i] = 0.5*series[i-1] + rng.NormFloat64()
	}

	result, err := ADFTest(series)
	require.NoError(t, err)
	assert.Less(t, result.PValue, 0.01)
}

func TestADFTest_RandomWalksRarelyReject(t *testing.T) {
	rejections := 0
	for seed := int64(1); seed <= 10; seed++ {
		result, err := ADFTest(randomWalk(seed, 500, 100))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.PValue, 0.0)
		assert.LessOrEqual(t, result.PValue, 1.0)
		if result.PValue < 0.05 {
			rejections++
		}
	}
	assert.LessOrEqual(t, rejections, 3)
}

func TestADFTest_Errors(t *testing.T) {
	_, err := ADFTest([]float64{1, 2})
	assert.True(t, errors.Is(err, ErrSeriesTooShort))

	constant := make([]float64, 300)
	for i := range constant {
		constant[i] = 42
	}
	_, err = ADFTest(constant)
	assert.True(t, errors.Is(err, ErrConstantSeries))
}

func TestMacKinnonPValue(t *testing.T) {
	tests := []struct {
		name      string
		stat      float64
		expected  float64
		tolerance float64
	}{
		{"above surface maximum", 3.0, 1.0, 0},
		{"below surface minimum", -20.0, 0.0, 0},
		{"1% critical value", -3.43, 0.01, 0.001},
		{"5% critical value", -2.86, 0.05, 0.002},
		{"10% critical value", -2.57, 0.10, 0.003},
		{"zero statistic", 0.0, 0.9585, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, MacKinnonPValue(tt.stat), tt.tolerance)
		})
	}
}

func TestMacKinnonPValue_Monotonic(t *testing.T) {
	prev := MacKinnonPValue(-18)
	for stat := -17.5; stat < 2.5; stat += 0.25 {
		p := MacKinnonPValue(stat)
		assert.GreaterOrEqual(t, p, prev, "p-value should not decrease at %.2f", stat)
		prev = p
	}
}

func TestPolyval(t *testing.T) {
	// 1 + 2x + 3x^2 at x=2
	assert.InDelta(t, 17.0, polyval([]float64{1, 2, 3}, 2), 1e-12)
}
