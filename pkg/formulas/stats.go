package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// DegenerateTolerance is the relative size below which a dispersion is treated as zero.
// It is measured against the price scale of the series the dispersion came from.
const DegenerateTolerance = 1e-9

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation (n-1 denominator)
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance (n-1 denominator)
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// MeanAbs returns the mean of absolute values, used as the price scale of a series.
func MeanAbs(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += math.Abs(v)
	}
	return sum / float64(len(data))
}

// LinearRegression fits y = alpha + beta*x by ordinary least squares.
func LinearRegression(x, y []float64) (alpha, beta float64) {
	if len(x) < 2 || len(x) != len(y) {
		return 0, 0
	}
	return stat.LinearRegression(x, y, nil, false)
}

// Residuals returns y - (alpha + beta*x) pointwise.
func Residuals(x, y []float64, alpha, beta float64) []float64 {
	out := make([]float64, len(y))
	for i := range y {
		out[i] = y[i] - (alpha + beta*x[i])
	}
	return out
}

// IsDegenerate reports whether std is zero relative to scale.
// Scales below 1 are treated as 1 so that tiny price levels are still compared absolutely.
func IsDegenerate(std, scale float64) bool {
	if math.IsNaN(std) || std <= 0 {
		return true
	}
	return std <= DegenerateTolerance*math.Max(math.Abs(scale), 1)
}

// ZScore returns (value - mean) / std, or NaN when std is zero.
func ZScore(value, mean, std float64) float64 {
	if std == 0 {
		return math.NaN()
	}
	return (value - mean) / std
}

// RollingMeanStd computes the trailing window mean and population standard deviation
// for every index. Indices without a full window are NaN.
func RollingMeanStd(data []float64, window int) (means, stds []float64) {
	means = make([]float64, len(data))
	stds = make([]float64, len(data))
	for i := range data {
		means[i] = math.NaN()
		stds[i] = math.NaN()
	}
	if window < 2 || window > len(data) {
		return means, stds
	}

	sma := talib.Sma(data, window)
	dev := talib.StdDev(data, window, 1.0)
	for i := window - 1; i < len(data); i++ {
		means[i] = sma[i]
		stds[i] = dev[i]
	}
	return means, stds
}
