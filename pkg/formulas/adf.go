package formulas

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrSeriesTooShort is returned when a series cannot support the ADF regression.
	ErrSeriesTooShort = errors.New("series too short for ADF regression")
	// ErrConstantSeries is returned when a series has no variation to test.
	ErrConstantSeries = errors.New("series has zero variance")
)

// ADFResult holds the outcome of an Augmented Dickey-Fuller test with a constant term.
type ADFResult struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	UsedLag   int     `json:"used_lag"`
	NObs      int     `json:"nobs"`
}

// ADFTest runs the Augmented Dickey-Fuller unit-root test on series.
//
// The regression is
//
//	Δx_t = c + γ·x_{t-1} + Σ_{j=1..p} φ_j·Δx_{t-j} + ε_t
//
// with the number of lagged differences p chosen by minimum AIC over
// 0..ceil(12·(n/100)^¼), all candidate fits sharing the sample of the largest lag.
// The statistic is the t-value of γ and the p-value comes from MacKinnon's (1994)
// response surface for one variable with a constant.
func ADFTest(series []float64) (ADFResult, error) {
	n := len(series)
	maxLag := int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	if limit := n/2 - 2; limit < maxLag {
		maxLag = limit
	}
	if maxLag < 0 {
		return ADFResult{}, fmt.Errorf("%w: %d observations", ErrSeriesTooShort, n)
	}

	diff := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diff[i-1] = series[i] - series[i-1]
	}
	if Variance(diff) == 0 {
		return ADFResult{}, ErrConstantSeries
	}

	// Lag selection: every candidate uses the rows available to maxLag.
	full, dep := adfDesign(series, diff, maxLag, maxLag)
	bestLag, bestAIC := 0, math.Inf(1)
	for lags := 0; lags <= maxLag; lags++ {
		cols := lags + 2
		fit, err := olsFit(full.Slice(0, full.RawMatrix().Rows, 0, cols), dep)
		if err != nil {
			continue
		}
		if fit.aic < bestAIC {
			bestAIC = fit.aic
			bestLag = lags
		}
	}
	if math.IsInf(bestAIC, 1) {
		return ADFResult{}, fmt.Errorf("%w: no lag order produced a usable regression", ErrSeriesTooShort)
	}

	design, y := adfDesign(series, diff, bestLag, bestLag)
	fit, err := olsFit(design, y)
	if err != nil {
		return ADFResult{}, fmt.Errorf("ADF regression failed: %w", err)
	}

	// Column 1 is the lagged level.
	stat := fit.tValue(1)
	if math.IsNaN(stat) || math.IsInf(stat, 0) {
		return ADFResult{}, ErrConstantSeries
	}

	return ADFResult{
		Statistic: stat,
		PValue:    MacKinnonPValue(stat),
		UsedLag:   bestLag,
		NObs:      y.Len(),
	}, nil
}

// adfDesign builds the regressor matrix [1, x_{t-1}, Δx_{t-1} .. Δx_{t-lags}] and the
// dependent vector Δx_t, trimming the first trim differences.
func adfDesign(series, diff []float64, lags, trim int) (*mat.Dense, *mat.VecDense) {
	rows := len(diff) - trim
	cols := lags + 2
	x := mat.NewDense(rows, cols, nil)
	y := mat.NewVecDense(rows, nil)
	for r := 0; r < rows; r++ {
		t := trim + r
		y.SetVec(r, diff[t])
		x.Set(r, 0, 1)
		x.Set(r, 1, series[t])
		for j := 1; j <= lags; j++ {
			x.Set(r, j+1, diff[t-j])
		}
	}
	return x, y
}

type olsResult struct {
	coef  *mat.VecDense
	cov   *mat.Dense // (X'X)^-1
	ssr   float64
	sigma float64 // residual variance
	aic   float64
}

func (r olsResult) tValue(i int) float64 {
	se := math.Sqrt(r.sigma * r.cov.At(i, i))
	return r.coef.AtVec(i) / se
}

// olsFit solves the least squares problem and computes the Gaussian log-likelihood AIC.
func olsFit(x mat.Matrix, y *mat.VecDense) (olsResult, error) {
	rows, cols := x.Dims()
	if rows <= cols {
		return olsResult{}, ErrSeriesTooShort
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return olsResult{}, err
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), y)
	var coef mat.VecDense
	coef.MulVec(&inv, &xty)

	var fitted mat.VecDense
	fitted.MulVec(x, &coef)
	ssr := 0.0
	for i := 0; i < rows; i++ {
		e := y.AtVec(i) - fitted.AtVec(i)
		ssr += e * e
	}
	if ssr == 0 {
		return olsResult{}, ErrConstantSeries
	}

	nobs := float64(rows)
	llf := -nobs / 2 * (math.Log(2*math.Pi) + math.Log(ssr/nobs) + 1)

	return olsResult{
		coef:  &coef,
		cov:   &inv,
		ssr:   ssr,
		sigma: ssr / float64(rows-cols),
		aic:   -2*llf + 2*float64(cols),
	}, nil
}
