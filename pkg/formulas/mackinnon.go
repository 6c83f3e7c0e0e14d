package formulas

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// MacKinnon (1994) approximate p-value surface for a single series, constant-only regression.
const (
	tauMaxC  = 2.74
	tauMinC  = -18.83
	tauStarC = -1.61
)

var (
	tauSmallPC = []float64{2.1659, 1.4412, 3.8269e-02}
	tauLargePC = []float64{1.7339, 9.3202e-01, -1.2745e-01, -1.0368e-02}
)

// MacKinnonPValue returns the approximate p-value of an ADF statistic.
func MacKinnonPValue(stat float64) float64 {
	if stat > tauMaxC {
		return 1
	}
	if stat < tauMinC {
		return 0
	}
	coef := tauLargePC
	if stat <= tauStarC {
		coef = tauSmallPC
	}
	return distuv.UnitNormal.CDF(polyval(coef, stat))
}

// polyval evaluates coef[0] + coef[1]*x + coef[2]*x^2 + ...
func polyval(coef []float64, x float64) float64 {
	out := 0.0
	for i := len(coef) - 1; i >= 0; i-- {
		out = out*x + coef[i]
	}
	return out
}
