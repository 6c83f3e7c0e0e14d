// Package spread estimates the hedge ratio of a pair and normalizes its spread.
package spread

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/pairlab/internal/domain"
	"github.com/aristath/pairlab/internal/modules/prices"
	"github.com/aristath/pairlab/pkg/formulas"
)

// Normalization selects how spread values are turned into z-scores
type Normalization string

const (
	// NormalizationFullSample uses the mean and std of the whole window.
	// Every z-score sees future observations (look-ahead biased).
	NormalizationFullSample Normalization = "full_sample"
	// NormalizationRolling uses the trailing Window observations only.
	NormalizationRolling Normalization = "rolling"
)

// DefaultWindow is the rolling window length used when none is configured.
const DefaultWindow = 60

// Options configures z-score normalization
type Options struct {
	Normalization Normalization `json:"normalization" toml:"normalization"`
	Window        int           `json:"window,omitempty" toml:"window"`
}

// Validate checks the option combination.
func (o Options) Validate() error {
	switch o.Normalization {
	case "", NormalizationFullSample:
		return nil
	case NormalizationRolling:
		if o.Window < 2 {
			return fmt.Errorf("rolling window must be at least 2, got %d: %w", o.Window, domain.ErrInvalidConfig)
		}
		return nil
	default:
		return fmt.Errorf("unknown normalization %q: %w", o.Normalization, domain.ErrInvalidConfig)
	}
}

// Spread is the hedged spread of a pair and its z-scores.
//
// Values[t] = Y[t] - HedgeRatio*X[t]; the intercept is reported but not subtracted.
// Mean and Std are over the whole window (Std is the sample deviation).
// Scales[t] is the deviation z-score t was divided by; it is NaN wherever ZScores is.
type Spread struct {
	SymbolA       string          `json:"symbol_a"`
	SymbolB       string          `json:"symbol_b"`
	HedgeRatio    float64         `json:"hedge_ratio"`
	Intercept     float64         `json:"intercept"`
	Times         []time.Time     `json:"times"`
	Values        formulas.Series `json:"values"`
	Mean          float64         `json:"mean"`
	Std           float64         `json:"std"`
	ZScores       formulas.Series `json:"z_scores"`
	Scales        formulas.Series `json:"scales"`
	Normalization Normalization   `json:"normalization"`
	Window        int             `json:"window,omitempty"`
}

// Len returns the number of observations
func (s *Spread) Len() int {
	return len(s.Values)
}

// Compute regresses y on x with an intercept and returns y - beta*x and beta.
func Compute(x, y []float64) ([]float64, float64, error) {
	if len(x) != len(y) {
		return nil, 0, fmt.Errorf("series lengths differ (%d vs %d): %w", len(x), len(y), domain.ErrInsufficientData)
	}
	if len(x) < 2 {
		return nil, 0, fmt.Errorf("need at least 2 observations, got %d: %w", len(x), domain.ErrInsufficientData)
	}

	_, beta := formulas.LinearRegression(x, y)
	values := make([]float64, len(y))
	for i := range y {
		values[i] = y[i] - beta*x[i]
	}
	return values, beta, nil
}

// New builds the spread of an aligned pair.
//
// When the spread has no variation relative to the price scale, the returned Spread carries
// values and hedge ratio but no z-scores, together with ErrDegenerateSpread.
func New(aligned prices.Aligned, opts Options) (*Spread, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Normalization == "" {
		opts.Normalization = NormalizationFullSample
	}

	values, beta, err := Compute(aligned.X, aligned.Y)
	if err != nil {
		return nil, err
	}
	alpha, _ := formulas.LinearRegression(aligned.X, aligned.Y)

	s := &Spread{
		SymbolA:       aligned.SymbolA,
		SymbolB:       aligned.SymbolB,
		HedgeRatio:    beta,
		Intercept:     alpha,
		Times:         append([]time.Time(nil), aligned.Times...),
		Values:        values,
		Mean:          formulas.Mean(values),
		Std:           formulas.StdDev(values),
		Normalization: opts.Normalization,
	}

	scale := formulas.MeanAbs(aligned.Y)
	if formulas.IsDegenerate(s.Std, scale) {
		return s, fmt.Errorf("%s/%s: std %.3g: %w", s.SymbolA, s.SymbolB, s.Std, domain.ErrDegenerateSpread)
	}

	s.ZScores = make(formulas.Series, len(values))
	s.Scales = make(formulas.Series, len(values))

	switch opts.Normalization {
	case NormalizationRolling:
		s.Window = opts.Window
		means, stds := formulas.RollingMeanStd(values, opts.Window)
		for i, v := range values {
			if math.IsNaN(stds[i]) || formulas.IsDegenerate(stds[i], scale) {
				s.ZScores[i] = math.NaN()
				s.Scales[i] = math.NaN()
				continue
			}
			s.ZScores[i] = formulas.ZScore(v, means[i], stds[i])
			s.Scales[i] = stds[i]
		}
	default:
		for i, v := range values {
			s.ZScores[i] = formulas.ZScore(v, s.Mean, s.Std)
			s.Scales[i] = s.Std
		}
	}

	return s, nil
}
