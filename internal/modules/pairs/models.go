// Package pairs screens a universe of instruments for cointegrated pairs.
package pairs

// Candidate is a pair whose OLS residual passed the ADF stationarity test.
// SymbolA is the regressor and SymbolB the response.
type Candidate struct {
	SymbolA      string  `json:"symbol_a"`
	SymbolB      string  `json:"symbol_b"`
	PValue       float64 `json:"p_value"`
	ADFStatistic float64 `json:"adf_statistic"`
	UsedLag      int     `json:"used_lag"`
	HedgeRatio   float64 `json:"hedge_ratio"`
	Intercept    float64 `json:"intercept"`
	Observations int     `json:"observations"`
	// Degenerate marks an exact linear relation (zero residual variance).
	Degenerate bool `json:"degenerate,omitempty"`
	// Index is the pair's position in the enumeration order. Used to break p-value ties.
	Index int `json:"index"`
}

// Config holds scanner parameters
type Config struct {
	// MinObservations is the minimum aligned length a pair needs to be tested
	MinObservations int
	// Workers bounds the number of pairs evaluated concurrently
	Workers int
}

// DefaultMinObservations is the aligned length below which a pair is skipped.
const DefaultMinObservations = 250
