package domain

import "errors"

var (
	// ErrInsufficientData is returned when an aligned pair is shorter than the minimum window.
	ErrInsufficientData = errors.New("insufficient aligned observations")

	// ErrMissingPriceField is returned when neither adjusted close nor close is available.
	ErrMissingPriceField = errors.New("no adjusted close or close price available")

	// ErrNoCandidates is returned when a scan finds no pair below the significance threshold.
	ErrNoCandidates = errors.New("no cointegrated pairs found")

	// ErrNoUsableData is returned when fewer than two instruments have usable prices.
	ErrNoUsableData = errors.New("fewer than two instruments with usable prices")

	// ErrDegenerateSpread is returned when a spread has zero standard deviation.
	ErrDegenerateSpread = errors.New("spread standard deviation is zero")

	// ErrEmptySeries is returned for a price series without observations.
	ErrEmptySeries = errors.New("price series is empty")

	// ErrInvalidSeries is returned for a series violating ordering or finiteness.
	ErrInvalidSeries = errors.New("invalid price series")

	// ErrInvalidConfig is returned when strategy parameters are out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
)
