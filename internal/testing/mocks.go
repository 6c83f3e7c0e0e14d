package testing

import (
	"context"
	"sync"

	"github.com/aristath/pairlab/internal/domain"
)

// MockSeriesSource is an in-memory price source for tests.
type MockSeriesSource struct {
	mu       sync.RWMutex
	series   map[string]domain.PriceSeries
	warnings []string
	err      error
	calls    int
}

// NewMockSeriesSource creates a source serving the given series.
func NewMockSeriesSource(series ...domain.PriceSeries) *MockSeriesSource {
	return &MockSeriesSource{series: Universe(series...)}
}

// SetError makes LoadUniverse fail with err.
func (m *MockSeriesSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetWarnings sets the exclusion warnings returned with every load.
func (m *MockSeriesSource) SetWarnings(warnings ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnings = warnings
}

// Calls returns how many times LoadUniverse was called.
func (m *MockSeriesSource) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// LoadUniverse returns the configured series. An empty symbols list means all of them.
func (m *MockSeriesSource) LoadUniverse(ctx context.Context, symbols []string) (map[string]domain.PriceSeries, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.err != nil {
		return nil, nil, m.err
	}

	out := make(map[string]domain.PriceSeries)
	if len(symbols) == 0 {
		for k, v := range m.series {
			out[k] = v
		}
	} else {
		for _, s := range symbols {
			if v, ok := m.series[s]; ok {
				out[s] = v
			}
		}
	}
	return out, append([]string(nil), m.warnings...), nil
}
