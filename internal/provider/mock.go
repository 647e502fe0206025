package provider

import (
	"context"
	"sync"

	"github.com/rbravo-mcr/reservas-api/internal/domain"
)

// MockAdapter is a deterministic test double for Adapter, grounded on
// backend-payment/internal/gateway/mock_gateway.go's controllable
// success/failure shape, simplified to a scripted sequence of results
// rather than a random success rate (tests need exact reconciler-visible
// sequences, not statistical ones).
type MockAdapter struct {
	mu      sync.Mutex
	results []domain.ProviderResult
	calls   []string // reservation codes, in call order
}

// NewMockAdapter returns a MockAdapter that yields results in order, one
// per Dispatch call; the last result repeats once the script is exhausted.
func NewMockAdapter(results ...domain.ProviderResult) *MockAdapter {
	return &MockAdapter{results: results}
}

// Dispatch returns the next scripted result.
func (m *MockAdapter) Dispatch(ctx context.Context, res *domain.Reservation) domain.ProviderResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, res.ReservationCode)
	if len(m.results) == 0 {
		return domain.ProviderResult{Success: true, Status: "SUCCESS"}
	}
	idx := len(m.calls) - 1
	if idx >= len(m.results) {
		idx = len(m.results) - 1
	}
	return m.results[idx]
}

// Calls returns the reservation codes Dispatch was called with, in order.
func (m *MockAdapter) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

var _ Adapter = (*MockAdapter)(nil)
