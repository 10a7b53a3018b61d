package stats

import "github.com/stretchr/testify/mock"

type MockStatsUpdater struct {
	mock.Mock
}

func (m *MockStatsUpdater) Incr(name string) {
	m.Called(name)
}
func (m *MockStatsUpdater) Decr(name string) {
	m.Called(name)
}
func (m *MockStatsUpdater) Add(name string, delta float64) {
	m.Called(name, delta)
}

// NopStats discards every update.
type NopStats struct{}

func (NopStats) Incr(string)         {}
func (NopStats) Decr(string)         {}
func (NopStats) Add(string, float64) {}
