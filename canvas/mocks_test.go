package canvas

import (
	"time"

	"github.com/stretchr/testify/mock"

	"drawspace/domain"
)

// --- Sink ---

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Apply(mut Mutation, snapshot []domain.Shape) error {
	args := m.Called(mut, snapshot)
	return args.Error(0)
}

// --- PeriodicTickerChannelCreator ---

type MockPeriodicTickerChannelCreator struct {
	mock.Mock
}

func (m *MockPeriodicTickerChannelCreator) Create(duration time.Duration) <-chan time.Time {
	args := m.Called(duration)
	return args.Get(0).(chan time.Time)
}

// recordingSink keeps every mutation in order, for tests that assert on the
// emitted stream rather than on individual expectations.
type recordingSink struct {
	mutations []Mutation
}

func (r *recordingSink) Apply(m Mutation, _ []domain.Shape) error {
	r.mutations = append(r.mutations, m)
	return nil
}
