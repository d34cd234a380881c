package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockJob struct {
	mock.Mock
}

func (m *mockJob) Run() error {
	return m.Called().Error(0)
}

func (m *mockJob) Name() string {
	return m.Called().String(0)
}

func TestAddJob_RegistersStatus(t *testing.T) {
	s := New(zerolog.Nop())
	job := new(mockJob)
	job.On("Name").Return("market_data_cleanup")

	require.NoError(t, s.AddJob("0 3 * * *", job))
	require.NoError(t, s.AddJob("@every 1h", job))

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "@every 1h", jobs[0].Schedule)
	assert.Nil(t, jobs[0].LastRun)
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	job := new(mockJob)
	job.On("Name").Return("broken")

	assert.Error(t, s.AddJob("not a schedule", job))
	assert.Empty(t, s.Jobs())
}

func TestRunNow_RecordsOutcome(t *testing.T) {
	s := New(zerolog.Nop())

	ok := new(mockJob)
	ok.On("Name").Return("ledger_backup")
	ok.On("Run").Return(nil).Once()
	require.NoError(t, s.RunNow(ok))

	failing := new(mockJob)
	failing.On("Name").Return("cache_warmup")
	failing.On("Run").Return(errors.New("provider down")).Once()
	assert.EqualError(t, s.RunNow(failing), "provider down")

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "cache_warmup", jobs[0].Name)
	assert.Equal(t, "provider down", jobs[0].LastError)
	assert.Equal(t, 1, jobs[1].Runs)
	assert.NotNil(t, jobs[1].LastRun)
	ok.AssertExpectations(t)
	failing.AssertExpectations(t)
}

func TestStartStop(t *testing.T) {
	s := New(zerolog.Nop())
	s.Start()
	s.Stop()
}
