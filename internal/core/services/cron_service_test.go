package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPurger struct {
	mock.Mock
}

func (m *mockPurger) PurgeExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestCronPurgeJob(t *testing.T) {
	purger := new(mockPurger)
	purger.On("PurgeExpired", mock.Anything).Return(int64(3), nil).Once()
	purger.On("PurgeExpired", mock.Anything).Return(int64(0), errors.New("db down")).Once()

	svc := NewCronService(purger)
	svc.purgeResetTokens()
	svc.purgeResetTokens()

	purger.AssertExpectations(t)
}

func TestCronStartStop(t *testing.T) {
	svc := NewCronService(new(mockPurger))

	require.NoError(t, svc.Start())
	assert.Len(t, svc.cron.Entries(), 1)
	svc.Stop()
}
