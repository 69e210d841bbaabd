package services

import (
	"context"
	"errors"
	"testing"

	"attendtrack/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitCreatesInboxEntry(t *testing.T) {
	env := newTestEnv(t)
	id := env.submit(t, "a@x.com")

	res, err := env.notifications.List(context.Background(), false, 1, 10)
	require.NoError(t, err)
	require.Len(t, res.Notifications, 1)

	n := res.Notifications[0]
	assert.Equal(t, string(domain.NotificationRegistrationRequest), n.Type)
	assert.Equal(t, id, n.ReferenceID)
	assert.Contains(t, n.Message, "a@x.com")
	assert.False(t, n.IsRead)
}

func TestMarkReadAndUnreadFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.submit(t, "a@x.com")
	env.submit(t, "b@x.com")

	all, err := env.notifications.List(ctx, false, 1, 10)
	require.NoError(t, err)
	require.Len(t, all.Notifications, 2)

	require.NoError(t, env.notifications.MarkRead(ctx, all.Notifications[0].ID))

	unread, err := env.notifications.List(ctx, true, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread.Total)
	assert.Equal(t, all.Notifications[1].ID, unread.Notifications[0].ID)

	err = env.notifications.MarkRead(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPublishWithoutBroker(t *testing.T) {
	env := newTestEnv(t)
	svc := NewNotificationService(env.repos.Notifications, nil, env.cfg)

	assert.False(t, svc.IsPublishing())
	assert.NoError(t, svc.Close())
}

func TestPublishFailureIsReported(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.err = errors.New("broker down")

	req := registrationInput("a@x.com")
	res, err := env.registrations.Submit(context.Background(), req)

	// the request is stored even when the event cannot be published
	require.NoError(t, err)
	stored, err := env.repos.Registrations.GetByID(context.Background(), res.RequestID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusPending), stored.Status)
	assert.True(t, env.notifications.IsPublishing())
}
