package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aminexfrad/F-S-SHOP/internal/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Repository {
	repo, err := NewRepository(filepath.Join(t.TempDir(), "storefront.db"))
	require.NoError(t, err, "failed to create test repository")
	require.NoError(t, repo.RunMigrations(), "failed to run migrations")
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRunMigrations_Idempotent(t *testing.T) {
	repo := setupTestDB(t)
	assert.NoError(t, repo.RunMigrations())
}

func TestCredentialStore_SaveReadDelete(t *testing.T) {
	store := setupTestDB(t).Credentials()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, credentials.KeyAccessToken, "first", credentials.AccessTokenTTL))
	require.NoError(t, store.Save(ctx, credentials.KeyAccessToken, "second", credentials.AccessTokenTTL))

	v, err := store.Read(ctx, credentials.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "second", v)

	require.NoError(t, store.Delete(ctx, credentials.KeyAccessToken))
	_, err = store.Read(ctx, credentials.KeyAccessToken)
	assert.ErrorIs(t, err, credentials.ErrNotFound)
}

func TestCredentialStore_ExpiredReadsAsAbsent(t *testing.T) {
	repo := setupTestDB(t)
	store := repo.Credentials()
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, credentials.KeyUser, `{"id":1}`, credentials.UserTTL))

	now = now.Add(credentials.UserTTL - time.Minute)
	_, err := store.Read(ctx, credentials.KeyUser)
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = store.Read(ctx, credentials.KeyUser)
	assert.ErrorIs(t, err, credentials.ErrNotFound)

	var n int
	require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM credentials`).Scan(&n))
	assert.Equal(t, 0, n, "expired row should be purged on read")
}

func TestCredentialStore_CancelledContext(t *testing.T) {
	store := setupTestDB(t).Credentials()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Save(ctx, credentials.KeyRefreshToken, "r", time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOutbox_EnqueueAndProcess(t *testing.T) {
	outbox := setupTestDB(t).Outbox()
	ctx := context.Background()

	first, err := outbox.Enqueue(ctx, "41", EventOrderPlaced, []byte(`{"order_id":41}`))
	require.NoError(t, err)
	assert.NotEmpty(t, first.EventID)
	_, err = outbox.Enqueue(ctx, "42", EventOrderPlaced, []byte(`{"order_id":42}`))
	require.NoError(t, err)

	events, err := outbox.GetUnprocessedEvents(ctx, 100, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "41", events[0].AggregateID)
	assert.Equal(t, `{"order_id":41}`, string(events[0].Payload))

	require.NoError(t, outbox.MarkEventAsProcessed(ctx, first.ID))

	events, err = outbox.GetUnprocessedEvents(ctx, 100, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "42", events[0].AggregateID)

	pending, err := outbox.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestOutbox_LimitIsHonoured(t *testing.T) {
	outbox := setupTestDB(t).Outbox()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := outbox.Enqueue(ctx, "1", EventOrderPlaced, []byte(`{}`))
		require.NoError(t, err)
	}

	events, err := outbox.GetUnprocessedEvents(ctx, 3, 10)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestOutbox_FailedAttemptsAreCounted(t *testing.T) {
	outbox := setupTestDB(t).Outbox()
	ctx := context.Background()

	ev, err := outbox.Enqueue(ctx, "7", EventOrderPlaced, []byte(`{}`))
	require.NoError(t, err)

	attempts, err := outbox.MarkEventFailed(ctx, ev.ID, errors.New("connection refused"))
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)

	attempts, err = outbox.MarkEventFailed(ctx, ev.ID, errors.New("connection refused"))
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	events, err := outbox.GetUnprocessedEvents(ctx, 100, 3)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "connection refused", events[0].LastError)

	// exhausted events are no longer handed out
	events, err = outbox.GetUnprocessedEvents(ctx, 100, 2)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestOutbox_PurgeProcessed(t *testing.T) {
	outbox := setupTestDB(t).Outbox()
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	outbox.now = func() time.Time { return now }

	done, err := outbox.Enqueue(ctx, "1", EventOrderPlaced, []byte(`{}`))
	require.NoError(t, err)
	_, err = outbox.Enqueue(ctx, "2", EventOrderPlaced, []byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, outbox.MarkEventAsProcessed(ctx, done.ID))

	n, err := outbox.PurgeProcessed(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "processed exactly at the cutoff is kept")

	n, err = outbox.PurgeProcessed(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	pending, err := outbox.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}
