package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aminexfrad/F-S-SHOP/internal/repository"
	"github.com/aminexfrad/F-S-SHOP/pkg/circuitbreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller_DeliversAndMarksProcessed(t *testing.T) {
	repo := &MockRepository{Events: []*repository.OutboxEvent{orderEvent(1, 11), orderEvent(2, 12)}}
	notifier := &MockNotifier{}
	poller := NewPoller(repo, notifier, nil)

	delivered := poller.ProcessOnce(context.Background())

	assert.Equal(t, 2, delivered)
	assert.Equal(t, []int{1, 2}, repo.processed())
	assert.Equal(t, DefaultMaxAttempts, repo.MaxAttemptsSeen)

	// nothing left on the next tick
	assert.Equal(t, 0, poller.ProcessOnce(context.Background()))
	assert.Equal(t, 2, notifier.calls())
}

func TestPoller_FailureIsCountedAndOthersContinue(t *testing.T) {
	repo := &MockRepository{Events: []*repository.OutboxEvent{orderEvent(1, 11), orderEvent(2, 12), orderEvent(3, 13)}}
	notifier := &MockNotifier{FailIDs: map[int]bool{2: true}}
	poller := NewPoller(repo, notifier, nil)

	delivered := poller.ProcessOnce(context.Background())

	assert.Equal(t, 2, delivered)
	assert.Equal(t, []int{1, 3}, repo.processed())
	assert.Equal(t, 1, repo.Failures[2])
	assert.Equal(t, "sink rejected event", repo.Events[1].LastError)
}

func TestPoller_StopsRetryingAfterMaxAttempts(t *testing.T) {
	repo := &MockRepository{Events: []*repository.OutboxEvent{orderEvent(1, 11)}}
	notifier := &MockNotifier{FailIDs: map[int]bool{1: true}}
	poller := NewPoller(repo, notifier, nil,
		WithMaxAttempts(2),
		WithBreaker(circuitbreaker.Config{Name: "test", Timeout: time.Minute, FailureThreshold: 100}))

	for range 5 {
		poller.ProcessOnce(context.Background())
	}

	assert.Equal(t, 2, notifier.calls())
	assert.Equal(t, 2, repo.Failures[1])
	assert.Empty(t, repo.processed())
}

func TestPoller_OpenBreakerDefersBatch(t *testing.T) {
	events := []*repository.OutboxEvent{orderEvent(1, 11), orderEvent(2, 12), orderEvent(3, 13), orderEvent(4, 14)}
	repo := &MockRepository{Events: events}
	notifier := &MockNotifier{Err: errors.New("connection refused")}
	poller := NewPoller(repo, notifier, nil,
		WithBreaker(circuitbreaker.Config{Name: "test", Timeout: time.Minute, FailureThreshold: 2}))

	delivered := poller.ProcessOnce(context.Background())

	assert.Equal(t, 0, delivered)
	assert.Equal(t, 2, notifier.calls(), "breaker opens after two failures")
	assert.Equal(t, 0, events[2].Attempts, "deferred events are not charged an attempt")
	assert.Equal(t, 0, events[3].Attempts)
}

func TestPoller_FetchErrorIsLogged(t *testing.T) {
	repo := &MockRepository{FetchErr: errors.New("database is locked")}
	notifier := &MockNotifier{}
	poller := NewPoller(repo, notifier, nil)

	assert.Equal(t, 0, poller.ProcessOnce(context.Background()))
	assert.Equal(t, 0, notifier.calls())
}

func TestPoller_MarkErrorDoesNotCountAsDelivered(t *testing.T) {
	repo := &MockRepository{Events: []*repository.OutboxEvent{orderEvent(1, 11)}, MarkErr: errors.New("disk I/O error")}
	poller := NewPoller(repo, &MockNotifier{}, nil)

	assert.Equal(t, 0, poller.ProcessOnce(context.Background()))
}

func TestPoller_PurgeUsesRetention(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := &MockRepository{PurgeCount: 3}
	poller := NewPoller(repo, &MockNotifier{}, nil,
		WithRetention(48*time.Hour),
		WithClock(func() time.Time { return now }))

	poller.purgeProcessedEvents(context.Background())

	require.Len(t, repo.PurgedBefore, 1)
	assert.Equal(t, now.Add(-48*time.Hour), repo.PurgedBefore[0])
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	repo := &MockRepository{Events: []*repository.OutboxEvent{orderEvent(1, 11)}}
	poller := NewPoller(repo, &MockNotifier{}, nil, WithEventTick(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(repo.processed()) == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
