package studydb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaver_FlushesAfterMark(t *testing.T) {
	repo := newMemRepo()
	db := New(Options{Records: repo})
	saver := NewSaver(db, RetryConfig{})

	_, err := db.MarkCard(cat, true)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return repo.count() == 1 && !db.Dirty() },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, saver.Close(context.Background()))
}

func TestSaver_CloseFlushesRemaining(t *testing.T) {
	repo := newMemRepo()
	db := New(Options{Records: repo})
	saver := NewSaver(db, RetryConfig{})

	for _, c := range []string{"a", "b", "c"} {
		_, err := db.MarkCard(cat, c != "b")
		require.NoError(t, err)
		_, err = db.MarkCard(house, true)
		require.NoError(t, err)
	}
	require.NoError(t, saver.Close(context.Background()))

	assert.False(t, db.Dirty())
	assert.Equal(t, 2, repo.count())

	// Requests after Close are ignored, and Close is idempotent.
	saver.Request()
	require.NoError(t, saver.Close(context.Background()))
}

func TestSaver_RetriesTransientFailure(t *testing.T) {
	repo := newMemRepo()
	repo.failures = 2
	db := New(Options{Records: repo})
	saver := NewSaver(db, RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, Multiplier: 2})

	_, err := db.MarkCard(cat, true)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return repo.count() == 1 && !db.Dirty() },
		2*time.Second, 10*time.Millisecond)
	require.NoError(t, saver.Close(context.Background()))
}

func TestRetry(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond}

	calls := 0
	err := retry(context.Background(), cfg, func(context.Context) error {
		calls++
		return errors.New("busy")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = retry(context.Background(), cfg, func(context.Context) error {
		calls++
		return context.Canceled
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "context errors are not retried")

	calls = 0
	err = retry(context.Background(), RetryConfig{}, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryConfig_BackoffCapped(t *testing.T) {
	cfg := RetryConfig{InitialWait: 100 * time.Millisecond, MaxWait: 300 * time.Millisecond, Multiplier: 2}
	for attempt := range 6 {
		got := cfg.backoff(attempt)
		if got > 360*time.Millisecond {
			t.Errorf("backoff(%d) = %v, want <= 360ms", attempt, got)
		}
	}
	if got := cfg.backoff(0); got < 80*time.Millisecond || got > 120*time.Millisecond {
		t.Errorf("backoff(0) = %v, want 100ms ±20%%", got)
	}
}
