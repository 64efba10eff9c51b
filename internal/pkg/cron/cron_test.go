package cron

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/review_comments/internal/repository"
	"github.com/qs3c/review_comments/internal/testutil"
)

type fakePurger struct {
	mu     sync.Mutex
	calls  []time.Time
	purged int64
	err    error
}

func (f *fakePurger) PurgeDeletedLeaves(before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, before)
	return f.purged, f.err
}

func (f *fakePurger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestNewService_DefaultInterval(t *testing.T) {
	svc := NewService(nil, time.Hour, 0)
	assert.Equal(t, time.Hour, svc.interval)
}

func TestPurgeOnce_Disabled(t *testing.T) {
	purger := &fakePurger{}

	assert.Equal(t, int64(0), NewService(purger, 0, time.Hour).PurgeOnce())
	assert.Equal(t, int64(0), NewService(nil, time.Hour, time.Hour).PurgeOnce())
	assert.Equal(t, 0, purger.callCount())
}

func TestPurgeOnce_UsesRetention(t *testing.T) {
	purger := &fakePurger{purged: 4}
	svc := NewService(purger, 24*time.Hour, time.Hour)

	start := time.Now()
	assert.Equal(t, int64(4), svc.PurgeOnce())

	require.Equal(t, 1, purger.callCount())
	cutoff := purger.calls[0]
	assert.WithinDuration(t, start.Add(-24*time.Hour), cutoff, time.Second)
}

func TestPurgeOnce_Error(t *testing.T) {
	purger := &fakePurger{purged: 1, err: errors.New("db gone")}
	svc := NewService(purger, time.Hour, time.Hour)

	assert.Equal(t, int64(1), svc.PurgeOnce())
}

func TestStartStop(t *testing.T) {
	purger := &fakePurger{}
	svc := NewService(purger, time.Hour, 5*time.Millisecond)

	svc.Start()
	require.Eventually(t, func() bool { return purger.callCount() >= 2 }, time.Second, 5*time.Millisecond)
	svc.Stop()

	count := purger.callCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, count, purger.callCount(), "no purge after Stop")
}

func TestPurgeOnce_Repository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	old := time.Now().Add(-72 * time.Hour)
	testutil.TestComment(t, db, "R1", "alice", testutil.WithDeleted(), testutil.WithUpdatedAt(old))
	testutil.TestComment(t, db, "R1", "alice")

	svc := NewService(repository.NewCommentRepository(db), 24*time.Hour, time.Hour)
	assert.Equal(t, int64(1), svc.PurgeOnce())
	assert.Equal(t, int64(0), svc.PurgeOnce())
}
