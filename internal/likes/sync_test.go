package likes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSync(ids ...string) (*SyncService, *fakeAtomicStore, *fakeDurableStore) {
	atomic := newFakeAtomicStore()
	durable := newFakeDurableStore()
	return NewSyncService(durable, atomic, &fakeSampler{ids: ids}, 1, 16), atomic, durable
}

func TestSyncToDurableLiked(t *testing.T) {
	svc, _, durable := newTestSync()
	ctx := context.Background()
	actor := Principal("a2")

	outcome := Outcome{PostID: "p1", Actor: actor, Liked: true, Count: 1}
	require.NoError(t, svc.SyncToDurable(ctx, outcome))

	assert.True(t, durable.hasRow("p1", actor.Tag()))
	assert.Equal(t, int64(1), durable.storedCount("p1"))
}

func TestSyncToDurableUnliked(t *testing.T) {
	svc, _, durable := newTestSync()
	ctx := context.Background()
	actor := Principal("a2")

	require.NoError(t, durable.UpsertLike(ctx, "p1", actor.Tag()))
	require.NoError(t, durable.SetLikeCount(ctx, "p1", 1))

	outcome := Outcome{PostID: "p1", Actor: actor, Liked: false, Count: 0}
	require.NoError(t, svc.SyncToDurable(ctx, outcome))

	assert.False(t, durable.hasRow("p1", actor.Tag()))
	assert.Equal(t, int64(0), durable.storedCount("p1"))
}

func TestSyncToDurableIsIdempotent(t *testing.T) {
	svc, _, durable := newTestSync()
	ctx := context.Background()
	actor := Session("s9")

	outcome := Outcome{PostID: "p1", Actor: actor, Liked: true, Count: 3}
	require.NoError(t, svc.SyncToDurable(ctx, outcome))
	require.NoError(t, svc.SyncToDurable(ctx, outcome))

	assert.True(t, durable.hasRow("p1", actor.Tag()))
	assert.Equal(t, int64(3), durable.storedCount("p1"))

	// Deleting an absent row twice is also success
	unliked := Outcome{PostID: "p1", Actor: actor, Liked: false, Count: 2}
	require.NoError(t, svc.SyncToDurable(ctx, unliked))
	require.NoError(t, svc.SyncToDurable(ctx, unliked))
	assert.Equal(t, int64(2), durable.storedCount("p1"))
}

func TestSyncUsesAbsoluteSetSemantics(t *testing.T) {
	svc, _, durable := newTestSync()
	ctx := context.Background()

	// A stale durable count is fully overwritten, not adjusted.
	require.NoError(t, durable.SetLikeCount(ctx, "p1", 40))
	outcome := Outcome{PostID: "p1", Actor: Principal("a1"), Liked: true, Count: 12}
	require.NoError(t, svc.SyncToDurable(ctx, outcome))
	assert.Equal(t, int64(12), durable.storedCount("p1"))
}

func TestSyncValidatesOutcome(t *testing.T) {
	svc, _, _ := newTestSync()
	ctx := context.Background()

	err := svc.SyncToDurable(ctx, Outcome{PostID: "", Actor: Principal("a")})
	assert.ErrorIs(t, err, ErrInvalidPostID)

	err = svc.SyncToDurable(ctx, Outcome{PostID: "p1"})
	assert.ErrorIs(t, err, ErrInvalidActor)
}

func TestWorkerDrainsQueue(t *testing.T) {
	svc, _, durable := newTestSync()
	actor := Principal("a1")

	svc.Start()
	defer svc.Stop()

	svc.Enqueue(Outcome{PostID: "p1", Actor: actor, Liked: true, Count: 1})
	svc.Enqueue(Outcome{PostID: "p2", Actor: actor, Liked: true, Count: 5})

	assert.Eventually(t, func() bool {
		return durable.hasRow("p1", actor.Tag()) && durable.storedCount("p2") == 5
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	// Workers never started: the queue fills and further outcomes drop
	// instead of blocking the caller.
	atomic := newFakeAtomicStore()
	durable := newFakeDurableStore()
	svc := NewSyncService(durable, atomic, &fakeSampler{}, 1, 1)

	done := make(chan struct{})
	go func() {
		svc.Enqueue(Outcome{PostID: "p1", Actor: Principal("a"), Liked: true, Count: 1})
		svc.Enqueue(Outcome{PostID: "p2", Actor: Principal("a"), Liked: true, Count: 1})
		svc.Enqueue(Outcome{PostID: "p3", Actor: Principal("a"), Liked: true, Count: 1})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}

func TestWorkerLogsAndContinuesOnFailure(t *testing.T) {
	svc, _, durable := newTestSync()
	actor := Principal("a1")

	durable.fail(true)
	svc.Start()
	defer svc.Stop()

	svc.Enqueue(Outcome{PostID: "p1", Actor: actor, Liked: true, Count: 1})

	// Failure is swallowed; a later sync still lands.
	time.Sleep(50 * time.Millisecond)
	durable.fail(false)
	svc.Enqueue(Outcome{PostID: "p2", Actor: actor, Liked: true, Count: 2})

	assert.Eventually(t, func() bool {
		return durable.storedCount("p2") == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReconcileCounterRedisWins(t *testing.T) {
	svc, atomic, durable := newTestSync()
	ctx := context.Background()

	require.NoError(t, atomic.SetCount(ctx, countKey("p1"), 10))
	require.NoError(t, durable.SetLikeCount(ctx, "p1", 6))

	corrected, err := svc.ReconcileCounter(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, corrected)
	assert.Equal(t, int64(10), durable.storedCount("p1"))
}

func TestReconcileCounterNoDriftNoWrite(t *testing.T) {
	svc, atomic, durable := newTestSync()
	ctx := context.Background()

	require.NoError(t, atomic.SetCount(ctx, countKey("p1"), 4))
	require.NoError(t, durable.SetLikeCount(ctx, "p1", 4))

	corrected, err := svc.ReconcileCounter(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, corrected)
}

func TestReconcileSkipsColdCounters(t *testing.T) {
	svc, _, durable := newTestSync()
	ctx := context.Background()

	require.NoError(t, durable.SetLikeCount(ctx, "p1", 8))

	corrected, err := svc.ReconcileCounter(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, corrected)
	// Durable value untouched: a missing live counter is not authority.
	assert.Equal(t, int64(8), durable.storedCount("p1"))
}

func TestReconcileAll(t *testing.T) {
	svc, atomic, durable := newTestSync("p1", "p2", "p3")
	ctx := context.Background()

	require.NoError(t, atomic.SetCount(ctx, countKey("p1"), 3))
	require.NoError(t, durable.SetLikeCount(ctx, "p1", 3))
	require.NoError(t, atomic.SetCount(ctx, countKey("p2"), 9))
	require.NoError(t, durable.SetLikeCount(ctx, "p2", 2))
	// p3 has no live counter

	checked, corrected, err := svc.ReconcileAll(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, checked)
	assert.Equal(t, 1, corrected)
	assert.Equal(t, int64(9), durable.storedCount("p2"))
}
