package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/stock-keeper/internal/core/domain"
)

// Mock CacheRepository
type mockCacheRepo struct {
	mu             sync.Mutex
	idempotencySet map[string]bool
	sessions       map[string]bool
	failWith       error
	dropErr        error
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{
		idempotencySet: make(map[string]bool),
		sessions:       make(map[string]bool),
	}
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return false, m.failWith
	}
	if m.idempotencySet[key] {
		return false, nil
	}
	m.idempotencySet[key] = true
	return true, nil
}

func (m *mockCacheRepo) TouchSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = true
	return nil
}

func (m *mockCacheRepo) SessionAlive(ctx context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sessionID], nil
}

func (m *mockCacheRepo) DropSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dropErr != nil {
		return m.dropErr
	}
	delete(m.sessions, sessionID)
	return nil
}

// lapse simulates lease expiry.
func (m *mockCacheRepo) lapse(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// gatedCache holds the first lease check until release is closed.
type gatedCache struct {
	*mockCacheRepo
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedCache() *gatedCache {
	return &gatedCache{
		mockCacheRepo: newMockCacheRepo(),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
}

func (g *gatedCache) SessionAlive(ctx context.Context, sessionID string) (bool, error) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.mockCacheRepo.SessionAlive(ctx, sessionID)
}

func newTestService(t *testing.T) (*SessionService, *mockCacheRepo) {
	t.Helper()
	cache := newMockCacheRepo()
	svc := NewSessionService(cache, nil, Options{IdleTTL: time.Minute, QueueSize: 100})
	t.Cleanup(svc.Shutdown)

	// Drain queue
	go func() {
		for range svc.Events() {
		}
	}()
	return svc, cache
}

func TestOpen_SeededAndEmpty(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	seeded, err := svc.Open(ctx, true)
	require.NoError(t, err)
	empty, err := svc.Open(ctx, false)
	require.NoError(t, err)
	assert.NotEqual(t, seeded, empty)

	lines, err := svc.ListRecords(ctx, seeded)
	require.NoError(t, err)
	assert.Len(t, lines, 2)

	agg, err := svc.Aggregates(ctx, empty)
	require.NoError(t, err)
	assert.Zero(t, agg.DistinctRecordCount)
	assert.Equal(t, 2, svc.Len())
}

func TestAddRecord_SessionsAreIsolated(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, _ := svc.Open(ctx, false)
	b, _ := svc.Open(ctx, false)

	_, err := svc.AddRecord(ctx, a, "", "Stapler", "2", "12.00")
	require.NoError(t, err)

	linesA, _ := svc.ListRecords(ctx, a)
	linesB, _ := svc.ListRecords(ctx, b)
	assert.Len(t, linesA, 1)
	assert.Empty(t, linesB)
}

func TestAddRecord_ValidationLeavesStoreUnchanged(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id, _ := svc.Open(ctx, true)

	_, err := svc.AddRecord(ctx, id, "req-1", "X", "-1", "5.0")
	assert.ErrorIs(t, err, domain.ErrNonPositiveQuantity)

	lines, _ := svc.ListRecords(ctx, id)
	assert.Len(t, lines, 2)

	// A rejected request does not burn its request id.
	_, err = svc.AddRecord(ctx, id, "req-1", "X", "1", "5.0")
	assert.NoError(t, err)
}

func TestAddRecord_DuplicateRequest(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id, _ := svc.Open(ctx, false)

	// First request
	_, err := svc.AddRecord(ctx, id, "req-1", "Paper", "10", "3.50")
	require.NoError(t, err)

	// Duplicate request with same requestID
	_, err = svc.AddRecord(ctx, id, "req-1", "Paper", "10", "3.50")
	assert.ErrorIs(t, err, domain.ErrDuplicateRequest)

	// Store should only grow once
	lines, _ := svc.ListRecords(ctx, id)
	assert.Len(t, lines, 1)
}

func TestAddRecord_SameRequestIDInOtherSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a, _ := svc.Open(ctx, false)
	b, _ := svc.Open(ctx, false)

	_, err := svc.AddRecord(ctx, a, "req-1", "Paper", "1", "1")
	require.NoError(t, err)
	_, err = svc.AddRecord(ctx, b, "req-1", "Paper", "1", "1")
	assert.NoError(t, err)
}

func TestAddRecord_CacheFailure(t *testing.T) {
	svc, cache := newTestService(t)
	ctx := context.Background()
	id, _ := svc.Open(ctx, false)

	cache.failWith = errors.New("connection refused")
	_, err := svc.AddRecord(ctx, id, "req-1", "Paper", "1", "1")
	require.Error(t, err)
	_, isDomain := domain.KindOf(err)
	assert.False(t, isDomain)

	cache.failWith = nil
	lines, _ := svc.ListRecords(ctx, id)
	assert.Empty(t, lines)
}

func TestRemoveRecord(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id, _ := svc.Open(ctx, false)
	for _, n := range []string{"A", "B", "C"} {
		svc.AddRecord(ctx, id, "", n, "1", "1")
	}

	name, err := svc.RemoveRecord(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, "B", name)

	_, err = svc.RemoveRecord(ctx, id, 2)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)

	lines, _ := svc.ListRecords(ctx, id)
	require.Len(t, lines, 2)
	assert.Equal(t, "C", lines[1].Name)

	name, err = svc.RemoveRecordByID(ctx, id, lines[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "A", name)
}

func TestUnknownSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddRecord(ctx, "missing", "", "A", "1", "1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = svc.RemoveRecord(ctx, "missing", 0)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = svc.ListRecords(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = svc.Aggregates(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, svc.Close(ctx, "missing"), domain.ErrSessionNotFound)
}

func TestClose(t *testing.T) {
	svc, cache := newTestService(t)
	ctx := context.Background()
	id, _ := svc.Open(ctx, true)

	require.NoError(t, svc.Close(ctx, id))

	_, err := svc.ListRecords(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	alive, _ := cache.SessionAlive(ctx, id)
	assert.False(t, alive)
}

func TestClose_Twice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id, _ := svc.Open(ctx, false)

	require.NoError(t, svc.Close(ctx, id))
	assert.ErrorIs(t, svc.Close(ctx, id), domain.ErrSessionNotFound)
}

func TestClose_WaitsForInFlightAdd(t *testing.T) {
	cache := newGatedCache()
	svc := NewSessionService(cache, nil, Options{IdleTTL: time.Minute, QueueSize: 100})
	t.Cleanup(svc.Shutdown)
	go func() {
		for range svc.Events() {
		}
	}()
	ctx := context.Background()
	id, err := svc.Open(ctx, false)
	require.NoError(t, err)

	addDone := make(chan error, 1)
	go func() {
		_, err := svc.AddRecord(ctx, id, "", "Late", "1", "1")
		addDone <- err
	}()
	<-cache.entered

	closeDone := make(chan error, 1)
	go func() { closeDone <- svc.Close(ctx, id) }()

	select {
	case <-closeDone:
		t.Fatal("Close returned while an add was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(cache.release)
	require.NoError(t, <-addDone)
	require.NoError(t, <-closeDone)

	alive, _ := cache.mockCacheRepo.SessionAlive(ctx, id)
	assert.False(t, alive, "lease must not outlive the session")
	assert.Zero(t, svc.Len())
	_, err = svc.ListRecords(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestClose_DropLeaseFailure(t *testing.T) {
	cache := newMockCacheRepo()
	svc := NewSessionService(cache, nil, Options{IdleTTL: time.Minute, QueueSize: 10})
	ctx := context.Background()
	id, err := svc.Open(ctx, false)
	require.NoError(t, err)

	cache.dropErr = errors.New("connection refused")
	err = svc.Close(ctx, id)
	require.Error(t, err)
	assert.ErrorIs(t, err, cache.dropErr)
	_, isDomain := domain.KindOf(err)
	assert.False(t, isDomain)

	assert.Zero(t, svc.Len())
	_, err = svc.ListRecords(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	svc.Shutdown()
	var got []domain.EventType
	for ev := range svc.Events() {
		got = append(got, ev.Type)
	}
	assert.Equal(t, []domain.EventType{domain.EventSessionOpened, domain.EventSessionClosed}, got)
}

func TestLapsedLease(t *testing.T) {
	svc, cache := newTestService(t)
	ctx := context.Background()
	id, _ := svc.Open(ctx, true)

	cache.lapse(id)

	_, err := svc.ListRecords(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Zero(t, svc.Len())
}

func TestReap(t *testing.T) {
	svc, cache := newTestService(t)
	ctx := context.Background()
	keep, _ := svc.Open(ctx, false)
	drop, _ := svc.Open(ctx, false)

	cache.lapse(drop)

	n, err := svc.Reap(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, svc.Len())

	_, err = svc.ListRecords(ctx, keep)
	assert.NoError(t, err)
}

func TestAddRecord_Concurrent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id, _ := svc.Open(ctx, false)

	totalRequests := 50
	var wg sync.WaitGroup
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.AddRecord(ctx, id, fmt.Sprintf("req-%d", n), fmt.Sprintf("item-%d", n), "1", "1")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	agg, err := svc.Aggregates(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, totalRequests, agg.DistinctRecordCount)
	assert.Equal(t, totalRequests, agg.TotalQuantity)
}

func TestAddRecord_QuantityOverflowKeepsRequestID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id, _ := svc.Open(ctx, false)

	_, err := svc.AddRecord(ctx, id, "", "Bulk", "9223372036854775807", "1")
	require.NoError(t, err)

	_, err = svc.AddRecord(ctx, id, "req-1", "One more", "1", "1")
	assert.ErrorIs(t, err, domain.ErrQuantityOverflow)

	_, err = svc.RemoveRecord(ctx, id, 0)
	require.NoError(t, err)
	_, err = svc.AddRecord(ctx, id, "req-1", "One more", "1", "1")
	require.NoError(t, err)

	agg, err := svc.Aggregates(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, agg.TotalQuantity)
}

func TestEvents(t *testing.T) {
	cache := newMockCacheRepo()
	svc := NewSessionService(cache, nil, Options{IdleTTL: time.Minute, QueueSize: 10})
	ctx := context.Background()

	id, _ := svc.Open(ctx, false)
	svc.AddRecord(ctx, id, "", "Glue", "4", "2.25")
	svc.AddRecord(ctx, id, "", "", "4", "2.25")
	svc.RemoveRecord(ctx, id, 5)
	svc.Close(ctx, id)
	svc.Shutdown()

	var got []domain.Event
	for ev := range svc.Events() {
		got = append(got, ev)
	}

	require.Len(t, got, 5)
	assert.Equal(t, domain.EventSessionOpened, got[0].Type)
	assert.Equal(t, domain.EventRecordAdded, got[1].Type)
	assert.Equal(t, "Glue", got[1].RecordName)
	assert.Equal(t, 4, got[1].Quantity)
	assert.Equal(t, domain.EventAddRejected, got[2].Type)
	assert.Equal(t, domain.KindEmptyName, got[2].Kind)
	assert.Equal(t, domain.EventRemoveRejected, got[3].Type)
	assert.Equal(t, domain.KindIndexOutOfRange, got[3].Kind)
	assert.Equal(t, domain.EventSessionClosed, got[4].Type)
	for _, ev := range got {
		assert.Equal(t, id, ev.SessionID)
		assert.False(t, ev.At.IsZero())
	}
}

func TestEvents_DroppedWhenQueueFull(t *testing.T) {
	cache := newMockCacheRepo()
	svc := NewSessionService(cache, nil, Options{IdleTTL: time.Minute, QueueSize: 1})
	ctx := context.Background()

	id, err := svc.Open(ctx, false)
	require.NoError(t, err)
	_, err = svc.AddRecord(ctx, id, "", "Glue", "1", "1")
	require.NoError(t, err)

	svc.Shutdown()
	var got []domain.Event
	for ev := range svc.Events() {
		got = append(got, ev)
	}
	assert.Len(t, got, 1)
}
