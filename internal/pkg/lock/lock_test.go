package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

func TestLocalLocker_SerializesSameKey(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "salary:emp-1:2025-07")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, l.slots)
}

func TestLocalLocker_ContextCancelled(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = l.Acquire(ctx, "k")
	assert.ErrorIs(t, err, ErrNotAcquired)
}

func TestLocalLocker_DifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocalLocker()
	r1, err := l.Acquire(context.Background(), "a")
	require.NoError(t, err)
	r2, err := l.Acquire(context.Background(), "b")
	require.NoError(t, err)
	r1()
	r2()
	// releasing twice is harmless
	r1()
}

func TestAcquireAll_ReleasesOnFailure(t *testing.T) {
	l := NewLocalLocker()
	held, err := l.Acquire(context.Background(), "b")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = AcquireAll(ctx, l, "a", "b")
	assert.ErrorIs(t, err, ErrNotAcquired)
	held()

	// "a" must have been released by the failed AcquireAll.
	release, err := AcquireAll(context.Background(), l, "a", "b")
	require.NoError(t, err)
	release()
}

type recordingLocker struct {
	mu       sync.Mutex
	acquired []string
	released []string
}

func (r *recordingLocker) Acquire(_ context.Context, key string) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acquired = append(r.acquired, key)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.released = append(r.released, key)
	}, nil
}

func TestAcquireAll_SortsAndDedupesKeys(t *testing.T) {
	rl := &recordingLocker{}
	salary := SalaryKey("emp-1", period.MustParse("2025-07"))
	keys := []string{salary, AdvanceKey("loan-1"), salary}

	release, err := AcquireAll(context.Background(), rl, keys...)
	require.NoError(t, err)
	release()

	assert.Equal(t, []string{"advance:loan-1", "salary:emp-1:2025-07"}, rl.acquired)
	assert.Equal(t, []string{"salary:emp-1:2025-07", "advance:loan-1"}, rl.released)
	assert.Equal(t, salary, keys[0], "caller's slice is left as passed")
}

func TestAcquireAll_OppositeOrdersDoNotDeadlock(t *testing.T) {
	l := NewLocalLocker()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			release, err := AcquireAll(ctx, l, "salary:emp-1:2025-07", "advance:loan-1")
			if assert.NoError(t, err) {
				release()
			}
		}()
		go func() {
			defer wg.Done()
			release, err := AcquireAll(ctx, l, "advance:loan-1", "salary:emp-1:2025-07")
			if assert.NoError(t, err) {
				release()
			}
		}()
	}
	wg.Wait()
}

func newTestRedisLocker(t *testing.T) (*RedisLocker, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	l := NewRedisLocker(client, RedisOptions{Prefix: "test:", TTL: 5 * time.Second})
	l.newToken = func() string { return "tok" }
	return l, mock
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	l, mock := newTestRedisLocker(t)

	mock.ExpectSetNX("test:loan:1", "tok", 5*time.Second).SetVal(true)
	mock.ExpectEval(releaseScript, []string{"test:loan:1"}, "tok").SetVal(int64(1))

	release, err := l.Acquire(context.Background(), "loan:1")
	require.NoError(t, err)
	release()
	release()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_Busy(t *testing.T) {
	l, mock := newTestRedisLocker(t)

	mock.ExpectSetNX("test:loan:1", "tok", 5*time.Second).SetVal(false)

	_, err := l.Acquire(context.Background(), "loan:1")
	assert.ErrorIs(t, err, ErrNotAcquired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_RedisError(t *testing.T) {
	l, mock := newTestRedisLocker(t)

	mock.ExpectSetNX("test:loan:1", "tok", 5*time.Second).SetErr(errors.New("connection refused"))

	_, err := l.Acquire(context.Background(), "loan:1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotAcquired)
	assert.Contains(t, err.Error(), "connection refused")
}
