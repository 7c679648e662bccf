package lockfile

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	alive map[int]bool
	calls int
	mu    sync.Mutex
}

func (p *fakeProber) Alive(pid int) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.alive[pid], nil
}

func writeOwner(t *testing.T, path string, pid int) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o644))
}

func TestAcquire_WritesPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tcm.lock")

	lock, err := Acquire(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), lock.PID())
	assert.Equal(t, path, lock.Path())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))
	assert.Equal(t, os.Getpid(), ReadOwner(path))
}

func TestAcquire_Conflict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tcm.lock")

	first, err := Acquire(path)
	require.NoError(t, err)

	_, err = Acquire(path)
	var held *HeldError
	require.ErrorAs(t, err, &held)
	assert.Equal(t, os.Getpid(), held.PID)
	assert.Equal(t, path, held.Path)
	assert.Contains(t, err.Error(), strconv.Itoa(os.Getpid()))

	require.NoError(t, first.Release())
	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))

	again, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestAcquire_ConcurrentExactlyOneWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tcm.lock")

	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []*Lock
		held    int
	)
	start := make(chan struct{})
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			lock, err := Acquire(path)
			mu.Lock()
			defer mu.Unlock()
			var he *HeldError
			switch {
			case err == nil:
				winners = append(winners, lock)
			case errors.As(err, &he):
				held++
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, n-1, held)
	require.NoError(t, winners[0].Release())
}

func TestRelease_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tcm.lock")
	lock, err := Acquire(path)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	assert.NoError(t, lock.Release())
	assert.NoError(t, lock.Release())

	var nilLock *Lock
	assert.NoError(t, nilLock.Release())
}

func TestHeldError_UnreadableOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tcm.lock")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	_, err := Acquire(path)
	var held *HeldError
	require.ErrorAs(t, err, &held)
	assert.Zero(t, held.PID)
	assert.Contains(t, err.Error(), "another process")
}

func TestWaitForLock_TimesOutWithOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tcm.lock")
	writeOwner(t, path, 4242)

	start := time.Now()
	_, err := WaitForLock(context.Background(), path, Options{Timeout: 150 * time.Millisecond, PollInterval: 20 * time.Millisecond})

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, 4242, timeout.PID)
	assert.GreaterOrEqual(t, timeout.Waited, 150*time.Millisecond)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Contains(t, err.Error(), "4242")

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "a live lock must not be removed")
}

func TestWaitForLock_AcquiresAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tcm.lock")
	holder, err := Acquire(path)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = holder.Release()
	}()

	lock, err := WaitForLock(context.Background(), path, Options{Timeout: 5 * time.Second, PollInterval: 100 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), ReadOwner(path))
	require.NoError(t, lock.Release())
}

func TestWaitForLock_ContextCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tcm.lock")
	writeOwner(t, path, 4242)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := WaitForLock(ctx, path, Options{Timeout: time.Minute, PollInterval: 10 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestWaitForLock_ReclaimsDeadOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tcm.lock")
	writeOwner(t, path, 999999)
	prober := &fakeProber{alive: map[int]bool{}}

	lock, err := WaitForLock(context.Background(), path, Options{Timeout: time.Second, PollInterval: 10 * time.Millisecond, Prober: prober})
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), ReadOwner(path))
	assert.Equal(t, 1, prober.calls)
	require.NoError(t, lock.Release())
}

func TestWaitForLock_KeepsLiveOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tcm.lock")
	writeOwner(t, path, 4242)
	prober := &fakeProber{alive: map[int]bool{4242: true}}

	_, err := WaitForLock(context.Background(), path, Options{Timeout: 80 * time.Millisecond, PollInterval: 10 * time.Millisecond, Prober: prober})
	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 4242, ReadOwner(path))
	assert.Positive(t, prober.calls)
}

func TestWithLock_ReleasesOnSuccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tcm.lock")

	got, err := WithLock(context.Background(), path, Options{}, func() (int, error) {
		assert.Equal(t, os.Getpid(), ReadOwner(path), "lock is held while the action runs")
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestWithLock_ReleasesOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tcm.lock")
	boom := errors.New("boom")

	err := Do(context.Background(), path, Options{}, func() error { return boom })
	assert.ErrorIs(t, err, boom)

	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestWithLock_ReleasesOnPanic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tcm.lock")

	assert.Panics(t, func() {
		_ = Do(context.Background(), path, Options{}, func() error { panic("boom") })
	})

	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestWithLock_DoesNotRunWhenHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tcm.lock")
	writeOwner(t, path, 4242)

	ran := false
	err := Do(context.Background(), path, Options{Timeout: 30 * time.Millisecond, PollInterval: 10 * time.Millisecond}, func() error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.False(t, ran)
	assert.Equal(t, 4242, ReadOwner(path))
}

// handoffProber reports the owner dead but, while being asked, lets another
// waiter take the lock, as happens when two waiters see the same dead owner.
type handoffProber struct {
	path     string
	newOwner int
}

func (p handoffProber) Alive(int) (bool, error) {
	if err := os.Remove(p.path); err != nil {
		return false, err
	}
	if err := os.WriteFile(p.path, []byte(strconv.Itoa(p.newOwner)), 0o644); err != nil {
		return false, err
	}
	return false, nil
}

func TestReclaimStale_LeavesLockTakenInTheMeantime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tcm.lock")
	writeOwner(t, path, 999999)

	reclaimed := reclaimStale(path, 999999, handoffProber{path: path, newOwner: 4242}, slog.New(slog.DiscardHandler))
	assert.False(t, reclaimed)
	assert.Equal(t, 4242, ReadOwner(path), "the new holder's lock must survive")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no reclaim leftovers")
}

func TestReclaimStale_RemovesDeadOwner(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tcm.lock")
	writeOwner(t, path, 999999)

	assert.True(t, reclaimStale(path, 999999, &fakeProber{alive: map[int]bool{}}, slog.New(slog.DiscardHandler)))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
