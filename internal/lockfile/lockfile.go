// Package lockfile implements a cross-process mutual exclusion lock backed by
// exclusive file creation. The existence of the file is the lock; its
// contents are the owner's PID so a blocked operator can see who holds it.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTimeout      = 300 * time.Second
	DefaultPollInterval = time.Second

	maxJitter = 200 * time.Millisecond
)

// ErrTimeout is matched by every TimeoutError.
var ErrTimeout = errors.New("timed out waiting for lock")

// HeldError reports that another process owns the lock. PID is zero when the
// owner could not be read from the lock file.
type HeldError struct {
	Path string
	PID  int
}

func (e *HeldError) Error() string {
	if e.PID <= 0 {
		return fmt.Sprintf("lock %s is held by another process", e.Path)
	}
	return fmt.Sprintf("lock %s is held by process %d", e.Path, e.PID)
}

// TimeoutError reports that the lock stayed held for the whole wait.
type TimeoutError struct {
	Path   string
	PID    int
	Waited time.Duration
}

func (e *TimeoutError) Error() string {
	owner := "another process"
	if e.PID > 0 {
		owner = "process " + strconv.Itoa(e.PID)
	}
	return fmt.Sprintf("timed out after %s waiting for lock %s held by %s; remove the file if that process is gone",
		e.Waited.Round(time.Millisecond), e.Path, owner)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// Prober reports whether a process is still running. It lets WaitForLock
// reclaim a lock whose owner has died.
type Prober interface {
	Alive(pid int) (bool, error)
}

// Options tunes WaitForLock. Zero durations select the defaults; a nil
// Prober leaves stale locks in place.
type Options struct {
	Timeout      time.Duration
	PollInterval time.Duration
	Prober       Prober
	Logger       *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Lock is a held lock file.
type Lock struct {
	path string
	pid  int
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// PID returns the PID recorded in the lock file.
func (l *Lock) PID() int { return l.pid }

// Acquire creates the lock file at path, failing with *HeldError when it
// already exists.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("prepare lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, &HeldError{Path: path, PID: readOwner(path)}
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	pid := os.Getpid()
	if _, err := f.WriteString(strconv.Itoa(pid)); err != nil {
		f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write lock owner: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close lock file: %w", err)
	}
	return &Lock{path: path, pid: pid}, nil
}

// Release removes the lock file. Releasing twice, or after the file was
// removed by someone else, is not an error.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// WaitForLock retries Acquire until it succeeds, the timeout elapses or ctx
// is cancelled. Retries sleep for the poll interval plus up to 200ms of
// jitter, and wake early when the lock file is removed.
func WaitForLock(ctx context.Context, path string, opts Options) (*Lock, error) {
	opts = opts.withDefaults()
	start := time.Now()
	deadline := start.Add(opts.Timeout)

	var watcher *removalWatcher
	defer func() { watcher.Close() }()

	for {
		lock, err := Acquire(path)
		if err == nil {
			return lock, nil
		}
		var held *HeldError
		if !errors.As(err, &held) {
			return nil, err
		}

		if opts.Prober != nil && held.PID > 0 && reclaimStale(path, held.PID, opts.Prober, opts.Logger) {
			continue
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &TimeoutError{Path: path, PID: held.PID, Waited: time.Since(start)}
		}

		if watcher == nil {
			watcher = watchRemoval(path, opts.Logger)
			opts.Logger.Info("lock: waiting", slog.String("path", path), slog.Int("owner", held.PID))
		}

		wait := opts.PollInterval + jitter()
		if wait > remaining {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("wait for lock %s: %w", path, ctx.Err())
		case <-timer.C:
		case <-watcher.Removed():
			timer.Stop()
		}
	}
}

// WithLock runs action while holding the lock at path and releases the lock
// on every exit path. An action error takes precedence over a release error.
func WithLock[T any](ctx context.Context, path string, opts Options, action func() (T, error)) (result T, err error) {
	lock, err := WaitForLock(ctx, path, opts)
	if err != nil {
		return result, err
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return action()
}

// Do is WithLock for actions without a result.
func Do(ctx context.Context, path string, opts Options, action func() error) error {
	_, err := WithLock(ctx, path, opts, func() (struct{}, error) {
		return struct{}{}, action()
	})
	return err
}

// reclaimStale removes the lock file when its owner is confirmed dead. The
// file is first renamed to a name only this caller knows, so the owner
// check and the removal act on the same file. A file that turns out to
// belong to someone else is put back unless the path was taken again.
func reclaimStale(path string, pid int, prober Prober, logger *slog.Logger) bool {
	alive, err := prober.Alive(pid)
	if err != nil || alive {
		return false
	}

	claimed := fmt.Sprintf("%s.reclaim-%d-%d", path, os.Getpid(), rand.Uint64())
	if err := os.Rename(path, claimed); err != nil {
		// Gone already: someone else reclaimed or released it.
		return errors.Is(err, os.ErrNotExist)
	}
	defer os.Remove(claimed)

	if owner := readOwner(claimed); owner != pid {
		if err := os.Link(claimed, path); err != nil {
			logger.Warn("lock: restore after reclaim race failed", slog.String("path", path), slog.Int("owner", owner), slog.String("error", err.Error()))
		}
		return false
	}
	logger.Warn("lock: reclaimed stale", slog.String("path", path), slog.Int("owner", pid))
	return true
}

// ReadOwner returns the PID recorded in the lock file at path, or zero.
func ReadOwner(path string) int {
	return readOwner(path)
}

func readOwner(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

func jitter() time.Duration {
	return rand.N(maxJitter)
}
