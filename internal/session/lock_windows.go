//go:build windows

package session

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/windows"
)

// lockPollInterval is how often a blocked update retries the lock.
const lockPollInterval = 10 * time.Millisecond

// acquireLock takes an exclusive LockFileEx lock on path, retrying until ctx
// is done. The returned function releases the lock and closes the file.
func acquireLock(ctx context.Context, path string) (func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening session lock: %w", err)
	}
	h := windows.Handle(f.Fd())

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()
	for {
		ol := new(windows.Overlapped)
		err := windows.LockFileEx(h, windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY, 0, 1, 0, ol)
		if err == nil {
			break
		}
		if err != windows.ERROR_LOCK_VIOLATION {
			f.Close()
			return nil, fmt.Errorf("locking session: %w", err)
		}
		select {
		case <-ctx.Done():
			f.Close()
			return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}

	return func() error {
		uerr := windows.UnlockFileEx(h, 0, 1, 0, new(windows.Overlapped))
		cerr := f.Close()
		if uerr != nil {
			return uerr
		}
		return cerr
	}, nil
}
