// Package filelock serializes writers of the run archive across processes
// (a watch loop and a one-shot brief may finish at the same time).
package filelock

import (
	"context"
	"os"
	"time"
)

const (
	lockFileMode = 0o600
	retryDelay   = 2 * time.Millisecond
)

// Lock waits until it holds an exclusive advisory lock on the file at path,
// creating the file if needed. It gives up with ctx.Err() when ctx is done.
// Call the returned unlock func to release the lock.
func Lock(ctx context.Context, path string) (unlock func() error, err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFileMode) //nolint:gosec // lock file lives in the archive dir
	if err != nil {
		return nil, err
	}

	for {
		ok, err := tryLock(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	return func() error {
		unlockErr := unlockFile(f)
		closeErr := f.Close()
		if unlockErr != nil {
			return unlockErr
		}
		return closeErr
	}, nil
}
