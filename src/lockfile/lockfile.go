package lockfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ErrLocked reports that another invocation already holds the lock. The
// caller fails fast; there is no queueing or retrying.
var ErrLocked = errors.New("another invocation holds the lock")

// Lock is an advisory process-wide lock backed by an exclusively-created
// file. It serializes mutating phases (snapshot creation, retention, sync)
// across invocations; nothing finer-grained guards the repositories.
type Lock struct {
	path string
}

// Acquire creates the lock file, failing with ErrLocked if it already
// exists. The file records the holder's pid for operators chasing a stale
// lock after a crash.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	_, werr := f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	cerr := f.Close()
	if werr != nil || cerr != nil {
		os.Remove(path)
		if werr == nil {
			werr = cerr
		}
		return nil, fmt.Errorf("write lock %s: %w", path, werr)
	}
	return &Lock{path: path}, nil
}

// Release removes the lock file. Safe to call once per acquired lock on
// every exit path.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}
