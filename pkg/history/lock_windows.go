//go:build windows

package history

import (
	"math"
	"os"

	"golang.org/x/sys/windows"
)

// lockFile takes a whole-file advisory lock on f, shared or exclusive, and
// blocks until it is granted. The returned function releases it.
func lockFile(f *os.File, exclusive bool) (func() error, error) {
	var flags uint32
	if exclusive {
		flags = windows.LOCKFILE_EXCLUSIVE_LOCK
	}

	handle := windows.Handle(f.Fd())
	overlapped := new(windows.Overlapped)
	if err := windows.LockFileEx(handle, flags, 0, math.MaxUint32, math.MaxUint32, overlapped); err != nil {
		return nil, err
	}

	return func() error {
		return windows.UnlockFileEx(handle, 0, math.MaxUint32, math.MaxUint32, overlapped)
	}, nil
}
