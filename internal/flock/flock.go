// Package flock provides a best-effort advisory lock file guarding one
// project data directory against concurrent presetmd invocations.
package flock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Acquire creates an exclusive lock file inside dir and returns a release
// function. A held lock is reported, never stolen; a stale lock left by a
// crashed process must be removed by hand.
func Acquire(dir string) (func(), error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, ".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("project is locked by another process (remove %s if stale)", path)
		}
		return nil, err
	}
	_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	_ = f.Close()

	return func() { _ = os.Remove(path) }, nil
}
