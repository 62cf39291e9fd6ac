package config

import (
	"errors"
	"os"
)

// EnsureConfig writes Defaults to path unless a file is already there.
// It reports whether a file was created.
func EnsureConfig(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := SaveAtomic(path, Defaults()); err != nil {
		return false, err
	}
	return true, nil
}
