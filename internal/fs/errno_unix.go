//go:build unix

package fs

import (
	"errors"
	"syscall"
)

func isCrossDevice(err error) bool { return errors.Is(err, syscall.EXDEV) }

// isNotDir catches lookups through a path component that is a file.
func isNotDir(err error) bool { return errors.Is(err, syscall.ENOTDIR) }
