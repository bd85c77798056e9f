//go:build windows

package fs

import (
	"errors"
	"syscall"
)

// errorNotSameDevice is ERROR_NOT_SAME_DEVICE.
const errorNotSameDevice syscall.Errno = 17

func isCrossDevice(err error) bool { return errors.Is(err, errorNotSameDevice) }

func isNotDir(err error) bool { return errors.Is(err, syscall.ERROR_PATH_NOT_FOUND) }
