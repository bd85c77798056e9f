//go:build !unix && !windows

package fs

func isCrossDevice(error) bool { return false }

func isNotDir(error) bool { return false }
