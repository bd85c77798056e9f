//go:build !windows && !darwin && !ios

package pathtree

// Native is the flavour of the platform the binary was built for.
var Native = Posix
