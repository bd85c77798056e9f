//go:build darwin || ios

package pathtree

// Native is the flavour of the platform the binary was built for.
var Native = Darwin
