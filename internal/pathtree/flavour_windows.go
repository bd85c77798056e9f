//go:build windows

package pathtree

// Native is the flavour of the platform the binary was built for.
var Native = Windows
