//go:build !memdebug

package memdebug

// Enabled reports whether the binary was built with the memdebug tag.
// Release builds leave released memory untouched.
const Enabled = false
