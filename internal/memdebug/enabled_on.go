//go:build memdebug

package memdebug

// Enabled reports whether the binary was built with the memdebug tag.
const Enabled = true
