// Package env keeps names of environment variables with special significance to
// marktree.
package env

const (
	// Path of the configuration file, overriding the default.
	MARKTREE_CONFIG = "MARKTREE_CONFIG"
	// Disables color in diagnostics when set to a non-empty value; see
	// https://no-color.org.
	NO_COLOR = "NO_COLOR"
)
