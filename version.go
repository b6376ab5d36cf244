// Package reactorgo provides the version information for reactor-go.
package reactorgo

// Version is the current version of reactor-go.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
