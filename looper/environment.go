package looper

import "os"

// GetEnvironmentValue returns the named environment variable's value, or
// the empty string if it is unset, so callers never have to distinguish
// "unset" from "set to empty".
func GetEnvironmentValue(name string) string {
	return os.Getenv(name)
}
