// Package env reads the handful of environment knobs that are consulted
// before envconfig has parsed the full configuration.
package env

import "os"

// Get returns the value of key, or fallback when the variable is unset
// or empty.
func Get(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}
