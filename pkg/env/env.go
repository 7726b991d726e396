package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of the environment variable or fallback when unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// Bool reports whether key holds a truthy value ("1", "true", "yes", "on").
func Bool(key string, fallback bool) bool {
	switch strings.ToLower(Get(key, "")) {
	case "":
		return fallback
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
