package utils

import "strings"

// SanitizeIdentifier makes an identifier safe for use as a git branch
// component or filesystem path, replacing spaces, slashes, and colons with
// dashes.
func SanitizeIdentifier(id string) string {
	sanitized := strings.ReplaceAll(id, ":", "-")
	sanitized = strings.ReplaceAll(sanitized, " ", "-")
	sanitized = strings.ReplaceAll(sanitized, "/", "-")
	sanitized = strings.ReplaceAll(sanitized, "\\", "-")
	return sanitized
}
