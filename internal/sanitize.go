package internal

import "strings"

// SanitizeString strips line breaks from user-controlled values before they
// reach the log or a response body.
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}
