// Package models defines the data structures exchanged with the consultation service.
package models

import "strings"

// ShortID returns the last n characters of an identifier, upper-cased, for display.
// Identifiers shorter than n are returned whole.
func ShortID(id string, n int) string {
	if n <= 0 || id == "" {
		return ""
	}
	if len(id) > n {
		id = id[len(id)-n:]
	}
	return strings.ToUpper(id)
}
