// Package utils provides small helpers with no domain knowledge. They exist
// mostly to keep query-string parsing in the handlers terse.
package utils

import "strconv"

// AtoiDefault parses s as an int, returning def when s is empty or not a
// valid integer. Handlers use it for page and page_size query parameters,
// where a bad value should fall back to the default rather than fail the
// request.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
