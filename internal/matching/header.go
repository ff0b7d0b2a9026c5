package matching

import "net/http"

// MatchHeader checks if a specific header matches exactly. Header names
// are case-insensitive per HTTP semantics (http.Header.Get handles this).
func MatchHeader(name, expectedValue string, headers http.Header) bool {
	return headers.Get(name) == expectedValue
}

// MatchHeaders checks if all specified headers match exactly. Returns
// true only if ALL headers match, and trivially true for an empty map.
func MatchHeaders(expected map[string]string, headers http.Header) bool {
	for name, value := range expected {
		if !MatchHeader(name, value, headers) {
			return false
		}
	}
	return true
}
