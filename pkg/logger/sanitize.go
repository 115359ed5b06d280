package logger

import "strings"

// RedactToken masks a signed token for logging, keeping only the first few characters
func RedactToken(token string) string {
	const visible = 8
	if len(token) <= visible {
		return strings.Repeat("*", len(token))
	}
	return token[:visible] + "..." + "[REDACTED]"
}

// SanitizeQueryString checks if query string contains sensitive parameters
// and returns true if the entire query string should be redacted
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := []string{
		"token",
		"secret",
		"api_key",
		"apikey",
		"auth",
		"key",
	}

	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
