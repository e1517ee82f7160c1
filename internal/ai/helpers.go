package ai

import "strings"

// extractJSON trims any leading/trailing commentary a chat model adds
// around the JSON object it was asked to return.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
