package usecase

import (
	"regexp"
	"strings"
)

var multiSpacePattern = regexp.MustCompile(`\s+`)

// normalizeQuery trims the query and collapses runs of whitespace
func normalizeQuery(query string) string {
	return strings.TrimSpace(multiSpacePattern.ReplaceAllString(query, " "))
}

// resolutionCacheKey builds the cache key for a normalized query.
// Format: "resolution:{lowercase query}"
func resolutionCacheKey(query string) string {
	return "resolution:" + strings.ToLower(query)
}
