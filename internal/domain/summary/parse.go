package summary

import (
	"regexp"
	"strconv"
)

var (
	// route_index = N, zero-based.
	routeIndexPattern = regexp.MustCompile(`route_index\s*=\s*(\d+)`)
	// "route #N" as written in prose, one-based.
	routeNumberPattern = regexp.MustCompile(`(?i)route\s*#\s*(\d+)`)
)

// ParseSuggestedIndex extracts a zero-based route index from model output.
// Whichever pattern occurs first in the text wins. Indexes outside
// [0, routeCount) are discarded.
func ParseSuggestedIndex(text string, routeCount int) (int, bool) {
	idx, pos := -1, -1

	if m := routeIndexPattern.FindStringSubmatchIndex(text); m != nil {
		if n, err := strconv.Atoi(text[m[2]:m[3]]); err == nil {
			idx, pos = n, m[0]
		}
	}
	if m := routeNumberPattern.FindStringSubmatchIndex(text); m != nil && (pos == -1 || m[0] < pos) {
		if n, err := strconv.Atoi(text[m[2]:m[3]]); err == nil {
			idx, pos = n-1, m[0]
		}
	}

	if pos == -1 || idx < 0 || idx >= routeCount {
		return 0, false
	}
	return idx, true
}
