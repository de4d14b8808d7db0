package summary

import (
	"fmt"
	"math"
	"strings"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
)

// RouteSetSignature fingerprints the parts of a route set the summary
// depends on: per route index, rounded distance, rounded duration and turn
// count.
func RouteSetSignature(views []route.RouteView) string {
	parts := make([]string, len(views))
	for i, v := range views {
		parts[i] = fmt.Sprintf("%d:%d:%d:%d",
			v.Index,
			int64(math.Round(v.Distance)),
			int64(math.Round(v.Duration)),
			len(v.Turns),
		)
	}
	return strings.Join(parts, ";")
}

// ShouldInvoke reports whether a route set with signature current needs a new
// summary, given the signature recorded at the previous invocation.
func ShouldInvoke(previous, current string) bool {
	return current != "" && current != previous
}
