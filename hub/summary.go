package hub

import (
	"fmt"
	"strings"
)

// viewerLabel replaces the viewer's own name in like summaries.
const viewerLabel = "You"

// LikeSummary renders the one-line "who liked this" text. names is the
// liker sample in server order; count is the total number of likes.
func LikeSummary(names []string, liked bool, count int) string {
	if count <= 0 {
		return ""
	}

	seen := make(map[string]struct{}, len(names)+1)
	ordered := make([]string, 0, len(names)+1)
	if liked {
		ordered = append(ordered, viewerLabel)
		seen[viewerLabel] = struct{}{}
	}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		ordered = append(ordered, n)
	}

	others := max(0, count-2)
	switch {
	case len(ordered) == 0 && count == 1:
		return "1 person liked this"
	case len(ordered) == 0:
		return fmt.Sprintf("%d people liked this", count)
	case len(ordered) == 1:
		return ordered[0] + " liked this"
	case len(ordered) == 2 || others == 0:
		return ordered[0] + " and " + ordered[1] + " liked this"
	default:
		return fmt.Sprintf("%s, %s, and %d others liked this", ordered[0], ordered[1], others)
	}
}
