package domain

import "sort"

// MergeActivities merges incoming into held by ID. Incoming entries win on
// collision. The result is sorted newest first, ties broken by higher ID.
func MergeActivities(held, incoming []Activity) []Activity {
	index := make(map[int64]int, len(held)+len(incoming))
	out := make([]Activity, 0, len(held)+len(incoming))
	for _, list := range [][]Activity{held, incoming} {
		for _, a := range list {
			if i, ok := index[a.ID]; ok {
				out[i] = a
				continue
			}
			index[a.ID] = len(out)
			out = append(out, a)
		}
	}
	SortActivities(out)
	return out
}

// SortActivities orders activities newest first in place.
func SortActivities(items []Activity) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Timestamp.After(items[j].Timestamp)
		}
		return items[i].ID > items[j].ID
	})
}

// SortReplies orders replies oldest first in place. Pending placeholders keep
// their position relative to each other.
func SortReplies(items []Reply) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.Before(items[j].Timestamp)
	})
}
