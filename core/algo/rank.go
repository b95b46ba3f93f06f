package algo

import "sort"

// RankDesc assigns ranks 1..N to the included items by value in descending order
// and returns them aligned with items. Excluded items get rank 0. Ties keep the
// input order, so identical input always yields identical ranks.
func RankDesc[T any](items []T, value func(T) float64, include func(T) bool) []int {
	order := make([]int, 0, len(items))
	for i, item := range items {
		if include == nil || include(item) {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return value(items[order[a]]) > value(items[order[b]])
	})
	ranks := make([]int, len(items))
	for pos, idx := range order {
		ranks[idx] = pos + 1
	}
	return ranks
}
