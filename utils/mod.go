package utils

import "cmp"

func FindIndex[T comparable](slice []T, item T) int {
	for i, v := range slice {
		if v == item {
			return i
		}
	}
	return -1
}

// ArgMax returns the index of the first element with the largest key, or -1 for an empty
// slice.
func ArgMax[T any, K cmp.Ordered](slice []T, key func(T) K) int {
	best := -1
	var bestKey K
	for i, v := range slice {
		k := key(v)
		if best < 0 || k > bestKey {
			best, bestKey = i, k
		}
	}
	return best
}
