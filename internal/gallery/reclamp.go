package gallery

// Reclamp returns the active index after the item at removedIdx was removed,
// leaving newLen items. Removing an item before the active one shifts the
// index down by one so the same item stays active; removing the last item
// while it is active clamps to the new end. An empty sequence yields 0.
func Reclamp(active, removedIdx, newLen int) int {
	if active >= newLen {
		return max(0, newLen-1)
	}
	if removedIdx < active {
		return active - 1
	}
	return active
}

// Clamp bounds index to a sequence of n items, or 0 when it is empty.
func Clamp(index, n int) int {
	if n <= 0 || index < 0 {
		return 0
	}
	if index >= n {
		return n - 1
	}
	return index
}
