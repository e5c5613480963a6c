package engine

// Split cuts items into n contiguous partitions whose sizes differ by at
// most one. It never returns more partitions than items; an empty input
// yields no partitions. n < 1 is treated as 1.
func Split[T any](items []T, n int) [][]T {
	if len(items) == 0 {
		return nil
	}
	n = min(max(n, 1), len(items))

	out := make([][]T, 0, n)
	size, extra := len(items)/n, len(items)%n
	start := 0
	for i := 0; i < n; i++ {
		end := start + size
		if i < extra {
			end++
		}
		out = append(out, items[start:end:end])
		start = end
	}
	return out
}
