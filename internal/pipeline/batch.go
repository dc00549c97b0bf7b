package pipeline

// Stage concurrency ceilings. Extraction is the most expensive stage per
// candidate (model calls plus auxiliary fetches), so it gets the lowest cap.
const (
	maxParseBatch   = 8
	maxExtractBatch = 4
	maxPublishBatch = 5
)

// batchSize adapts the per-batch concurrency to the input size: small
// inputs use a low fixed concurrency, larger inputs scale toward the stage
// ceiling.
func batchSize(n, ceiling int) int {
	if n <= 0 {
		return 1
	}
	if n <= 4 {
		return 2
	}
	size := (n + 3) / 4
	if size > ceiling {
		size = ceiling
	}
	return size
}

// batches splits candidates into consecutive slices of at most size.
func batches[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		stop := start + size
		if stop > len(items) {
			stop = len(items)
		}
		out = append(out, items[start:stop])
	}
	return out
}
