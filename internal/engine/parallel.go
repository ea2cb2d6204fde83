package engine

import "sync"

// partitionRanges splits [0, n) into at most parts contiguous ranges of
// near-equal length. The split depends only on n and parts.
func partitionRanges(n, parts int) [][2]int {
	if n <= 0 {
		return nil
	}

	if parts < 1 {
		parts = 1
	}

	if parts > n {
		parts = n
	}

	chunk := (n + parts - 1) / parts
	ranges := make([][2]int, 0, parts)

	for lo := 0; lo < n; lo += chunk {
		ranges = append(ranges, [2]int{lo, min(lo+chunk, n)})
	}

	return ranges
}

// runRanges calls fn once per range, concurrently when there is more than
// one range, and waits for all of them.
func runRanges(ranges [][2]int, fn func(part, lo, hi int)) {
	if len(ranges) == 1 {
		fn(0, ranges[0][0], ranges[0][1])
		return
	}

	var wg sync.WaitGroup

	for p, r := range ranges {
		wg.Add(1)
		go func(p, lo, hi int) {
			defer wg.Done()
			fn(p, lo, hi)
		}(p, r[0], r[1])
	}

	wg.Wait()
}

func parallelFor(n, maxWorkers int, fn func(lo, hi int)) {
	runRanges(partitionRanges(n, maxWorkers), func(_, lo, hi int) { fn(lo, hi) })
}
