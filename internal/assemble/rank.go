package assemble

import "sort"

// rank orders blocks by the enabled preference keys, then by score.
func rank(blocks []annotatedChunk, opts Options) {
	sort.SliceStable(blocks, func(i, j int) bool {
		a, b := blocks[i], blocks[j]
		if opts.PreferActive && a.IsActive != b.IsActive {
			return a.IsActive
		}
		if opts.PreferIndexed && a.IsIndexed != b.IsIndexed {
			return a.IsIndexed
		}
		if opts.PreferRecent {
			ta, tb := lastIndexedMillis(a), lastIndexedMillis(b)
			if ta != tb {
				return ta > tb
			}
		}
		return sanitizeScore(a.Score) > sanitizeScore(b.Score)
	})
}

func lastIndexedMillis(c annotatedChunk) int64 {
	if t, ok := c.LastIndexed.Get(); ok {
		return t.UnixMilli()
	}
	return 0
}
