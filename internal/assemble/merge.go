package assemble

import "sort"

func overlaps(a, b annotatedChunk) bool {
	return !(a.EndLine < b.StartLine || b.EndLine < a.StartLine)
}

// groupByFile splits chunks per file path, files in first-appearance order.
func groupByFile(chunks []annotatedChunk) [][]annotatedChunk {
	index := make(map[string]int)
	var groups [][]annotatedChunk
	for _, c := range chunks {
		i, ok := index[c.FilePath]
		if !ok {
			i = len(groups)
			index[c.FilePath] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], c)
	}
	return groups
}

// resolveOverlaps keeps one chunk per overlapping pair. A chunk replaces the
// first retained range it overlaps only on a strictly greater score. The
// retained range always grows to cover both spans.
func resolveOverlaps(chunks []annotatedChunk) []annotatedChunk {
	sorted := make([]annotatedChunk, len(chunks))
	copy(sorted, chunks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartLine < sorted[j].StartLine
	})

	retained := make([]annotatedChunk, 0, len(sorted))
	for _, c := range sorted {
		conflict := -1
		for i := range retained {
			if overlaps(retained[i], c) {
				conflict = i
				break
			}
		}
		if conflict < 0 {
			retained = append(retained, c)
			continue
		}

		prev := retained[conflict]
		winner := prev
		if c.Score > prev.Score {
			winner = c
		}
		winner.StartLine = min(prev.StartLine, c.StartLine)
		winner.EndLine = max(prev.EndLine, c.EndLine)
		retained[conflict] = winner
	}
	return retained
}

// mergeAdjacent joins sorted, disjoint ranges that touch or overlap and
// recovers each block's metadata from the ranges it absorbed.
func mergeAdjacent(retained []annotatedChunk) []annotatedChunk {
	if len(retained) == 0 {
		return nil
	}

	var blocks []annotatedChunk
	acc := retained[0]
	for _, next := range retained[1:] {
		if next.StartLine <= acc.EndLine+1 {
			acc.Content += "\n" + next.Content
			acc.EndLine = max(acc.EndLine, next.EndLine)
			continue
		}
		blocks = append(blocks, acc)
		acc = next
	}
	blocks = append(blocks, acc)

	for i := range blocks {
		b := &blocks[i]
		first := true
		for _, c := range retained {
			if !overlaps(*b, c) {
				continue
			}
			if first {
				b.Score = c.Score
				b.IsActive = c.IsActive
				b.IsIndexed = c.IsIndexed
				b.LastIndexed = c.LastIndexed
				first = false
				continue
			}
			b.Score = max(b.Score, c.Score)
			b.IsActive = b.IsActive || c.IsActive
			b.IsIndexed = b.IsIndexed || c.IsIndexed
		}
		b.Reason = reasonFor(b.IsActive, b.IsIndexed)
	}
	return blocks
}

// mergeChunks runs overlap resolution then adjacency merge for every file.
func mergeChunks(chunks []annotatedChunk) []annotatedChunk {
	var out []annotatedChunk
	for _, group := range groupByFile(chunks) {
		out = append(out, mergeAdjacent(resolveOverlaps(group))...)
	}
	return out
}
