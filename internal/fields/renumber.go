package fields

// Renumber shifts row-indexed candidate fields (tier rows, free-item
// clauses) by the given offsets so results from multiple zones do not
// collide. Returns the rewritten candidates and the next free offsets.
func Renumber(cands []CandidateField, tierOffset, freeOffset int) ([]CandidateField, int, int) {
	maxTier, maxFree := -1, -1
	out := make([]CandidateField, len(cands))
	for i, c := range cands {
		if row, col, ok := IsTierField(c.Field); ok {
			row += tierOffset
			c.Field = TierField(row, col)
			if row > maxTier {
				maxTier = row
			}
		} else if idx, attr, ok := IsFreeItemField(c.Field); ok {
			idx += freeOffset
			c.Field = FreeItemField(idx, attr)
			if idx > maxFree {
				maxFree = idx
			}
		}
		out[i] = c
	}
	if maxTier >= 0 {
		tierOffset = maxTier + 1
	}
	if maxFree >= 0 {
		freeOffset = maxFree + 1
	}
	return out, tierOffset, freeOffset
}
