package normalize

import (
	"strings"

	"github.com/agext/levenshtein"
)

var simParams = levenshtein.NewParams()

// tokenMatchThreshold is the per-word edit-distance ratio above which two
// tokens are considered the same word (typo tolerance: "acres" ~ "acre").
const tokenMatchThreshold = 0.8

// TitleSimilarity scores two normalized titles in [0, 1]. It is Jaccard
// similarity over word sets, with tokens paired by character-level
// Levenshtein ratio so singular/plural and typo variants still count as the
// same word. A pure character ratio scores "north wing" vs "south wing" too
// high; one changed word in a long shared frame must drag the score down,
// since that is exactly the campus-buildings case that must not auto-merge.
// Symmetric by construction.
func TitleSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	if a > b {
		a, b = b, a
	}

	ta := strings.Fields(a)
	tb := strings.Fields(b)
	used := make([]bool, len(tb))
	matched := 0
	for _, wa := range ta {
		best := -1
		bestScore := 0.0
		for j, wb := range tb {
			if used[j] {
				continue
			}
			if score := levenshtein.Similarity(wa, wb, simParams); score >= tokenMatchThreshold && score > bestScore {
				best, bestScore = j, score
			}
		}
		if best >= 0 {
			used[best] = true
			matched++
		}
	}

	union := len(ta) + len(tb) - matched
	if union == 0 {
		return 0
	}
	return float64(matched) / float64(union)
}
