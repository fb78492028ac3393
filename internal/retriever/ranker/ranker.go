package ranker

import (
	"sort"
)

// ScoredDoc is a candidate document position with its accumulated relevance.
type ScoredDoc struct {
	Position int     `json:"position"`
	Score    float64 `json:"score"`
}

// TermFrequency is the share of terms equal to term. Documents without terms
// have zero frequency for everything.
func TermFrequency(term string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	count := 0
	for _, t := range terms {
		if t == term {
			count++
		}
	}
	return float64(count) / float64(len(terms))
}

// Rank drops candidates scoring below threshold, orders the rest by score
// descending and then by position ascending, and keeps at most limit of them.
// A limit of zero or less yields no results.
func Rank(scores map[int]float64, threshold float64, limit int) []ScoredDoc {
	if limit <= 0 {
		return []ScoredDoc{}
	}
	result := make([]ScoredDoc, 0, len(scores))
	for pos, score := range scores {
		if score < threshold {
			continue
		}
		result = append(result, ScoredDoc{
			Position: pos,
			Score:    score,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].Position < result[j].Position
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}
