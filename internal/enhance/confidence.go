package enhance

import "strings"

// Substring groups that nudge the heuristic score up. Each group adds
// 0.05 when any of its variants appears, case-sensitively.
var qualityIndicators = [][]string{
	{"step", "Step"},
	{"specific"},
	{"detailed"},
	{"example", "Example"},
	{"context", "Context"},
}

// confidenceScore is a crude length-and-keyword heuristic, not a model
// quality signal: 0.70 base, +0.10 for more than 50 characters, +0.05
// per indicator group, clamped at 0.95.
func confidenceScore(enhanced string) float64 {
	score := 0.70

	if len(enhanced) > 50 {
		score += 0.10
	}

	for _, group := range qualityIndicators {
		for _, variant := range group {
			if strings.Contains(enhanced, variant) {
				score += 0.05
				break
			}
		}
	}

	if score > 0.95 {
		score = 0.95
	}
	return score
}
