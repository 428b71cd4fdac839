package orchestrator

import (
	"strings"

	"github.com/fableforge/storyforge/ledger"
)

// Mood keywords that push a request toward the high-complexity tier.
var complexMoods = []string{"psychological", "philosophical", "experimental", "surreal"}

// Classify scores a request into a complexity level using a fixed
// scoring table over premise length, mood keywords and character
// description keywords.
func Classify(premise, mood, characters string) ledger.Complexity {
	score := 0

	premiseWords := len(strings.Fields(premise))
	switch {
	case premiseWords > 20:
		score += 2
	case premiseWords > 10:
		score++
	}

	moodLower := strings.ToLower(mood)
	for _, m := range complexMoods {
		if strings.Contains(moodLower, m) {
			score += 2
			break
		}
	}

	charLower := strings.ToLower(characters)
	if strings.Contains(charLower, "complex") || strings.Contains(charLower, "detailed") {
		score++
	}

	switch {
	case score >= 4:
		return ledger.High
	case score >= 2:
		return ledger.Medium
	default:
		return ledger.Simple
	}
}
