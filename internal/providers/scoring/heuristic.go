package scoring

import (
	"context"
	"strings"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
)

var empathyMarkers = []string{
	"understand", "sorry", "worr", "feel", "hear you", "concern", "reassur", "it's okay", "completely normal",
}

// Heuristic scores deterministically from length, empathy, engagement and
// objective coverage. It never fails.
type Heuristic struct{}

func (Heuristic) Score(_ context.Context, candidate string, sc Context) (int, error) {
	return heuristicScore(candidate, sc), nil
}

func heuristicScore(candidate string, sc Context) int {
	text := strings.TrimSpace(candidate)
	if text == "" {
		return 0
	}
	lower := strings.ToLower(text)
	score := 50

	words := len(strings.Fields(text))
	switch {
	case words < 6:
		score -= 20
	case words <= 120:
		score += 15
	default:
		score -= 5
	}

	empathy := 0
	for _, m := range empathyMarkers {
		if strings.Contains(lower, m) {
			empathy += 8
		}
	}
	if empathy > 16 {
		empathy = 16
	}
	// upset customers need it more
	switch sc.CustomerMood {
	case models.MoodAnxious, models.MoodFrustrated, models.MoodAngry, models.MoodDiscouraged, models.MoodUrgent:
		if empathy == 0 {
			score -= 10
		}
	}
	score += empathy

	if strings.Contains(text, "?") {
		score += 5
	}
	if strings.Count(text, "!") > 2 {
		score -= 5
	}

	if len(sc.Objectives) > 0 {
		touched := 0
		for _, o := range sc.Objectives {
			if ObjectiveTouched(o, text) {
				touched++
			}
		}
		score += touched * 15 / len(sc.Objectives)
	}
	return Clamp(score)
}
