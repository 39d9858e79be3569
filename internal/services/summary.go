package services

import (
	"math"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/providers/scoring"
)

func buildSummary(s *models.Session, sc *models.ScenarioDefinition, now time.Time) models.SessionSummary {
	sum := models.SessionSummary{
		ObjectivesTouched: []string{},
		CompletedAt:       now.UTC(),
	}
	total := 0
	for i := range s.Messages {
		m := &s.Messages[i]
		if m.Role != models.RoleAvatar {
			continue
		}
		sum.TurnCount++
		total += m.EffectiveScore()
		if m.Correction != nil {
			sum.CorrectionCount++
		}
	}
	if sum.TurnCount > 0 {
		sum.AverageQuality = math.Round(float64(total)/float64(sum.TurnCount)*10) / 10
	}

	if sc != nil {
		for _, o := range sc.Objectives {
			for i := range s.Messages {
				m := &s.Messages[i]
				if m.Role == models.RoleAvatar && scoring.ObjectiveTouched(o, m.EffectiveContent()) {
					sum.ObjectivesTouched = append(sum.ObjectivesTouched, o)
					break
				}
			}
		}
	}
	return sum
}
