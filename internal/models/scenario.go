package models

type Mood string

const (
	MoodCalm        Mood = "calm"
	MoodFrustrated  Mood = "frustrated"
	MoodConfused    Mood = "confused"
	MoodAngry       Mood = "angry"
	MoodExcited     Mood = "excited"
	MoodSkeptical   Mood = "skeptical"
	MoodUrgent      Mood = "urgent"
	MoodAnxious     Mood = "anxious"
	MoodDiscouraged Mood = "discouraged"
)

func (m Mood) Valid() bool {
	switch m {
	case MoodCalm, MoodFrustrated, MoodConfused, MoodAngry, MoodExcited,
		MoodSkeptical, MoodUrgent, MoodAnxious, MoodDiscouraged:
		return true
	}
	return false
}

// ScenarioDefinition is immutable once loaded by the catalog.
type ScenarioDefinition struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	AvatarType      string   `json:"avatar_type"`
	CustomerPersona string   `json:"customer_persona"`
	CustomerMood    Mood     `json:"customer_mood"`
	Objectives      []string `json:"objectives"`
	Difficulty      string   `json:"difficulty"` // beginner|intermediate|advanced
	Tags            []string `json:"tags,omitempty"`
}
