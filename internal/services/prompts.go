package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/providers/llm"
)

const retryNote = "\n\nThe previous attempt did not produce a usable answer. Reply with the text only, briefly."

func writeTranscript(b *strings.Builder, msgs []models.Message) {
	if len(msgs) == 0 {
		b.WriteString("(no messages yet)\n")
		return
	}
	for _, m := range msgs {
		who := "Customer"
		if m.Role == models.RoleAvatar {
			who = "Avatar"
		}
		fmt.Fprintf(b, "%s: %s\n", who, m.EffectiveContent())
	}
}

func withRetryNote(prompt string, attempt int) string {
	if attempt == 0 {
		return prompt
	}
	return prompt + retryNote
}

func customerTurnPrompt(sc *models.ScenarioDefinition, msgs []models.Message) promptBuilder {
	system := fmt.Sprintf(
		"You role-play a customer in a training simulation. Persona: %s. Current mood: %s. "+
			"Stay in character, speak in the first person, and write one short conversational turn.",
		sc.CustomerPersona, sc.CustomerMood)

	var b strings.Builder
	fmt.Fprintf(&b, "Scenario: %s\n\nConversation so far:\n", sc.Name)
	writeTranscript(&b, msgs)
	if len(msgs) == 0 {
		b.WriteString("\nOpen the conversation with your concern.")
	} else {
		b.WriteString("\nWrite the customer's next message.")
	}
	prompt := b.String()

	return func(attempt int) (string, llm.GenerationContext) {
		return withRetryNote(prompt, attempt), llm.GenerationContext{
			System:      system,
			Purpose:     llm.PurposeCustomerTurn,
			Temperature: 0.9,
		}
	}
}

func avatarTurnPrompt(sc *models.ScenarioDefinition, msgs []models.Message, customerUtterance string) promptBuilder {
	system := fmt.Sprintf(
		"You are the %s avatar. Reply to the customer with empathy and accurate, practical guidance. "+
			"Keep it under 120 words.", sc.AvatarType)

	var b strings.Builder
	fmt.Fprintf(&b, "Scenario: %s\nCustomer persona: %s (mood: %s)\nObjectives:\n", sc.Name, sc.CustomerPersona, sc.CustomerMood)
	for _, o := range sc.Objectives {
		b.WriteString("- " + o + "\n")
	}
	b.WriteString("\nConversation so far:\n")
	writeTranscript(&b, msgs)
	fmt.Fprintf(&b, "Customer: %s\n\nWrite the avatar's reply.", customerUtterance)
	prompt := b.String()

	return func(attempt int) (string, llm.GenerationContext) {
		return withRetryNote(prompt, attempt), llm.GenerationContext{
			System:      system,
			Purpose:     llm.PurposeAvatarTurn,
			Temperature: 0.7,
		}
	}
}

func choicesPrompt(sc *models.ScenarioDefinition, customerUtterance, avatarReply string) promptBuilder {
	prompt := fmt.Sprintf(
		"A %s customer said: %q\nThe avatar replied: %q\n\n"+
			"List 3 short replies the customer could give next, one per line, first person, no numbering.",
		sc.CustomerMood, customerUtterance, avatarReply)

	return func(attempt int) (string, llm.GenerationContext) {
		return withRetryNote(prompt, attempt), llm.GenerationContext{Purpose: llm.PurposeChoices}
	}
}

func revisionPrompt(sc *models.ScenarioDefinition, before []models.Message, original, comment string) promptBuilder {
	system := fmt.Sprintf("You revise replies of the %s avatar following reviewer feedback. Return only the improved reply.", sc.AvatarType)

	var b strings.Builder
	fmt.Fprintf(&b, "Scenario: %s\n\nConversation before the reply:\n", sc.Name)
	writeTranscript(&b, before)
	fmt.Fprintf(&b, "\nOriginal reply:\n%s\n\nReviewer feedback:\n%s\n\nRevise the reply.", original, comment)
	prompt := b.String()

	return func(attempt int) (string, llm.GenerationContext) {
		return withRetryNote(prompt, attempt), llm.GenerationContext{
			System:      system,
			Purpose:     llm.PurposeRevision,
			Temperature: 0.4,
		}
	}
}

var listMarker = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s*`)

// parseChoices turns a line-per-choice answer into 2..4 distinct options,
// or nil when fewer than two survive.
func parseChoices(out string) []string {
	seen := make(map[string]struct{})
	var choices []string
	for _, line := range strings.Split(out, "\n") {
		line = listMarker.ReplaceAllString(strings.TrimSpace(line), "")
		line = strings.Trim(line, `"' `)
		if line == "" {
			continue
		}
		key := strings.ToLower(line)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		choices = append(choices, line)
		if len(choices) == 4 {
			break
		}
	}
	if len(choices) < 2 {
		return nil
	}
	return choices
}
