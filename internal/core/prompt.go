package core

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"calmcoach.app/backend/internal/knowledge"
	"calmcoach.app/backend/internal/store"
)

const (
	// Ratings at or above helpfulThreshold feed the "prioritize similar"
	// line; at or below unhelpfulThreshold the "avoid similar" line. A 3
	// appears in neither.
	helpfulThreshold   = 4
	unhelpfulThreshold = 2

	exerciseSystemInstruction = "You are a compassionate, evidence-informed anxiety-relief coach. " +
		"You design short, practical coping exercises tailored to what the user describes. " +
		"You are not a therapist and never diagnose; for severe distress you gently recommend professional help. " +
		"You respond only with the JSON object you are asked for, with no surrounding prose."

	reflectionSystemInstruction = "You are a warm, supportive journaling companion. " +
		"You read a journal entry and reply with a short, validating reflection (3-5 sentences) that names " +
		"the feelings present, highlights one strength or resource in the entry, and offers one gentle " +
		"question or suggestion. You never diagnose and never moralize."
)

// PromptInput carries everything the builder may embed. Consent gates how
// much of the profile is actually used.
type PromptInput struct {
	Symptoms string
	Chunks   []knowledge.Chunk
	Consent  store.ConsentLevel
	Profile  *store.Profile
	Feedback []store.FeedbackEntry
	Language string
}

// ExerciseSystemInstruction returns the behavior contract sent alongside the
// generation prompt.
func ExerciseSystemInstruction() string { return exerciseSystemInstruction }

// ReflectionSystemInstruction returns the behavior contract for journal
// analysis.
func ReflectionSystemInstruction() string { return reflectionSystemInstruction }

// BuildExercisePrompt assembles the provider-agnostic instruction string:
// retrieved knowledge with priority wording, the required output language and
// JSON schema, then consent-gated personalization and feedback steering. The
// builder performs no validation of its own output; parsing downstream bears
// that burden.
func BuildExercisePrompt(in PromptInput) string {
	var b strings.Builder

	b.WriteString("The user describes their current state as: \"")
	b.WriteString(in.Symptoms)
	b.WriteString("\"\n\n")

	if len(in.Chunks) > 0 {
		b.WriteString("Use the following knowledge base passages as your primary source of truth. ")
		b.WriteString("Treat them as more authoritative than your general knowledge and ground every exercise in them where possible:\n\n")
		for _, chunk := range in.Chunks {
			b.WriteString("--- PASSAGE ")
			b.WriteString(chunk.ID)
			b.WriteString(" ---\n")
			b.WriteString(chunk.Content)
			b.WriteString("\n")
		}
		b.WriteString("--- END OF PASSAGES ---\n\n")
	}

	language := in.Language
	if language == "" {
		language = "en"
	}
	fmt.Fprintf(&b, "Write every user-facing string (titles, descriptions, steps) in the language with ISO code %q.\n\n", language)

	b.WriteString("Propose 3 to 5 coping exercises. Respond with exactly one JSON object matching this schema and nothing else:\n")
	b.WriteString(`{
  "exercises": [
    {
      "title": "string",
      "description": "string, 1-3 sentences",
      "category": "one of: Mindfulness | Cognitive | Somatic | Behavioral | Grounding",
      "steps": ["string", "..."],
      "duration_minutes": 5
    }
  ],
  "sources": [
    { "title": "string", "url": "string, optional" }
  ]
}
`)
	b.WriteString("The sources array is optional; include it only when you drew on identifiable material.\n")

	writePersonalization(&b, in)
	writeFeedback(&b, in.Feedback)

	return b.String()
}

// writePersonalization appends one natural-language hint per present profile
// field, but only when consent unlocks it. Diagnosed conditions additionally
// require complete consent and carry a safety caveat.
func writePersonalization(b *strings.Builder, in PromptInput) {
	if in.Profile == nil || !in.Consent.AllowsPersonalization() {
		return
	}
	p := in.Profile

	b.WriteString("\nPersonalize the exercises using what the user has shared about themselves:\n")
	if p.Age != nil {
		fmt.Fprintf(b, "- The user is %d years old; match tone and examples to that age.\n", *p.Age)
	}
	if p.Location != nil {
		fmt.Fprintf(b, "- The user lives in %s; you may reference the local setting.\n", *p.Location)
	}
	if p.SleepHours != nil {
		fmt.Fprintf(b, "- The user sleeps about %.1f hours per night; factor sleep into your suggestions.\n", *p.SleepHours)
	}
	if p.CaffeineIntake != nil {
		fmt.Fprintf(b, "- Caffeine intake: %s.\n", *p.CaffeineIntake)
	}
	if p.WorkEnvironment != nil {
		fmt.Fprintf(b, "- Work environment: %s; prefer exercises practical in that setting.\n", *p.WorkEnvironment)
	}
	if p.NatureAccess != nil {
		fmt.Fprintf(b, "- Access to nature: %s.\n", *p.NatureAccess)
	}
	if p.ActivityLevel != nil {
		fmt.Fprintf(b, "- Physical activity level: %s.\n", *p.ActivityLevel)
	}
	if len(p.CopingStyles) > 0 {
		fmt.Fprintf(b, "- Coping styles that have worked before: %s.\n", strings.Join(p.CopingStyles, ", "))
	}
	if p.LearningModality != nil {
		fmt.Fprintf(b, "- Preferred learning modality: %s; shape the steps accordingly.\n", *p.LearningModality)
	}

	if in.Consent == store.ConsentComplete && p.DiagnosedConditions != nil {
		fmt.Fprintf(b, "- The user reports diagnosed conditions: %s. Be extra careful: avoid anything "+
			"contraindicated for these conditions and remind the user that these exercises complement, "+
			"never replace, professional treatment.\n", *p.DiagnosedConditions)
	}
}

// writeFeedback surfaces rating history as two mutually exclusive steering
// lines. Neutral ratings (3) influence neither line.
func writeFeedback(b *strings.Builder, feedback []store.FeedbackEntry) {
	if len(feedback) == 0 {
		return
	}

	helpful := lo.FilterMap(feedback, func(f store.FeedbackEntry, _ int) (string, bool) {
		return f.Title, f.Rating >= helpfulThreshold
	})
	unhelpful := lo.FilterMap(feedback, func(f store.FeedbackEntry, _ int) (string, bool) {
		return f.Title, f.Rating <= unhelpfulThreshold
	})

	if len(helpful) > 0 {
		fmt.Fprintf(b, "\nThe user previously found these exercises helpful; prioritize similar ones: %s.\n",
			strings.Join(helpful, "; "))
	}
	if len(unhelpful) > 0 {
		fmt.Fprintf(b, "\nThe user previously found these exercises unhelpful; avoid similar ones: %s.\n",
			strings.Join(unhelpful, "; "))
	}
}

// BuildReflectionPrompt assembles the journal-analysis prompt.
func BuildReflectionPrompt(content, language string) string {
	if language == "" {
		language = "en"
	}
	var b strings.Builder
	b.WriteString("Here is the user's journal entry:\n\n")
	b.WriteString(content)
	fmt.Fprintf(&b, "\n\nReply with your reflection as plain text, in the language with ISO code %q.", language)
	return b.String()
}
