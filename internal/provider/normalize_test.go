package provider

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormedResponse = `{
  "exercises": [
    {
      "title": "Box Breathing",
      "description": "Slow, square-shaped breathing.",
      "category": "Somatic",
      "steps": ["Inhale for 4", "Hold for 4", "Exhale for 4", "Hold for 4"],
      "duration_minutes": 3
    },
    {
      "title": "Thought Record",
      "description": "Write the thought down and test it.",
      "category": "Cognitive",
      "steps": ["Write the thought", "Rate your belief", "Find the evidence"],
      "duration_minutes": 10
    },
    {
      "title": "5-4-3-2-1",
      "description": "Sensory grounding.",
      "category": "Grounding",
      "steps": ["Five things you see", "Four you feel"],
      "duration_minutes": 5
    }
  ],
  "sources": [
    { "title": "Sleep hygiene basics", "url": "https://example.org/sleep" }
  ]
}`

func TestNormalizeWellFormedRoundTrip(t *testing.T) {
	// Sanity-check the fixture matches the documented schema.
	var schemaCheck map[string]any
	require.NoError(t, json.Unmarshal([]byte(wellFormedResponse), &schemaCheck))

	result, err := Normalize("gemini", wellFormedResponse)
	require.NoError(t, err)

	require.Len(t, result.Exercises, 3)
	require.Len(t, result.Sources, 1)

	seen := map[string]bool{}
	for _, ex := range result.Exercises {
		require.NotEmpty(t, ex.ID, "every exercise gets a generated id")
		assert.False(t, seen[ex.ID], "ids must be distinct")
		seen[ex.ID] = true
	}

	assert.Equal(t, "Box Breathing", result.Exercises[0].Title)
	assert.Equal(t, CategorySomatic, result.Exercises[0].Category)
	assert.Equal(t, CategoryCognitive, result.Exercises[1].Category)
	assert.Equal(t, 5, result.Exercises[2].DurationMinutes)
}

func TestNormalizeStripsMarkdownFences(t *testing.T) {
	fenced := "```json\n" + wellFormedResponse + "\n```"

	result, err := Normalize("groq", fenced)
	require.NoError(t, err)
	assert.Len(t, result.Exercises, 3)
}

func TestNormalizeStripsBareFences(t *testing.T) {
	fenced := "```\n" + wellFormedResponse + "\n```"

	result, err := Normalize("groq", fenced)
	require.NoError(t, err)
	assert.Len(t, result.Exercises, 3)
}

func TestNormalizeExtractsObjectFromProse(t *testing.T) {
	chatty := "Sure! Here is your personalized plan:\n\n" + wellFormedResponse + "\n\nHope this helps."

	result, err := Normalize("ollama", chatty)
	require.NoError(t, err)
	assert.Len(t, result.Exercises, 3)
}

func TestNormalizeAcceptsBareArray(t *testing.T) {
	bare := `[
	  {"title": "Walk", "description": "Short walk.", "category": "Behavioral", "steps": ["Go outside"], "duration_minutes": 15}
	]`

	result, err := Normalize("ollama", bare)
	require.NoError(t, err)
	require.Len(t, result.Exercises, 1)
	assert.Equal(t, CategoryBehavioral, result.Exercises[0].Category)
}

func TestNormalizeUnknownCategoryDefaults(t *testing.T) {
	raw := `{"exercises": [{"title": "X", "description": "Y", "category": "Esoteric", "steps": [], "duration_minutes": 1}]}`

	result, err := Normalize("gemini", raw)
	require.NoError(t, err)
	assert.Equal(t, CategoryMindfulness, result.Exercises[0].Category)
}

func TestNormalizeUnrecoverableInputFails(t *testing.T) {
	for _, raw := range []string{
		"I'm sorry, I can't help with that.",
		"",
		`{"exercises": []}`,
	} {
		_, err := Normalize("gemini", raw)
		require.Error(t, err, "input %q", raw)

		var parseErr *ParseError
		assert.ErrorAs(t, err, &parseErr)
	}
}
