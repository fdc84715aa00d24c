package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// wireResult mirrors the JSON shape the prompt instructs every model to
// return. Exercise ids are absent on the wire and assigned here.
type wireResult struct {
	Exercises []wireExercise `json:"exercises"`
	Sources   []Source       `json:"sources"`
}

type wireExercise struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	Steps           []string `json:"steps"`
	DurationMinutes int      `json:"duration_minutes"`
}

// recoveryStrategy attempts to extract parseable JSON from raw model output.
// Strategies are tried in order; ok=false means "not applicable, try the next
// one", a nil error with ok=true means candidate should be parsed.
type recoveryStrategy struct {
	name  string
	apply func(raw string) (candidate string, ok bool)
}

// Tried in order: the raw body as-is, then with Markdown code fences stripped,
// then the first JSON object/array substring. Bounded by design; no retries.
var recoveryStrategies = []recoveryStrategy{
	{name: "direct", apply: func(raw string) (string, bool) {
		return strings.TrimSpace(raw), true
	}},
	{name: "strip-fences", apply: stripCodeFences},
	{name: "extract-substring", apply: extractJSONSubstring},
}

// Normalize coerces raw model text into a Result, trying each recovery
// strategy in sequence. Every exercise gets a freshly generated id.
func Normalize(providerName, raw string) (*Result, error) {
	var lastErr error
	for _, strat := range recoveryStrategies {
		candidate, ok := strat.apply(raw)
		if !ok {
			continue
		}
		parsed, err := parseWire(candidate)
		if err != nil {
			lastErr = err
			continue
		}
		return parsed, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no recovery strategy applied")
	}
	return nil, &ParseError{Provider: providerName, Err: lastErr}
}

func parseWire(candidate string) (*Result, error) {
	var wire wireResult
	if err := json.Unmarshal([]byte(candidate), &wire); err != nil {
		// Some models return a bare exercises array instead of the wrapper
		// object.
		var bare []wireExercise
		if arrErr := json.Unmarshal([]byte(candidate), &bare); arrErr != nil {
			return nil, err
		}
		wire.Exercises = bare
	}
	if len(wire.Exercises) == 0 {
		return nil, fmt.Errorf("response contained no exercises")
	}

	result := &Result{
		Exercises: make([]Exercise, 0, len(wire.Exercises)),
		Sources:   wire.Sources,
	}
	for _, we := range wire.Exercises {
		result.Exercises = append(result.Exercises, Exercise{
			ID:              uuid.NewString(),
			Title:           we.Title,
			Description:     we.Description,
			Category:        normalizeCategory(we.Category),
			Steps:           we.Steps,
			DurationMinutes: we.DurationMinutes,
		})
	}
	return result, nil
}

// stripCodeFences unwraps ```json ... ``` (or bare ```) blocks.
func stripCodeFences(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	start := strings.Index(trimmed, "```")
	if start == -1 {
		return "", false
	}
	rest := trimmed[start+3:]
	// Drop an optional language tag on the opening fence line.
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine == "json" || firstLine == "JSON" || firstLine == "" {
			rest = rest[nl+1:]
		}
	}
	end := strings.LastIndex(rest, "```")
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// extractJSONSubstring recovers the outermost {...} or [...] span from
// surrounding prose.
func extractJSONSubstring(raw string) (string, bool) {
	objStart := strings.IndexByte(raw, '{')
	arrStart := strings.IndexByte(raw, '[')

	start := objStart
	closer := byte('}')
	if start == -1 || (arrStart != -1 && arrStart < objStart) {
		start = arrStart
		closer = ']'
	}
	if start == -1 {
		return "", false
	}
	end := strings.LastIndexByte(raw, closer)
	if end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// normalizeCategory maps free-form category text to the closed enum, falling
// back to Mindfulness for anything unrecognized rather than failing the parse.
func normalizeCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mindfulness":
		return CategoryMindfulness
	case "cognitive", "cbt":
		return CategoryCognitive
	case "somatic", "physical", "breathing":
		return CategorySomatic
	case "behavioral", "behavioural":
		return CategoryBehavioral
	case "grounding":
		return CategoryGrounding
	default:
		return CategoryMindfulness
	}
}
