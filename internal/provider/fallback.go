package provider

import "github.com/google/uuid"

// FallbackResult returns the built-in offline exercise set in the requested
// display language. It is served only when a provider is unreachable at the
// network level, so connectivity loss never surfaces as a hard failure.
func FallbackResult(language string) *Result {
	set, ok := fallbackSets[language]
	if !ok {
		set = fallbackSets["en"]
	}
	exercises := make([]Exercise, len(set))
	for i, ex := range set {
		ex.ID = uuid.NewString()
		exercises[i] = ex
	}
	return &Result{Exercises: exercises}
}

// FallbackReflection returns the canned journal reflection for the requested
// language, used when the analysis call cannot reach the provider.
func FallbackReflection(language string) string {
	if text, ok := fallbackReflections[language]; ok {
		return text
	}
	return fallbackReflections["en"]
}

var fallbackSets = map[string][]Exercise{
	"en": {
		{
			Title:       "Box Breathing",
			Description: "A steady breathing rhythm that calms the nervous system in a few minutes.",
			Category:    CategorySomatic,
			Steps: []string{
				"Sit comfortably and exhale fully.",
				"Inhale through your nose for a count of 4.",
				"Hold your breath for a count of 4.",
				"Exhale slowly for a count of 4, then hold for 4.",
				"Repeat the cycle for 3 minutes.",
			},
			DurationMinutes: 3,
		},
		{
			Title:       "5-4-3-2-1 Grounding",
			Description: "An attention anchor that pulls you out of anxious thought spirals and into the present.",
			Category:    CategoryGrounding,
			Steps: []string{
				"Name five things you can see around you.",
				"Name four things you can physically feel.",
				"Name three things you can hear.",
				"Name two things you can smell.",
				"Name one thing you can taste.",
			},
			DurationMinutes: 5,
		},
	},
	"es": {
		{
			Title:       "Respiración cuadrada",
			Description: "Un ritmo de respiración constante que calma el sistema nervioso en pocos minutos.",
			Category:    CategorySomatic,
			Steps: []string{
				"Siéntate cómodamente y exhala por completo.",
				"Inhala por la nariz contando hasta 4.",
				"Mantén la respiración contando hasta 4.",
				"Exhala lentamente contando hasta 4 y mantén otros 4.",
				"Repite el ciclo durante 3 minutos.",
			},
			DurationMinutes: 3,
		},
		{
			Title:       "Anclaje 5-4-3-2-1",
			Description: "Un ancla de atención que te saca de la espiral de pensamientos ansiosos y te trae al presente.",
			Category:    CategoryGrounding,
			Steps: []string{
				"Nombra cinco cosas que puedas ver a tu alrededor.",
				"Nombra cuatro cosas que puedas sentir físicamente.",
				"Nombra tres cosas que puedas oír.",
				"Nombra dos cosas que puedas oler.",
				"Nombra una cosa que puedas saborear.",
			},
			DurationMinutes: 5,
		},
	},
	"de": {
		{
			Title:       "Box-Atmung",
			Description: "Ein gleichmäßiger Atemrhythmus, der das Nervensystem in wenigen Minuten beruhigt.",
			Category:    CategorySomatic,
			Steps: []string{
				"Setz dich bequem hin und atme vollständig aus.",
				"Atme durch die Nase ein und zähle dabei bis 4.",
				"Halte den Atem an und zähle bis 4.",
				"Atme langsam aus, zähle bis 4, und halte erneut 4 Zähler.",
				"Wiederhole den Zyklus für 3 Minuten.",
			},
			DurationMinutes: 3,
		},
		{
			Title:       "5-4-3-2-1-Erdung",
			Description: "Ein Aufmerksamkeitsanker, der aus der Gedankenspirale zurück in die Gegenwart führt.",
			Category:    CategoryGrounding,
			Steps: []string{
				"Nenne fünf Dinge, die du sehen kannst.",
				"Nenne vier Dinge, die du körperlich spüren kannst.",
				"Nenne drei Dinge, die du hören kannst.",
				"Nenne zwei Dinge, die du riechen kannst.",
				"Nenne eine Sache, die du schmecken kannst.",
			},
			DurationMinutes: 5,
		},
	},
}

var fallbackReflections = map[string]string{
	"en": "Thank you for writing this down. Putting feelings into words is itself a proven way to take " +
		"the edge off them. I couldn't reach the analysis service just now, so take a moment yourself: " +
		"re-read what you wrote, notice the strongest feeling in it, and ask what that feeling is asking " +
		"for. Your entry is saved and you can revisit it any time.",
	"es": "Gracias por escribir esto. Poner los sentimientos en palabras es, por sí solo, una forma " +
		"probada de suavizarlos. Ahora mismo no pude conectar con el servicio de análisis, así que tómate " +
		"un momento: relee lo que escribiste, identifica el sentimiento más fuerte y pregúntate qué te " +
		"está pidiendo. Tu entrada queda guardada y puedes volver a ella cuando quieras.",
	"de": "Danke, dass du das aufgeschrieben hast. Gefühle in Worte zu fassen ist für sich genommen ein " +
		"bewährter Weg, ihnen die Schärfe zu nehmen. Der Analysedienst war gerade nicht erreichbar — nimm " +
		"dir daher selbst einen Moment: Lies deinen Eintrag noch einmal, finde das stärkste Gefühl darin " +
		"und frage dich, was es braucht. Dein Eintrag ist gespeichert, du kannst jederzeit zurückkehren.",
}
