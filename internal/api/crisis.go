package api

import (
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Crisis screening runs over generate/journal input before the pipeline. It
// only ever adds a flag and helpline text to the response; it never blocks or
// alters the request itself.

type CrisisNotice struct {
	Detected bool   `json:"detected"`
	Message  string `json:"message,omitempty"`
}

// Phrases are matched as substrings of the normalized input; single keywords
// additionally tolerate one typo via edit distance.
var crisisPhrases = []string{
	"kill myself",
	"end my life",
	"end it all",
	"hurt myself",
	"self harm",
	"no reason to live",
	"better off dead",
	"want to die",
}

var crisisKeywords = []string{
	"suicide",
	"suicidal",
	"overdose",
}

// DetectCrisis screens free text for crisis language.
func DetectCrisis(input, language string) CrisisNotice {
	normalized := normalizeForScreening(input)

	matched := false
	for _, phrase := range crisisPhrases {
		if strings.Contains(normalized, phrase) {
			matched = true
			break
		}
	}
	if !matched {
		for _, token := range strings.Fields(normalized) {
			for _, keyword := range crisisKeywords {
				if token == keyword || (len(token) >= 6 && fuzzy.LevenshteinDistance(token, keyword) <= 1) {
					matched = true
					break
				}
			}
			if matched {
				break
			}
		}
	}

	if !matched {
		return CrisisNotice{}
	}
	return CrisisNotice{Detected: true, Message: crisisMessage(language)}
}

func normalizeForScreening(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range strings.ToLower(input) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func crisisMessage(language string) string {
	if msg, ok := crisisMessages[language]; ok {
		return msg
	}
	return crisisMessages["en"]
}

var crisisMessages = map[string]string{
	"en": "It sounds like you might be going through something very heavy right now. This app can't provide " +
		"crisis support, but you don't have to face this alone: please reach out to someone you trust, or " +
		"contact a crisis line such as 988 (US), Samaritans 116 123 (UK/IE), or your local emergency number.",
	"es": "Parece que podrías estar pasando por algo muy difícil ahora mismo. Esta aplicación no puede ofrecer " +
		"apoyo en crisis, pero no tienes que afrontarlo en soledad: habla con alguien de confianza o contacta " +
		"con una línea de ayuda como el 024 (España) o el número de emergencias local.",
	"de": "Es klingt, als würdest du gerade etwas sehr Schweres durchmachen. Diese App kann keine Krisenhilfe " +
		"leisten, aber du musst das nicht allein tragen: Sprich mit einer Person deines Vertrauens oder wende " +
		"dich an die Telefonseelsorge unter 0800 111 0 111 oder den örtlichen Notruf.",
}
