package provider

import "fmt"

// ForName resolves a provider identifier from a client request into an
// adapter. ollamaHost only matters for the local ollama backend.
func ForName(name, ollamaHost string) (Adapter, error) {
	switch name {
	case "gemini", "":
		return NewGeminiAdapter(), nil
	case "groq":
		return NewGroqAdapter(), nil
	case "ollama":
		return NewOllamaAdapter(ollamaHost), nil
	case "ollama-cloud":
		return NewOllamaCloudAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// Names lists the supported provider identifiers.
func Names() []string {
	return []string{"gemini", "groq", "ollama", "ollama-cloud"}
}
