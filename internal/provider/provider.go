package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Exercise is the normalized unit every backend's reply is coerced into.
// IDs are generated locally at parse time; providers never supply them.
type Exercise struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Category        Category `json:"category"`
	Steps           []string `json:"steps"`
	DurationMinutes int      `json:"duration_minutes"`
}

// Category classifies an exercise by therapeutic approach.
type Category string

const (
	CategoryMindfulness Category = "Mindfulness"
	CategoryCognitive   Category = "Cognitive"
	CategorySomatic     Category = "Somatic"
	CategoryBehavioral  Category = "Behavioral"
	CategoryGrounding   Category = "Grounding"
)

// Source references material an exercise plan was grounded on, either a
// knowledge-base passage or a citation the model volunteered.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// Result is the normalized outcome of one generation call.
type Result struct {
	Exercises []Exercise `json:"exercises"`
	Sources   []Source   `json:"sources,omitempty"`
}

// Request is the provider-agnostic generation request. Adapters translate it
// into their backend's wire format.
type Request struct {
	Model             string
	APIKey            string
	Prompt            string
	SystemInstruction string
	Language          string
}

// Adapter is implemented once per LLM backend. Complete returns the raw model
// text; parsing and repair happen in the shared normalization layer so the
// recovery logic is not duplicated per provider.
type Adapter interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// HTTPError is a non-2xx reply from a provider. It always propagates to the
// caller; only transport-level failures degrade to fallback content.
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

// TransportError means the provider could not be reached at all (DNS failure,
// connection refused, timeout). Generation-style callers swallow it and serve
// fallback content instead.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s unreachable: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError means the provider replied but no recovery strategy could coerce
// the body into the expected JSON shape.
type ParseError struct {
	Provider string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse %s response: %v", e.Provider, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsTransport reports whether err represents pure connectivity loss. HTTP
// errors and parse errors are deliberately excluded: those stay visible to the
// caller, only network unreachability is hidden behind fallback content.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	return errors.As(err, &te)
}

// wrapTransport classifies an http.Client error. url.Error wraps every
// transport failure (including net.Error timeouts); anything else from the
// client is returned as-is.
func wrapTransport(providerName string, err error) error {
	if err == nil {
		return nil
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return &TransportError{Provider: providerName, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return &TransportError{Provider: providerName, Err: err}
	}
	return err
}
