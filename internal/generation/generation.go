// Package generation wraps the two text-generation providers behind one
// resilient interface: a low-temperature "knowledge" provider for clinical
// plan synthesis and a warmer "empathy" provider for the delivered
// phrasing. Provider failure is never fatal; the router degrades to a
// deterministic fallback so the pipeline cannot block on an outage.
package generation

import "context"

// Message is one role-tagged chat message.
type Message struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

// Provider is a single text-generation backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, messages []Message, temperature float64, maxTokens int) (string, error)
}

// Source tells callers whether a result came from a live provider or the
// deterministic fallback.
type Source string

const (
	SourceProvider Source = "provider"
	SourceFallback Source = "fallback"
)

// Result carries the generated text plus its provenance. Err holds the
// last provider error when the fallback was used.
type Result struct {
	Text     string
	Source   Source
	Provider string
	Err      error
}

// lastUserContent returns the content of the most recent user message.
func lastUserContent(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
