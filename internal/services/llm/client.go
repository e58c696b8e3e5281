package llm

import (
	"context"
	"strings"
	"unicode/utf8"
)

// Label is a sentiment judgment.
type Label string

const (
	Positive Label = "positive"
	Neutral  Label = "neutral"
	Negative Label = "negative"
)

// Score maps a label onto the temperature scale.
func (l Label) Score() float64 {
	switch l {
	case Positive:
		return 1
	case Negative:
		return -1
	}
	return 0
}

// Capability names an operation a backend can serve.
type Capability string

const (
	CapSummarize Capability = "summarize"
	CapSentiment Capability = "classify_sentiment"
)

// AllCapabilities is what the per-article processor needs.
var AllCapabilities = []Capability{CapSummarize, CapSentiment}

// Backend is a sentiment and summarization provider. Implementations must
// return Neutral with confidence 0 and an empty summary for Unusable input
// instead of an error.
type Backend interface {
	Name() string
	Capabilities() []Capability

	// Summarize condenses an article body.
	Summarize(ctx context.Context, text string) (string, error)

	// ClassifySentiment labels an article body with a confidence in [0,1].
	ClassifySentiment(ctx context.Context, text string) (Label, float64, error)
}

// Supports reports whether b advertises every capability in caps.
func Supports(b Backend, caps []Capability) bool {
	have := make(map[Capability]bool, len(b.Capabilities()))
	for _, c := range b.Capabilities() {
		have[c] = true
	}
	for _, c := range caps {
		if !have[c] {
			return false
		}
	}
	return true
}

// Unusable reports whether text carries nothing a backend can read: it is
// blank or not valid UTF-8.
func Unusable(text string) bool {
	return !utf8.ValidString(text) || strings.TrimSpace(text) == ""
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
