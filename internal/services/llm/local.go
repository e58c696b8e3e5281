package llm

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"news-temperature/internal/failure"
)

const (
	defaultSummaryRunes       = 300
	defaultNeutralBand        = 0.2
	defaultNeutralConfidence  = 0.5
	defaultEvidenceSaturation = 3
)

// LexiconModel is the artifact loaded by the local backend.
type LexiconModel struct {
	Name               string             `yaml:"name"`
	Version            string             `yaml:"version"`
	SummaryRunes       int                `yaml:"summary_runes"`
	NeutralBand        float64            `yaml:"neutral_band"`
	NeutralConfidence  float64            `yaml:"neutral_confidence"`
	EvidenceSaturation float64            `yaml:"evidence_saturation"`
	Positive           map[string]float64 `yaml:"positive"`
	Negative           map[string]float64 `yaml:"negative"`
}

// LocalBackend runs lexicon scoring and extractive summaries in process.
// The model state is not safe for parallel use, so every call holds mu.
type LocalBackend struct {
	mu       sync.Mutex
	model    LexiconModel
	positive []weightedTerm
	negative []weightedTerm
}

// LoadLocalBackend reads a lexicon artifact. Any failure is a
// ModelLoadError.
func LoadLocalBackend(path string) (*LocalBackend, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.New(failure.ModelLoadError, "load local model", err)
	}

	var model LexiconModel
	if err := yaml.Unmarshal(raw, &model); err != nil {
		return nil, failure.New(failure.ModelLoadError, "parse local model", err)
	}
	return NewLocalBackend(model)
}

// NewLocalBackend validates model and fills defaults.
func NewLocalBackend(model LexiconModel) (*LocalBackend, error) {
	if len(model.Positive) == 0 || len(model.Negative) == 0 {
		return nil, failure.New(failure.ModelLoadError, "init local model",
			errors.New("lexicon needs both positive and negative terms"))
	}
	if model.SummaryRunes <= 0 {
		model.SummaryRunes = defaultSummaryRunes
	}
	if model.NeutralBand <= 0 {
		model.NeutralBand = defaultNeutralBand
	}
	if model.NeutralConfidence <= 0 {
		model.NeutralConfidence = defaultNeutralConfidence
	}
	if model.EvidenceSaturation <= 0 {
		model.EvidenceSaturation = defaultEvidenceSaturation
	}
	return &LocalBackend{
		model:    model,
		positive: sortedTerms(model.Positive),
		negative: sortedTerms(model.Negative),
	}, nil
}

func (b *LocalBackend) Name() string {
	if b.model.Name != "" {
		return "local:" + b.model.Name
	}
	return "local"
}

func (b *LocalBackend) Capabilities() []Capability {
	return AllCapabilities
}

func (b *LocalBackend) Summarize(ctx context.Context, text string) (string, error) {
	if Unusable(text) {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", failure.New(failure.Timeout, "local summarize", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return ExtractiveSummary(text, b.model.SummaryRunes), nil
}

// ClassifySentiment weighs lexicon hits. The net balance picks the label;
// confidence grows with the balance and with the amount of evidence.
func (b *LocalBackend) ClassifySentiment(ctx context.Context, text string) (Label, float64, error) {
	if Unusable(text) {
		return Neutral, 0, nil
	}
	if err := ctx.Err(); err != nil {
		return Neutral, 0, failure.New(failure.Timeout, "local classify", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	lower := strings.ToLower(text)
	pos := weightedHits(lower, b.positive)
	neg := weightedHits(lower, b.negative)
	total := pos + neg
	if total == 0 {
		return Neutral, b.model.NeutralConfidence, nil
	}

	net := (pos - neg) / total
	evidence := min(total/b.model.EvidenceSaturation, 1)

	switch {
	case net > b.model.NeutralBand:
		return Positive, clamp01(net * evidence), nil
	case net < -b.model.NeutralBand:
		return Negative, clamp01(-net * evidence), nil
	}
	return Neutral, clamp01((1 - abs(net)) * evidence), nil
}

// weightedTerm is one lexicon entry. Terms are kept sorted so hit sums
// are added in the same order on every call.
type weightedTerm struct {
	term   string
	weight float64
}

func weightedHits(text string, lexicon []weightedTerm) float64 {
	var sum float64
	for _, t := range lexicon {
		if n := strings.Count(text, t.term); n > 0 {
			sum += float64(n) * t.weight
		}
	}
	return sum
}

func sortedTerms(m map[string]float64) []weightedTerm {
	terms := make([]weightedTerm, 0, len(m))
	for term, weight := range m {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		terms = append(terms, weightedTerm{term: term, weight: weight})
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].term < terms[j].term })
	return terms
}

// ExtractiveSummary trims text to maxRunes, preferring to end on sentence
// punctuation found past half the limit, then on a space past 70%, else
// appending an ellipsis.
func ExtractiveSummary(text string, maxRunes int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}

	cut := runes[:maxRunes]
	if p := lastIndexAny(cut, ".!?。！？"); p > maxRunes/2 {
		return string(cut[:p+1])
	}

	if s := lastIndexAny(cut, " "); float64(s) > float64(maxRunes)*0.7 {
		head := cut[:s]
		if p := lastIndexAny(head, ".!?。！？"); float64(p) > float64(len(head))*0.5 {
			return string(head[:p+1])
		}
		return string(head) + "..."
	}
	return string(cut) + "..."
}

func lastIndexAny(runes []rune, chars string) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if strings.ContainsRune(chars, runes[i]) {
			return i
		}
	}
	return -1
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
