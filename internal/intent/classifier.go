package intent

import (
	"math"
	"strings"
)

const (
	// DefaultFloor is the score below which the classifier answers
	// Conversation regardless of the best match.
	DefaultFloor = 0.35
	// DefaultHitWeight is the score contributed by one matched keyword.
	DefaultHitWeight = 0.5
)

// Classifier scores text against keyword sets using substring matching.
// It is stateless after construction and safe for concurrent use.
type Classifier struct {
	keywords  Keywords
	floor     float64
	hitWeight float64
}

type Option func(*Classifier)

func WithFloor(floor float64) Option {
	return func(c *Classifier) { c.floor = floor }
}

func WithHitWeight(w float64) Option {
	return func(c *Classifier) { c.hitWeight = w }
}

func WithKeywords(k Keywords) Option {
	return func(c *Classifier) { c.keywords = k }
}

func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		keywords:  DefaultKeywords(),
		floor:     DefaultFloor,
		hitWeight: DefaultHitWeight,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Floor returns the configured low-confidence floor.
func (c *Classifier) Floor() float64 { return c.floor }

// Parse returns the best intent for text and its confidence in [0,1].
func (c *Classifier) Parse(text string) Classification {
	if strings.TrimSpace(text) == "" {
		return Classification{Intent: Conversation}
	}
	lower := strings.ToLower(text)

	best := Classification{Intent: Conversation}
	for _, rule := range c.keywords {
		score := c.score(lower, rule.Words)
		// strict comparison keeps the earliest intent on ties
		if score > best.Confidence {
			best = Classification{Intent: rule.Intent, Confidence: score}
		}
	}

	if best.Confidence < c.floor {
		return Classification{Intent: Conversation, Confidence: best.Confidence}
	}
	return best
}

func (c *Classifier) score(text string, words []string) float64 {
	hits := 0
	for _, w := range words {
		if w != "" && strings.Contains(text, strings.ToLower(w)) {
			hits++
		}
	}
	return math.Min(1.0, float64(hits)*c.hitWeight)
}
