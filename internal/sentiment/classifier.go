package sentiment

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jadonwu-dev/axwise/pkg/logging"
)

var classifierTracer = otel.Tracer("axwise/sentiment-classifier")

// Bucket labels used throughout the package.
const (
	bucketPositive = "positive"
	bucketNeutral  = "neutral"
	bucketNegative = "negative"
)

// Buckets is the positive/neutral/negative partition of extracted interview
// statements. All three slices are always present; a bucket with no
// qualifying statements holds a single placeholder string.
type Buckets struct {
	Positive []string `json:"positive"`
	Neutral  []string `json:"neutral"`
	Negative []string `json:"negative"`
}

// Config carries the keyword tables and thresholds the classifier runs with.
// The cutoffs were hand-tuned against sample transcripts and are exposed here
// so they can be adjusted without touching the algorithm.
type Config struct {
	PositiveKeywords []string
	NegativeKeywords []string
	ContextPhrases   []string

	// MinPairLen is the minimum answer length considered in the
	// conversation-pair pass.
	MinPairLen int
	// MinSentenceLen is the minimum length considered in the sentence-level
	// fallback pass.
	MinSentenceLen int
	// NeutralMinLen is the length above which a statement with no keyword
	// hits is still kept as neutral.
	NeutralMinLen int
	// ContextMaxLen is the length below which a context-dependent phrase
	// without an associated question is discarded as unreliable.
	ContextMaxLen int
	// FallbackAfter triggers the sentence-level pass when the pair pass
	// produced fewer total statements than this.
	FallbackAfter int
	// BucketCap truncates each bucket to its first N entries.
	BucketCap int
}

// DefaultConfig returns the tuned configuration used in production.
func DefaultConfig() Config {
	return Config{
		PositiveKeywords: defaultPositiveKeywords(),
		NegativeKeywords: defaultNegativeKeywords(),
		ContextPhrases:   defaultContextPhrases(),
		MinPairLen:       10,
		MinSentenceLen:   20,
		NeutralMinLen:    40,
		ContextMaxLen:    60,
		FallbackAfter:    5,
		BucketCap:        10,
	}
}

// Classifier partitions raw interview text into sentiment buckets using
// keyword heuristics. It never fails: degenerate input degrades through
// fallback passes down to a placeholder floor.
type Classifier struct {
	cfg    Config
	logger *logging.Logger
}

// New creates a classifier with the given configuration.
func New(cfg Config, logger *logging.Logger) *Classifier {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.BucketCap <= 0 {
		cfg.BucketCap = DefaultConfig().BucketCap
	}
	return &Classifier{cfg: cfg, logger: logger}
}

// Classify partitions text into sentiment buckets. The zero-value result is
// never returned: each bucket is non-empty, holding either extracted
// statements (at most BucketCap) or its placeholder.
func (c *Classifier) Classify(ctx context.Context, text string) Buckets {
	_, span := classifierTracer.Start(ctx, "sentiment.classify")
	defer span.End()

	lines := nonBlankLines(text)
	chat := isChatFormat(lines)

	// Pass 1: conversation pairs.
	pairs := extractPairs(lines, chat)
	buckets := map[string][]string{}
	for _, p := range pairs {
		label := c.score(p.answer, p.question != "", c.cfg.MinPairLen)
		if label == "" {
			continue
		}
		buckets[label] = append(buckets[label], p.format())
	}

	pass := "pairs"
	total := bucketTotal(buckets)

	// Pass 2: sentence-level fallback when the pair pass found too little.
	if total < c.cfg.FallbackAfter {
		sentenceBuckets := map[string][]string{}
		for _, s := range sentences(lines, chat) {
			label := c.score(s, false, c.cfg.MinSentenceLen)
			if label == "" {
				continue
			}
			sentenceBuckets[label] = append(sentenceBuckets[label], s)
		}
		if bucketTotal(sentenceBuckets) > total {
			buckets = sentenceBuckets
			total = bucketTotal(buckets)
			pass = "sentences"
		}
	}

	// Pass 3: last resort, keep any long line as neutral.
	if total == 0 {
		for _, line := range lines {
			content := stripSpeakerLabel(line, chat)
			if len(content) > c.cfg.NeutralMinLen {
				buckets[bucketNeutral] = append(buckets[bucketNeutral], content)
			}
		}
		total = bucketTotal(buckets)
		pass = "lines"
	}

	span.SetAttributes(
		attribute.String("sentiment.pass", pass),
		attribute.Int("sentiment.statements", total),
		attribute.Bool("sentiment.chat_format", chat),
	)
	c.logger.Debug("sentiment classification complete",
		"pass", pass,
		"statements", total,
		"chat_format", chat,
	)

	return Buckets{
		Positive: c.finalize(buckets[bucketPositive], bucketPositive),
		Neutral:  c.finalize(buckets[bucketNeutral], bucketNeutral),
		Negative: c.finalize(buckets[bucketNegative], bucketNegative),
	}
}

// score assigns a bucket label to a candidate statement, or "" to drop it.
func (c *Classifier) score(text string, hasQuestion bool, minLen int) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minLen {
		return ""
	}

	lower := strings.ToLower(trimmed)
	if !hasQuestion && len(trimmed) < c.cfg.ContextMaxLen && c.isContextPhrase(lower) {
		return ""
	}

	tokens := tokenize(lower)
	pos := countMatches(tokens, c.cfg.PositiveKeywords)
	neg := countMatches(tokens, c.cfg.NegativeKeywords)

	switch {
	case pos > 0 && neg == 0:
		return bucketPositive
	case neg > 0 && pos == 0:
		return bucketNegative
	case pos > 0 && neg > 0:
		if pos > neg {
			return bucketPositive
		}
		if neg > pos {
			return bucketNegative
		}
		return bucketNeutral
	case len(trimmed) > c.cfg.NeutralMinLen:
		// Longer unclassified statements tend to carry implicit sentiment.
		return bucketNeutral
	default:
		return ""
	}
}

func (c *Classifier) isContextPhrase(lower string) bool {
	for _, phrase := range c.cfg.ContextPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// finalize caps a bucket and substitutes the placeholder when it is empty.
func (c *Classifier) finalize(entries []string, label string) []string {
	if len(entries) == 0 {
		return []string{Placeholder(label)}
	}
	if len(entries) > c.cfg.BucketCap {
		entries = entries[:c.cfg.BucketCap]
	}
	return entries
}

// Placeholder returns the fixed substitute string for an empty bucket.
func Placeholder(label string) string {
	return "No " + label + " statements found in the interview data."
}

// IsPlaceholder reports whether a backend-provided sentiment statement is a
// known placeholder sentinel rather than real evidence.
func IsPlaceholder(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return true
	}
	if strings.HasPrefix(lower, "no positive statements") ||
		strings.HasPrefix(lower, "no neutral statements") ||
		strings.HasPrefix(lower, "no negative statements") {
		return true
	}
	for _, sentinel := range placeholderSentinels {
		if lower == sentinel || strings.HasPrefix(lower, sentinel) {
			return true
		}
	}
	return false
}

func bucketTotal(buckets map[string][]string) int {
	n := 0
	for _, entries := range buckets {
		n += len(entries)
	}
	return n
}
