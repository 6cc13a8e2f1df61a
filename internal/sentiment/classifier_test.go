package sentiment

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func newTestClassifier() *Classifier {
	return New(DefaultConfig(), nil)
}

func TestClassifyEmptyInputReturnsPlaceholders(t *testing.T) {
	c := newTestClassifier()
	for _, input := range []string{"", "   ", "\n\n\n"} {
		got := c.Classify(context.Background(), input)
		if len(got.Positive) != 1 || got.Positive[0] != Placeholder("positive") {
			t.Fatalf("input %q: expected positive placeholder, got %v", input, got.Positive)
		}
		if len(got.Neutral) != 1 || got.Neutral[0] != Placeholder("neutral") {
			t.Fatalf("input %q: expected neutral placeholder, got %v", input, got.Neutral)
		}
		if len(got.Negative) != 1 || got.Negative[0] != Placeholder("negative") {
			t.Fatalf("input %q: expected negative placeholder, got %v", input, got.Negative)
		}
	}
}

func TestClassifyBucketsCappedAtTen(t *testing.T) {
	c := newTestClassifier()
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		sb.WriteString("I really love this product, it is great and helpful for my team.\n")
		sb.WriteString("This tool is terrible and frustrating, a complete nightmare to use.\n")
	}
	got := c.Classify(context.Background(), sb.String())
	if len(got.Positive) > 10 {
		t.Fatalf("positive bucket exceeds cap: %d", len(got.Positive))
	}
	if len(got.Neutral) > 10 {
		t.Fatalf("neutral bucket exceeds cap: %d", len(got.Neutral))
	}
	if len(got.Negative) > 10 {
		t.Fatalf("negative bucket exceeds cap: %d", len(got.Negative))
	}
}

func TestClassifyPositiveOnlyAnswerLandsInPositive(t *testing.T) {
	c := newTestClassifier()
	input := "Q: How did onboarding go?\nA: It was excellent and the setup felt easy."
	got := c.Classify(context.Background(), input)
	found := false
	for _, entry := range got.Positive {
		if strings.Contains(entry, "excellent and the setup felt easy") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected positive-keyword answer in positive bucket, got %v", got.Positive)
	}
}

func TestClassifyNegativeOnlyAnswerLandsInNegative(t *testing.T) {
	c := newTestClassifier()
	input := "Q: How did the rollout go?\nA: It was awful, the export kept failing with an error."
	got := c.Classify(context.Background(), input)
	found := false
	for _, entry := range got.Negative {
		if strings.Contains(entry, "the export kept failing") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected negative-keyword answer in negative bucket, got %v", got.Negative)
	}
}

func TestClassifyShortKeywordlessAnswerIsDropped(t *testing.T) {
	c := newTestClassifier()
	got := c.Classify(context.Background(), "Q: How was it?\nA: Fine.")
	for _, bucket := range [][]string{got.Positive, got.Neutral, got.Negative} {
		for _, entry := range bucket {
			if strings.Contains(entry, "Fine") {
				t.Fatalf("short keywordless answer should be dropped, found %q", entry)
			}
		}
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	c := newTestClassifier()
	input := "Q: What do you think?\nA: The dashboard is great but the search is slow and confusing.\nIt works well most days.\n"
	first := c.Classify(context.Background(), input)
	second := c.Classify(context.Background(), input)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("classification is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestClassifyQuestionAnswerPairEndToEnd(t *testing.T) {
	c := newTestClassifier()
	input := "Q: What do you think of the new dashboard?\nA: I love the new dashboard, it's so helpful and easy to use."
	got := c.Classify(context.Background(), input)

	if len(got.Positive) != 1 {
		t.Fatalf("expected exactly one positive entry, got %v", got.Positive)
	}
	entry := got.Positive[0]
	if !strings.HasPrefix(entry, "Q: What do you think of the new dashboard?") {
		t.Fatalf("expected formatted question prefix, got %q", entry)
	}
	if !strings.Contains(entry, "\nA: I love the new dashboard") {
		t.Fatalf("expected formatted answer, got %q", entry)
	}
	if got.Negative[0] != Placeholder("negative") {
		t.Fatalf("expected negative placeholder, got %v", got.Negative)
	}
	if got.Neutral[0] != Placeholder("neutral") {
		t.Fatalf("expected neutral placeholder, got %v", got.Neutral)
	}
}

func TestClassifyTeamsTranscriptNegative(t *testing.T) {
	c := newTestClassifier()
	input := "[09:00 AM] Interviewer: It crashes constantly, this is a nightmare."
	got := c.Classify(context.Background(), input)

	found := false
	for _, entry := range got.Negative {
		if strings.Contains(entry, "crashes constantly") {
			found = true
		}
		if strings.Contains(entry, "Interviewer:") || strings.Contains(entry, "[09:00 AM]") {
			t.Fatalf("speaker label should be stripped, got %q", entry)
		}
	}
	if !found {
		t.Fatalf("expected teams-style line in negative bucket, got %v", got.Negative)
	}
}

func TestClassifyContextPhraseWithoutQuestionDropped(t *testing.T) {
	c := newTestClassifier()
	// "pretty intuitive" standalone, short, no question: unreliable signal.
	got := c.Classify(context.Background(), "Pretty intuitive I guess.")
	for _, entry := range got.Positive {
		if strings.Contains(entry, "intuitive") {
			t.Fatalf("context-dependent phrase should be dropped, got %v", got.Positive)
		}
	}
}

func TestClassifyContextPhraseWithQuestionKept(t *testing.T) {
	c := newTestClassifier()
	input := "Q: How do you find the interface?\nA: Pretty intuitive, honestly."
	got := c.Classify(context.Background(), input)
	found := false
	for _, entry := range got.Positive {
		if strings.Contains(entry, "Pretty intuitive") {
			found = true
		}
	}
	if !found {
		t.Fatalf("context phrase paired with a question should be kept, got %v", got.Positive)
	}
}

func TestClassifyMixedKeywordsMajorityWins(t *testing.T) {
	c := newTestClassifier()
	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{
			name:   "negative majority",
			answer: "The editor is good but exports are slow, buggy and frustrating overall.",
			want:   bucketNegative,
		},
		{
			name:   "positive majority",
			answer: "Mostly great, helpful and reliable even if setup was slow at first.",
			want:   bucketPositive,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(context.Background(), "Q: Overall impressions?\nA: "+tt.answer)
			var bucket []string
			switch tt.want {
			case bucketNegative:
				bucket = got.Negative
			case bucketPositive:
				bucket = got.Positive
			}
			found := false
			for _, entry := range bucket {
				if strings.Contains(entry, tt.answer) {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected answer in %s bucket, got %+v", tt.want, got)
			}
		})
	}
}

func TestClassifySentenceFallbackSplitsMultiSentenceLine(t *testing.T) {
	// No question/answer structure at all, so the pair pass finds nothing
	// and the sentence pass has to carry the classification.
	c := newTestClassifier()
	text := "I love the dashboard and it is great. But the exports keep crashing and failing badly."
	got := c.Classify(context.Background(), text)

	if len(got.Positive) != 1 || !strings.Contains(got.Positive[0], "love the dashboard") {
		t.Fatalf("expected one positive sentence, got %v", got.Positive)
	}
	if len(got.Negative) != 1 || !strings.Contains(got.Negative[0], "crashing and failing") {
		t.Fatalf("expected one negative sentence, got %v", got.Negative)
	}
}

func TestClassifySentenceFallbackReplacesSparsePairResults(t *testing.T) {
	// The single pair scores as a keyword tie and lands in neutral; splitting
	// the answer into sentences yields strictly more statements, so the
	// sentence results take over and the pair-formatted entry disappears.
	c := newTestClassifier()
	text := "How has the new release been working for you?\n" +
		"I love the reporting. The alerts are great. But the exports keep crashing. The sync is broken too."
	got := c.Classify(context.Background(), text)

	foundPositive := false
	for _, entry := range got.Positive {
		if strings.Contains(entry, "I love the reporting") {
			foundPositive = true
		}
	}
	if !foundPositive {
		t.Fatalf("expected sentence-level positive statement, got %v", got.Positive)
	}
	foundNegative := false
	for _, entry := range got.Negative {
		if strings.Contains(entry, "exports keep crashing") {
			foundNegative = true
		}
	}
	if !foundNegative {
		t.Fatalf("expected sentence-level negative statement, got %v", got.Negative)
	}
	for _, bucket := range [][]string{got.Positive, got.Neutral, got.Negative} {
		for _, entry := range bucket {
			if strings.HasPrefix(entry, "Q:") {
				t.Fatalf("pair-formatted entry survived sentence fallback: %q", entry)
			}
		}
	}
}

func TestClassifyLastResortKeepsLongUnsplitLine(t *testing.T) {
	// Every individual sentence is short and keywordless, so both the pair
	// and sentence passes come up empty; the full line is long enough for
	// the final pass to keep it as neutral.
	c := newTestClassifier()
	text := "We met on Tuesday. Then we talked briefly. Nothing else happened after that."
	got := c.Classify(context.Background(), text)

	found := false
	for _, entry := range got.Neutral {
		if strings.Contains(entry, "Nothing else happened") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected long line kept as neutral, got %v", got.Neutral)
	}
	if len(got.Positive) != 1 || !IsPlaceholder(got.Positive[0]) {
		t.Fatalf("expected positive placeholder, got %v", got.Positive)
	}
	if len(got.Negative) != 1 || !IsPlaceholder(got.Negative[0]) {
		t.Fatalf("expected negative placeholder, got %v", got.Negative)
	}
}

func TestClassifyLongKeywordlessLineFallsBackToNeutral(t *testing.T) {
	c := newTestClassifier()
	line := "We moved the quarterly review meetings to Tuesday afternoons for the whole department."
	got := c.Classify(context.Background(), line)
	found := false
	for _, entry := range got.Neutral {
		if strings.Contains(entry, "quarterly review meetings") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected long unclassified line in neutral bucket, got %v", got.Neutral)
	}
}

func TestIsPlaceholder(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", true},
		{"N/A", true},
		{"No sentiment data available", true},
		{"No positive statements found in the interview data.", true},
		{"pending analysis", true},
		{"I love the new dashboard", false},
		{"The export is broken", false},
	}
	for _, tt := range tests {
		if got := IsPlaceholder(tt.value); got != tt.want {
			t.Fatalf("IsPlaceholder(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
