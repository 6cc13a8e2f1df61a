package analysis

import (
	"encoding/json"
	"strings"

	"github.com/jadonwu-dev/axwise/internal/sentiment"
)

// Result is the validated shape of a backend analysis payload. The backend
// emits loosely-typed JSON with most fields optional; everything is checked
// here, at the boundary, so downstream code can rely on the structure.
type Result struct {
	SessionID string            `json:"session_id"`
	Themes    []Theme           `json:"themes"`
	Patterns  []Pattern         `json:"patterns"`
	Sentiment *SentimentSummary `json:"sentiment,omitempty"`
	Personas  []Persona         `json:"personas"`

	// FallbackUsed marks results whose sentiment statements were produced
	// by the local heuristic classifier instead of the backend.
	FallbackUsed bool `json:"fallback_used,omitempty"`
}

// Theme is a recurring topic surfaced by the analysis backend.
type Theme struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Frequency   int     `json:"frequency,omitempty"`
	Relevance   float64 `json:"relevance,omitempty"`
}

// Pattern is a cross-interview behavioral pattern.
type Pattern struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Evidence    []string `json:"evidence,omitempty"`
}

// SentimentSummary carries the overall score plus the statement partition.
type SentimentSummary struct {
	Overall    string            `json:"overall,omitempty"`
	Score      float64           `json:"score,omitempty"`
	Statements sentiment.Buckets `json:"statements"`
}

// Persona is a synthesized interview-subject archetype.
type Persona struct {
	Name        string   `json:"name"`
	Role        string   `json:"role,omitempty"`
	Description string   `json:"description,omitempty"`
	Traits      []string `json:"traits,omitempty"`
}

// ParseResult decodes a backend analysis payload, tolerating absent fields.
func ParseResult(data []byte, sessionID string) (*Result, error) {
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.SessionID) == "" {
		res.SessionID = sessionID
	}
	if res.Themes == nil {
		res.Themes = []Theme{}
	}
	if res.Patterns == nil {
		res.Patterns = []Pattern{}
	}
	if res.Personas == nil {
		res.Personas = []Persona{}
	}
	return &res, nil
}

// NeedsSentimentFallback reports whether the backend result lacks usable
// sentiment evidence. The reason is "missing" when the section is absent
// entirely and "placeholder" when every statement is a known sentinel.
func (r *Result) NeedsSentimentFallback() (bool, string) {
	if r.Sentiment == nil {
		return true, "missing"
	}
	s := r.Sentiment.Statements
	if len(s.Positive) == 0 && len(s.Neutral) == 0 && len(s.Negative) == 0 {
		return true, "missing"
	}
	for _, bucket := range [][]string{s.Positive, s.Neutral, s.Negative} {
		for _, statement := range bucket {
			if !sentiment.IsPlaceholder(statement) {
				return false, ""
			}
		}
	}
	return true, "placeholder"
}
