package sentiment

import (
	"regexp"
	"strings"
)

var (
	// chatTimestampRe matches Teams-style "[09:00 AM]" timestamp brackets.
	chatTimestampRe = regexp.MustCompile(`\[\d{1,2}:\d{2}\s*(?i:[AP]M)\]`)
	// chatPrefixRe strips a leading "[timestamp] Speaker:" label.
	chatPrefixRe = regexp.MustCompile(`^\s*\[[^\]]+\]\s*[^:\n]{0,40}:\s*`)
	// speakerPrefixRe strips a plain "Speaker:" label at line start.
	speakerPrefixRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9 .'_-]{0,24}:\s*`)
	sentenceSplitRe = regexp.MustCompile(`[.!?]+`)
)

// pair associates a recognized question with the answer that followed it.
// Standalone statements have an empty question.
type pair struct {
	question string
	answer   string
}

// format renders a pair the way it appears in a bucket entry.
func (p pair) format() string {
	if p.question == "" {
		return p.answer
	}
	return "Q: " + p.question + "\nA: " + p.answer
}

func nonBlankLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// isChatFormat reports whether any line carries a Teams-style timestamp.
func isChatFormat(lines []string) bool {
	for _, line := range lines {
		if chatTimestampRe.MatchString(line) {
			return true
		}
	}
	return false
}

// stripSpeakerLabel removes a leading speaker label, keeping the content.
func stripSpeakerLabel(line string, chat bool) string {
	line = strings.TrimSpace(line)
	if chat {
		if stripped := chatPrefixRe.ReplaceAllString(line, ""); stripped != "" {
			return strings.TrimSpace(stripped)
		}
		return line
	}
	if stripped := speakerPrefixRe.ReplaceAllString(line, ""); stripped != "" {
		return strings.TrimSpace(stripped)
	}
	return line
}

// isQuestionLine applies the question heuristics: a trailing "?", a colon
// together with the word "question" in the raw line, or a preceding line
// that mentioned one.
func isQuestionLine(content, raw string, prevMentionedQuestion bool) bool {
	if strings.HasSuffix(strings.TrimSpace(content), "?") {
		return true
	}
	if strings.Contains(raw, ":") && strings.Contains(strings.ToLower(raw), "question") {
		return true
	}
	return prevMentionedQuestion
}

// extractPairs walks the transcript pairing each recognized question with the
// next non-question line. Lines with no preceding question become standalone
// statements.
func extractPairs(lines []string, chat bool) []pair {
	var pairs []pair
	pendingQuestion := ""
	prevMentionedQuestion := false

	for _, raw := range lines {
		content := stripSpeakerLabel(raw, chat)
		if content == "" {
			continue
		}

		if isQuestionLine(content, raw, prevMentionedQuestion) {
			pendingQuestion = content
			prevMentionedQuestion = strings.Contains(strings.ToLower(raw), "question")
			continue
		}
		prevMentionedQuestion = strings.Contains(strings.ToLower(raw), "question")

		pairs = append(pairs, pair{question: pendingQuestion, answer: content})
		pendingQuestion = ""
	}
	return pairs
}

// sentences tokenizes the label-stripped transcript on sentence boundaries.
func sentences(lines []string, chat bool) []string {
	var out []string
	for _, raw := range lines {
		content := stripSpeakerLabel(raw, chat)
		for _, s := range sentenceSplitRe.Split(content, -1) {
			s = strings.TrimSpace(s)
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// tokenize lowercases and splits text into alphabetic word tokens.
func tokenize(lower string) []string {
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '\'')
	})
}

// countMatches counts keywords with a matching token. A token matches a
// keyword when it equals the keyword or extends it by a short inflection
// ("crash" covers "crashes", "crashed").
func countMatches(tokens []string, keywords []string) int {
	count := 0
	for _, kw := range keywords {
		for _, tok := range tokens {
			if tok == kw || (strings.HasPrefix(tok, kw) && len(tok)-len(kw) <= 3) {
				count++
				break
			}
		}
	}
	return count
}
