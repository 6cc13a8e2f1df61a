package sentiment

// Default keyword tables for the heuristic classifier. These were hand-tuned
// against interview transcripts and carry no claim of NLP-grade accuracy; the
// classifier exists as a stop-gap until the analysis backend exposes an LLM
// sentiment endpoint.

func defaultPositiveKeywords() []string {
	return []string{
		"love", "great", "excellent", "amazing", "awesome", "fantastic",
		"wonderful", "helpful", "easy", "intuitive", "good", "like",
		"enjoy", "impressive", "useful", "convenient", "smooth", "fast",
		"reliable", "clear", "simple", "efficient", "happy", "pleased",
		"satisfied", "perfect", "best", "better", "improved", "valuable",
		"seamless", "powerful", "friendly", "solid", "appreciate",
	}
}

func defaultNegativeKeywords() []string {
	return []string{
		"hate", "terrible", "awful", "horrible", "bad", "difficult",
		"confusing", "frustrating", "slow", "crash", "bug", "broken",
		"error", "fail", "problem", "issue", "annoying", "clunky",
		"complicated", "unreliable", "worst", "worse", "painful",
		"nightmare", "useless", "disappointing", "missing", "lacking",
		"cumbersome", "tedious", "unclear", "glitch", "freeze", "stuck",
		"struggle",
	}
}

// defaultContextPhrases lists short filler expressions that are unreliable
// sentiment signals when they appear on their own, without a question.
func defaultContextPhrases() []string {
	return []string{
		"pretty intuitive", "pretty good", "makes sense", "sounds good",
		"fair enough", "chuckles", "laughs", "nods", "i see", "uh huh",
		"interesting", "okay", "sure",
	}
}

// placeholderSentinels are values the analysis backend is known to emit when
// it has no real sentiment evidence for a bucket. Seeing one of these means
// the heuristic fallback should run instead.
var placeholderSentinels = []string{
	"no sentiment data available",
	"no statements found",
	"not available",
	"pending analysis",
	"n/a",
	"placeholder",
}
