package sentiment

import (
	"fmt"
	"regexp"
	"strings"
)

// Scorer is one independent sentiment model. Score returns a raw polarity in
// [-1, 1]. Applicable lets a scorer signal that a text is outside what it can
// judge (too short, wrong language); inapplicable scorers drop out of the
// ensemble without counting as failures.
type Scorer interface {
	Name() string
	Applicable(text string) bool
	Score(text string) (float64, error)
}

// ScoringUnavailableError reports that one model could not score a text. The
// ensemble degrades confidence on it; it never aborts aggregation.
type ScoringUnavailableError struct {
	Scorer string
	Reason string
}

func (e *ScoringUnavailableError) Error() string {
	return fmt.Sprintf("scorer %s unavailable: %s", e.Scorer, e.Reason)
}

var (
	scorerURLPattern     = regexp.MustCompile(`http[s]?://\S+`)
	scorerMentionPattern = regexp.MustCompile(`@\w+`)
	scorerHashtagPattern = regexp.MustCompile(`#(\w+)`)
	nonWordPattern       = regexp.MustCompile(`[^a-z0-9' ]+`)
)

// prepare lowercases text, removes URLs and platform markup, and splits it
// into word tokens shared by both scorers.
func prepare(text string) []string {
	text = strings.ToLower(text)
	text = scorerURLPattern.ReplaceAllString(text, " ")
	text = scorerMentionPattern.ReplaceAllString(text, " ")
	text = scorerHashtagPattern.ReplaceAllString(text, "$1")
	text = nonWordPattern.ReplaceAllString(text, " ")
	return strings.Fields(text)
}

// asciiRatio is the fraction of non-space runes inside the ASCII range, used
// as a cheap unsupported-language detector.
func asciiRatio(text string) float64 {
	total, ascii := 0, 0
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			continue
		}
		total++
		if r < 128 {
			ascii++
		}
	}
	if total == 0 {
		return 1
	}
	return float64(ascii) / float64(total)
}
