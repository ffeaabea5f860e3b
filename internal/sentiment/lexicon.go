package sentiment

import "math"

// LexiconScorer is a rule-based model: each token carries a valence, negators
// within a short lookbehind flip it, boosters amplify it, and the summed
// valence is squashed into [-1, 1].
type LexiconScorer struct{}

var _ Scorer = (*LexiconScorer)(nil)

// Raw valences roughly on a [-4, 4] scale before normalization.
var valences = map[string]float64{
	"good": 1.9, "great": 3.1, "excellent": 3.2, "amazing": 3.0,
	"awesome": 3.1, "fantastic": 3.2, "love": 3.2, "loved": 2.9,
	"best": 3.2, "perfect": 3.0, "wonderful": 2.8, "brilliant": 2.8,
	"helpful": 1.8, "works": 1.4, "solved": 1.8, "success": 2.4,
	"happy": 2.7, "glad": 2.0, "impressive": 2.3, "reliable": 1.9,
	"fast": 1.3, "easy": 1.7, "recommend": 2.2, "win": 2.4,
	"improved": 1.7, "improvement": 1.6, "thanks": 1.9, "thank": 1.9,

	"bad": -2.5, "terrible": -3.1, "awful": -3.0, "horrible": -3.0,
	"hate": -2.7, "hated": -2.7, "worst": -3.1, "broken": -2.2,
	"fail": -2.4, "failed": -2.3, "failure": -2.4, "problem": -1.7,
	"problems": -1.7, "issue": -1.3, "issues": -1.3, "bug": -1.6,
	"bugs": -1.6, "slow": -1.4, "crash": -2.4, "crashed": -2.4,
	"scam": -3.0, "fraud": -3.2, "angry": -2.3, "disappointed": -2.2,
	"disappointing": -2.3, "useless": -2.4, "unusable": -2.5,
	"outage": -2.0, "down": -1.2, "error": -1.6, "errors": -1.6,
	"sucks": -2.6, "garbage": -2.6, "waste": -2.1, "poor": -1.9,
}

var negators = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "neither": {}, "nobody": {},
	"none": {}, "cannot": {}, "can't": {}, "won't": {}, "don't": {},
	"doesn't": {}, "didn't": {}, "isn't": {}, "wasn't": {}, "aren't": {},
	"hardly": {}, "without": {},
}

var boosters = map[string]float64{
	"very": 0.293, "extremely": 0.4, "incredibly": 0.4, "really": 0.267,
	"absolutely": 0.35, "totally": 0.3, "so": 0.2, "super": 0.3,
	"slightly": -0.3, "somewhat": -0.25, "barely": -0.4, "kind": -0.2,
}

const (
	negationFlip     = -0.74
	negationLookback = 3
	// normalization constant for the compound squash
	squashAlpha = 15.0
)

func (s *LexiconScorer) Name() string {
	return "lexicon"
}

// Applicable requires at least one word token.
func (s *LexiconScorer) Applicable(text string) bool {
	return len(prepare(text)) > 0
}

// Score sums boosted, negation-adjusted valences and squashes the total into
// [-1, 1]. Texts that are mostly non-ASCII are rejected as unsupported:
// the lexicon is English-only and would misread them as neutral.
func (s *LexiconScorer) Score(text string) (float64, error) {
	if asciiRatio(text) < 0.5 {
		return 0, &ScoringUnavailableError{Scorer: s.Name(), Reason: "unsupported language"}
	}

	tokens := prepare(text)
	total := 0.0

	for i, tok := range tokens {
		valence, ok := valences[tok]
		if !ok {
			continue
		}

		boost := 0.0
		negated := false
		for back := 1; back <= negationLookback && i-back >= 0; back++ {
			prev := tokens[i-back]
			if b, ok := boosters[prev]; ok && back == 1 {
				boost = b
			}
			if _, ok := negators[prev]; ok {
				negated = true
			}
		}

		if valence > 0 {
			valence += boost
		} else {
			valence -= boost
		}
		if negated {
			valence *= negationFlip
		}

		total += valence
	}

	return squash(total), nil
}

// squash maps an unbounded valence sum into (-1, 1).
func squash(sum float64) float64 {
	return sum / math.Sqrt(sum*sum+squashAlpha)
}
