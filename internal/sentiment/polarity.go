package sentiment

// PolarityScorer is a classifier-style model independent of the lexicon
// scorer: it averages per-term polarities over the terms it recognizes, with
// bigram modifiers scaling the following term. Averaging (instead of the
// lexicon scorer's summed-and-squashed valence) makes the two models disagree
// in useful ways on mixed texts.
type PolarityScorer struct {
	// MinTokens is the applicability floor; shorter texts carry too little
	// signal for a frequency-style classifier.
	MinTokens int
}

var _ Scorer = (*PolarityScorer)(nil)

// NewPolarityScorer returns a polarity classifier with the default
// three-token applicability floor.
func NewPolarityScorer() *PolarityScorer {
	return &PolarityScorer{MinTokens: 3}
}

// Per-term polarity in [-1, 1].
var polarities = map[string]float64{
	"good": 0.7, "great": 0.8, "excellent": 1.0, "amazing": 0.9,
	"awesome": 0.9, "fantastic": 0.9, "love": 0.8, "loved": 0.7,
	"best": 1.0, "perfect": 1.0, "wonderful": 0.9, "brilliant": 0.9,
	"nice": 0.6, "solid": 0.5, "stable": 0.5, "happy": 0.8,
	"helpful": 0.6, "useful": 0.6, "works": 0.4, "working": 0.3,
	"fixed": 0.5, "fix": 0.3, "recommend": 0.7, "win": 0.7,
	"smooth": 0.6, "pleased": 0.7, "delighted": 0.9,

	"bad": -0.7, "terrible": -1.0, "awful": -1.0, "horrible": -1.0,
	"hate": -0.8, "worst": -1.0, "broken": -0.7, "buggy": -0.7,
	"fail": -0.7, "failed": -0.7, "failure": -0.8, "problem": -0.5,
	"problems": -0.5, "issue": -0.4, "issues": -0.4, "bug": -0.5,
	"slow": -0.4, "crash": -0.8, "crashes": -0.8, "scam": -1.0,
	"fraud": -1.0, "angry": -0.7, "disappointed": -0.7, "useless": -0.8,
	"unusable": -0.9, "outage": -0.6, "error": -0.5, "sucks": -0.8,
	"garbage": -0.8, "waste": -0.7, "poor": -0.6, "annoying": -0.6,
}

// Modifiers scale the polarity of the immediately following term.
var modifiers = map[string]float64{
	"very": 1.3, "extremely": 1.5, "incredibly": 1.5, "really": 1.25,
	"absolutely": 1.4, "totally": 1.3, "super": 1.3,
	"slightly": 0.6, "somewhat": 0.7, "barely": 0.4, "fairly": 0.8,
	"not": -0.5, "never": -0.5, "no": -0.5,
}

func (s *PolarityScorer) Name() string {
	return "polarity"
}

// Applicable drops the scorer out of the ensemble for very short texts.
func (s *PolarityScorer) Applicable(text string) bool {
	return len(prepare(text)) >= s.MinTokens
}

// Score averages the polarity of recognized terms; unrecognized text scores
// neutral. The result is clamped to [-1, 1].
func (s *PolarityScorer) Score(text string) (float64, error) {
	tokens := prepare(text)

	total := 0.0
	matched := 0

	for i, tok := range tokens {
		polarity, ok := polarities[tok]
		if !ok {
			continue
		}

		if i > 0 {
			if factor, ok := modifiers[tokens[i-1]]; ok {
				polarity *= factor
			}
		}

		total += polarity
		matched++
	}

	if matched == 0 {
		return 0, nil
	}

	avg := total / float64(matched)
	if avg > 1 {
		avg = 1
	}
	if avg < -1 {
		avg = -1
	}
	return avg, nil
}
