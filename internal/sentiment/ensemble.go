package sentiment

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/repwatch/repwatch/internal/models"
)

// Label thresholds on the combined score.
const (
	positiveThreshold = 0.05
	negativeThreshold = -0.05
)

// singleScorerConfidence is the ceiling when only one model contributed:
// agreement-derived confidence needs at least two opinions.
const singleScorerConfidence = 0.5

// Ensemble combines independent scorers into one confidence-weighted verdict.
// Scorers carry equal weight; a scorer that reports a text as outside its
// applicability drops to weight zero, and a scorer that fails is treated the
// same but additionally caps confidence. Scoring never returns an error:
// with every model down the verdict is neutral with zero confidence.
type Ensemble struct {
	scorers []Scorer
}

// NewEnsemble builds an ensemble over the given scorers. Adding a third model
// means extending this list; the combination logic is model-count agnostic.
func NewEnsemble(scorers ...Scorer) *Ensemble {
	return &Ensemble{scorers: scorers}
}

// Default returns the standard two-model ensemble: the rule-based lexicon
// scorer and the polarity classifier.
func Default() *Ensemble {
	return NewEnsemble(&LexiconScorer{}, NewPolarityScorer())
}

// Score produces the ensemble verdict for text.
func (e *Ensemble) Score(text string) models.SentimentResult {
	components := make(map[string]float64, len(e.scorers))
	var live []float64
	failed := false

	for _, scorer := range e.scorers {
		if !scorer.Applicable(text) {
			logrus.Debugf("scorer %s not applicable, dropping weight to zero", scorer.Name())
			continue
		}

		score, err := scorer.Score(text)
		if err != nil {
			logrus.Warnf("scorer %s failed: %v", scorer.Name(), err)
			failed = true
			continue
		}

		components[scorer.Name()] = score
		live = append(live, score)
	}

	if len(live) == 0 {
		return models.SentimentResult{
			Label:           "neutral",
			Score:           0,
			Confidence:      0,
			ComponentScores: components,
		}
	}

	score := mean(live)
	confidence := agreementConfidence(live)
	if len(live) == 1 || failed {
		confidence = math.Min(confidence, singleScorerConfidence)
	}

	return models.SentimentResult{
		Label:           Label(score),
		Score:           clampUnit(score),
		Confidence:      confidence,
		ComponentScores: components,
	}
}

// Label maps a combined score onto the three-way classification.
func Label(score float64) string {
	switch {
	case score > positiveThreshold:
		return "positive"
	case score < negativeThreshold:
		return "negative"
	default:
		return "neutral"
	}
}

// agreementConfidence derives confidence from the spread between component
// scores: full agreement gives 1.0, maximal opposition gives 0.0.
func agreementConfidence(scores []float64) float64 {
	if len(scores) < 2 {
		return 1
	}

	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}

	return clamp01(1 - (hi-lo)/2)
}

func mean(scores []float64) float64 {
	total := 0.0
	for _, s := range scores {
		total += s
	}
	return total / float64(len(scores))
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
