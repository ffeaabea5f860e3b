package dedup

import (
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/repwatch/repwatch/internal/models"
)

var (
	urlPattern     = regexp.MustCompile(`http[s]?://\S+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
	hashtagPattern = regexp.MustCompile(`#(\w+)`)
)

// Deduplicator collapses exact and near-duplicate mentions. Two mentions are
// duplicates when they share (platform, id), or when they share a platform,
// their normalized texts overlap by at least Overlap, and their timestamps
// fall within Window of each other. The second rule catches platform-side
// repost storms.
type Deduplicator struct {
	// Overlap is the minimum token-overlap ratio treated as near-identical.
	Overlap float64
	// Window bounds how far apart near-duplicates may be in time.
	Window time.Duration
}

// New creates a deduplicator with the given near-duplicate thresholds.
func New(overlap float64, window time.Duration) *Deduplicator {
	return &Deduplicator{Overlap: overlap, Window: window}
}

type survivor struct {
	index  int
	tokens map[string]struct{}
}

// Dedupe returns an order-preserving subset of mentions with duplicates
// collapsed. The first occurrence in input order survives; engagement metrics
// of collapsed duplicates are merged by taking the maximum of each count, so
// overlapping re-fetches never double-count. Dedupe is idempotent.
func (d *Deduplicator) Dedupe(mentions []models.Mention) []models.Mention {
	if len(mentions) <= 1 {
		return mentions
	}

	kept := make([]models.Mention, 0, len(mentions))
	byID := make(map[string]int, len(mentions))
	byPlatform := make(map[models.Platform][]survivor)

	for _, m := range mentions {
		if idx, seen := byID[m.ID]; seen {
			kept[idx].Metrics = kept[idx].Metrics.Merge(m.Metrics)
			continue
		}

		tokens := tokenSet(Normalize(m.Text))
		if idx, found := d.findNearDuplicate(kept, byPlatform[m.Platform], m, tokens); found {
			kept[idx].Metrics = kept[idx].Metrics.Merge(m.Metrics)
			byID[m.ID] = idx
			continue
		}

		kept = append(kept, m)
		idx := len(kept) - 1
		byID[m.ID] = idx
		byPlatform[m.Platform] = append(byPlatform[m.Platform], survivor{index: idx, tokens: tokens})
	}

	if dropped := len(mentions) - len(kept); dropped > 0 {
		logrus.Debugf("dedup collapsed %d of %d mentions", dropped, len(mentions))
	}

	return kept
}

func (d *Deduplicator) findNearDuplicate(kept []models.Mention, candidates []survivor, m models.Mention, tokens map[string]struct{}) (int, bool) {
	if len(tokens) == 0 {
		return 0, false
	}

	for _, c := range candidates {
		other := kept[c.index]
		gap := m.CreatedAt.Sub(other.CreatedAt)
		if gap < 0 {
			gap = -gap
		}
		if gap > d.Window {
			continue
		}
		if overlapRatio(tokens, c.tokens) >= d.Overlap {
			return c.index, true
		}
	}

	return 0, false
}

// Normalize case-folds text, strips URLs and platform markup, and collapses
// whitespace, so superficial differences don't defeat duplicate detection.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = urlPattern.ReplaceAllString(text, " ")
	text = mentionPattern.ReplaceAllString(text, " ")
	text = hashtagPattern.ReplaceAllString(text, "$1")
	return strings.Join(strings.Fields(text), " ")
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(text) {
		set[tok] = struct{}{}
	}
	return set
}

// overlapRatio is the size of the intersection over the size of the smaller
// set. A short repost quoting a longer original still counts as overlap.
func overlapRatio(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}

	shared := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			shared++
		}
	}

	return float64(shared) / float64(len(small))
}
