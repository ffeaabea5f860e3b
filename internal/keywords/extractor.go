package keywords

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/repwatch/repwatch/internal/models"
)

var (
	urlPattern     = regexp.MustCompile(`http[s]?://\S+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
	hashtagPattern = regexp.MustCompile(`#(\w+)`)
	wordPattern    = regexp.MustCompile(`[a-z][a-z0-9]{2,}`)
)

// stopwords covers common English function words plus the social-media noise
// terms that dominate raw mention text.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "any": {}, "can": {}, "had": {}, "her": {},
	"was": {}, "one": {}, "our": {}, "out": {}, "has": {}, "have": {},
	"him": {}, "his": {}, "how": {}, "its": {}, "may": {}, "new": {},
	"now": {}, "old": {}, "see": {}, "two": {}, "who": {}, "why": {},
	"with": {}, "this": {}, "that": {}, "they": {}, "them": {}, "then": {},
	"than": {}, "what": {}, "when": {}, "where": {}, "which": {}, "will": {},
	"would": {}, "could": {}, "should": {}, "there": {}, "their": {},
	"about": {}, "after": {}, "before": {}, "being": {}, "between": {},
	"from": {}, "into": {}, "over": {}, "under": {}, "just": {}, "like": {},
	"more": {}, "most": {}, "much": {}, "some": {}, "such": {}, "very": {},
	"were": {}, "your": {}, "been": {}, "because": {}, "during": {},
	"each": {}, "only": {}, "other": {}, "same": {}, "these": {}, "those": {},
	"through": {}, "while": {}, "also": {}, "does": {}, "doing": {},
	// social media noise
	"via": {}, "amp": {}, "http": {}, "https": {}, "www": {}, "com": {},
	"org": {}, "net": {}, "said": {}, "says": {}, "get": {}, "got": {},
	"going": {}, "gone": {}, "first": {}, "last": {}, "next": {}, "back": {},
	"way": {}, "time": {}, "year": {}, "day": {}, "week": {}, "month": {},
	"today": {}, "still": {}, "really": {}, "dont": {},
}

// Extractor ranks salient terms per mention using term-frequency ×
// inverse-document-frequency across the current collection. Scores are
// collection-relative and recomputed on every call; nothing is cached across
// aggregation runs.
type Extractor struct {
	// PerMention caps how many keywords each mention receives.
	PerMention int
}

// New creates an extractor yielding at most perMention terms per mention.
func New(perMention int) *Extractor {
	return &Extractor{PerMention: perMention}
}

type termStat struct {
	term  string
	count int
	first int // index of first occurrence, the tie-breaker
}

// Extract returns the top-ranked keywords for every mention, keyed by mention
// ID. Mentions whose text yields fewer distinct terms than the cap simply get
// fewer keywords.
func (e *Extractor) Extract(mentions []models.Mention) map[string][]string {
	result := make(map[string][]string, len(mentions))
	if len(mentions) == 0 {
		return result
	}

	docs := make([][]string, len(mentions))
	docFreq := make(map[string]int)

	for i, m := range mentions {
		docs[i] = tokenize(m.Text)
		seen := make(map[string]struct{})
		for _, term := range docs[i] {
			if _, ok := seen[term]; !ok {
				seen[term] = struct{}{}
				docFreq[term]++
			}
		}
	}

	total := float64(len(mentions))

	for i, m := range mentions {
		stats := make(map[string]*termStat)
		for pos, term := range docs[i] {
			st, ok := stats[term]
			if !ok {
				st = &termStat{term: term, first: pos}
				stats[term] = st
			}
			st.count++
		}

		ranked := make([]*termStat, 0, len(stats))
		for _, st := range stats {
			ranked = append(ranked, st)
		}

		docLen := float64(len(docs[i]))
		score := func(st *termStat) float64 {
			tf := float64(st.count) / docLen
			idf := math.Log((total+1)/(float64(docFreq[st.term])+1)) + 1
			return tf * idf
		}

		sort.Slice(ranked, func(a, b int) bool {
			sa, sb := score(ranked[a]), score(ranked[b])
			if sa != sb {
				return sa > sb
			}
			return ranked[a].first < ranked[b].first
		})

		limit := e.PerMention
		if limit > len(ranked) {
			limit = len(ranked)
		}

		terms := make([]string, 0, limit)
		for _, st := range ranked[:limit] {
			terms = append(terms, st.term)
		}
		result[m.ID] = terms
	}

	return result
}

// tokenize lowercases text, strips URLs and platform markup (keeping hashtag
// bodies), and drops stop-words and short tokens.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	text = urlPattern.ReplaceAllString(text, " ")
	text = mentionPattern.ReplaceAllString(text, " ")
	text = hashtagPattern.ReplaceAllString(text, "$1")

	var terms []string
	for _, term := range wordPattern.FindAllString(text, -1) {
		if _, stop := stopwords[term]; stop {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}
