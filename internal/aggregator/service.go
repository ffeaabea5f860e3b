package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/repwatch/repwatch/internal/alerts"
	"github.com/repwatch/repwatch/internal/config"
	"github.com/repwatch/repwatch/internal/dedup"
	"github.com/repwatch/repwatch/internal/keywords"
	"github.com/repwatch/repwatch/internal/models"
	"github.com/repwatch/repwatch/internal/ratelimit"
	"github.com/repwatch/repwatch/internal/sentiment"
	"github.com/repwatch/repwatch/internal/sources"
	"github.com/repwatch/repwatch/internal/storage"
)

// How many trailing run volumes feed the spike baseline, and how large an
// average score swing between runs counts as a sentiment change.
const (
	volumeHistorySize   = 5
	sentimentSwing      = 0.3
	negativeSweepWindow = 4 * time.Hour
	negativeConfidence  = 0.6
)

// Service orchestrates a monitoring run: fan out to every enabled source,
// dedupe, score, extract keywords, and deliver the result. Source failures
// degrade to per-source diagnostics; a run only errors when the pipeline
// itself cannot proceed.
type Service struct {
	config     *config.Config
	storage    storage.Interface
	dispatcher alerts.Dispatcher
	sources    []sources.Source
	dedup      *dedup.Deduplicator
	ensemble   *sentiment.Ensemble
	extractor  *keywords.Extractor

	mu       sync.RWMutex
	metrics  *Metrics
	volumes  []int
	lastAvg  float64
	hasLast  bool
	lastIDs  map[string]struct{}
	now      func() time.Time
}

// Metrics holds run metrics, exposed as JSON on the metrics endpoint.
type Metrics struct {
	TotalMentions      int                            `json:"total_mentions"`
	LastRun            time.Time                      `json:"last_run"`
	LastRunDuration    string                         `json:"last_run_duration"`
	SourceMetrics      map[string]int                 `json:"source_metrics"`
	SentimentBreakdown map[string]int                 `json:"sentiment_breakdown"`
	SourceStatuses     map[string]models.SourceStatus `json:"source_statuses"`
	ErrorCount         int                            `json:"error_count"`
}

// RunResult is the outcome of one aggregation pass.
type RunResult struct {
	Mentions []models.Mention               `json:"mentions"`
	Statuses map[string]models.SourceStatus `json:"statuses"`
	Since    time.Time                      `json:"since"`
	Until    time.Time                      `json:"until"`
	Query    string                         `json:"query"`
}

// NewService creates an aggregation service over the given collaborators.
// srcs may come from BuildSources or be test doubles.
func NewService(cfg *config.Config, store storage.Interface, dispatcher alerts.Dispatcher, srcs []sources.Source) *Service {
	return &Service{
		config:     cfg,
		storage:    store,
		dispatcher: dispatcher,
		sources:    srcs,
		dedup:      dedup.New(cfg.Tuning.DedupOverlap, cfg.Tuning.DedupWindow.Std()),
		ensemble:   sentiment.Default(),
		extractor:  keywords.New(cfg.Tuning.KeywordsPerMention),
		metrics: &Metrics{
			SourceMetrics:      make(map[string]int),
			SentimentBreakdown: make(map[string]int),
			SourceStatuses:     make(map[string]models.SourceStatus),
		},
		lastIDs: make(map[string]struct{}),
		now:     time.Now,
	}
}

// BuildSources constructs the connectors named in cfg.Sources, sharing one
// rate limiter across them. Connectors missing credentials are constructed
// anyway and report themselves disabled.
func BuildSources(cfg *config.Config) []sources.Source {
	limits := make(map[string]ratelimit.Limits, len(cfg.Tuning.RateLimits))
	for name, l := range cfg.Tuning.RateLimits {
		limits[name] = ratelimit.Limits{MaxCalls: l.MaxCalls, Window: l.Window.Std()}
	}
	limiter := ratelimit.New(limits)

	var out []sources.Source
	for _, name := range cfg.Sources {
		switch name {
		case "twitter":
			out = append(out, sources.NewTwitterSource(cfg.TwitterBearerToken, limiter))
		case "reddit":
			out = append(out, sources.NewRedditSource(cfg.RedditClientID, cfg.RedditClientSecret, cfg.Tuning.Subreddits, limiter))
		case "web":
			out = append(out, sources.NewWebSearchSource(cfg.GoogleAPIKey, cfg.GoogleCSEID, limiter))
		default:
			logrus.Warnf("unknown source %q in SOURCES, skipping", name)
		}
	}
	return out
}

// Collect runs the full pipeline for one query window: concurrent fetch,
// dedupe, sentiment, keywords, ordering. Every enabled source gets a status
// entry even when it returns nothing.
func (s *Service) Collect(ctx context.Context, query string, since, until time.Time) ([]models.Mention, map[string]models.SourceStatus, error) {
	if query == "" {
		return nil, nil, fmt.Errorf("query is required")
	}

	statuses := make(map[string]models.SourceStatus)
	var all []models.Mention
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, source := range s.sources {
		if !source.Enabled() {
			logrus.Debugf("source %s is not configured, skipping", source.Name())
			continue
		}

		src := source
		g.Go(func() error {
			logrus.Infof("Fetching mentions from %s", src.Name())
			mentions, err := src.Fetch(gctx, query, since, until, s.config.MaxResults)

			mu.Lock()
			defer mu.Unlock()
			statuses[src.Name()] = statusFor(src.Name(), mentions, err)
			all = append(all, mentions...)

			if err != nil {
				logrus.Errorf("Error fetching from %s: %v", src.Name(), err)
			} else {
				logrus.Infof("Found %d mentions from %s", len(mentions), src.Name())
			}
			// Source failures are recorded, never propagated: one bad
			// connector must not cancel its siblings.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	logrus.Infof("Collected %d total mentions from %d sources", len(all), len(statuses))

	all = s.dedup.Dedupe(all)
	logrus.Infof("After deduplication: %d mentions", len(all))

	for i := range all {
		result := s.ensemble.Score(all[i].Text)
		all[i].Sentiment = &result
	}

	extracted := s.extractor.Extract(all)
	for i := range all {
		all[i].Keywords = extracted[all[i].ID]
	}

	sortMentions(all)
	if s.config.MaxResults > 0 && len(all) > s.config.MaxResults {
		all = all[:s.config.MaxResults]
	}

	return all, statuses, nil
}

// statusFor classifies one source outcome. A source that produced mentions
// and then failed is partial; its mentions are kept.
func statusFor(name string, mentions []models.Mention, err error) models.SourceStatus {
	status := models.SourceStatus{
		Source:   name,
		State:    models.SourceSucceeded,
		Mentions: len(mentions),
	}
	if err == nil {
		return status
	}

	status.State = models.SourceFailed
	if len(mentions) > 0 {
		status.State = models.SourcePartial
	}
	status.Reason = err.Error()

	var srcErr *sources.SourceError
	switch {
	case errors.As(err, &srcErr):
		status.Retryable = srcErr.Retryable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status.Retryable = true
	}
	return status
}

// sortMentions orders most recent first; equal timestamps fall back to ID
// order so repeated runs over the same data stay stable.
func sortMentions(mentions []models.Mention) {
	sort.SliceStable(mentions, func(i, j int) bool {
		if !mentions[i].CreatedAt.Equal(mentions[j].CreatedAt) {
			return mentions[i].CreatedAt.After(mentions[j].CreatedAt)
		}
		return mentions[i].ID < mentions[j].ID
	})
}

// Run performs a scheduled monitoring pass: collect over the schedule's
// window, persist a snapshot, update metrics, emit events, and deliver the
// run summary.
func (s *Service) Run() error {
	start := s.now()
	logrus.Info("Starting monitoring run")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.RunTimeout)
	defer cancel()

	window := s.searchWindow()
	until := start
	since := until.Add(-window)
	logrus.Infof("Searching %d sources for %q in the last %v", len(s.sources), s.config.Query, window)

	mentions, statuses, err := s.Collect(ctx, s.config.Query, since, until)
	if err != nil {
		return err
	}

	result := &RunResult{
		Mentions: mentions,
		Statuses: statuses,
		Since:    since,
		Until:    until,
		Query:    s.config.Query,
	}

	if err := s.storeSnapshot(result); err != nil {
		logrus.Errorf("Failed to store snapshot: %v", err)
		return err
	}

	events := s.updateStateAndDetect(result)
	s.updateMetrics(result, s.now().Sub(start))

	for _, event := range events {
		if err := s.dispatcher.SendEvent(event); err != nil {
			logrus.Errorf("Failed to deliver event %s: %v", event.Event, err)
		}
	}

	if err := s.dispatcher.SendSummary(s.buildSummary(result, window)); err != nil {
		logrus.Errorf("Failed to send summary: %v", err)
		return err
	}

	logrus.Infof("Monitoring run completed in %v", s.now().Sub(start))
	return nil
}

// RunNegativeSweep is the higher-frequency check between scheduled runs: a
// short window pass that alerts on confidently negative mentions only.
func (s *Service) RunNegativeSweep() error {
	start := s.now()
	logrus.Info("Starting negative sentiment sweep")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.RunTimeout)
	defer cancel()

	until := start
	since := until.Add(-negativeSweepWindow)

	mentions, _, err := s.Collect(ctx, s.config.Query, since, until)
	if err != nil {
		return err
	}

	var negative []models.Mention
	for _, m := range mentions {
		if m.Sentiment != nil && m.Sentiment.Label == "negative" && m.Sentiment.Confidence >= negativeConfidence {
			negative = append(negative, m)
		}
	}

	if len(negative) == 0 {
		logrus.Info("No confidently negative mentions found")
		return nil
	}

	logrus.Infof("Found %d negative mentions requiring attention", len(negative))

	event := alerts.AlertTriggeredEvent("negative_sweep", map[string]interface{}{
		"query": s.config.Query,
		"count": len(negative),
	}, s.now())
	if err := s.dispatcher.SendEvent(event); err != nil {
		logrus.Errorf("Failed to deliver negative sweep event: %v", err)
	}

	summary := &alerts.RunSummary{
		GeneratedAt:   s.now(),
		Query:         s.config.Query,
		Period:        negativeSweepWindow.String(),
		TotalMentions: len(negative),
		Sources:       countBySource(negative),
		Sentiment:     countBySentiment(negative),
		Mentions:      negative,
	}
	if err := s.dispatcher.SendSummary(summary); err != nil {
		return fmt.Errorf("failed to send negative sweep summary: %w", err)
	}

	logrus.Infof("Negative sweep completed in %v", s.now().Sub(start))
	return nil
}

func (s *Service) searchWindow() time.Duration {
	switch s.config.ReportSchedule {
	case "weekly":
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

func (s *Service) storeSnapshot(result *RunResult) error {
	if len(result.Mentions) == 0 {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal run snapshot: %w", err)
	}

	filename := fmt.Sprintf("mentions-%s.json", s.now().Format("2006-01-02-15-04-05"))
	return s.storage.Store(filename, data)
}

// updateStateAndDetect folds the run into the trailing state and returns the
// events it triggers: new mentions since the previous run, volume spikes
// against the trailing average, and average sentiment swings.
func (s *Service) updateStateAndDetect(result *RunResult) []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.now()
	var events []models.Event

	for _, m := range result.Mentions {
		if _, seen := s.lastIDs[m.ID]; !seen {
			events = append(events, alerts.NewMentionEvent(m, at))
		}
	}

	if len(s.volumes) > 0 {
		var sum int
		for _, v := range s.volumes {
			sum += v
		}
		baseline := float64(sum) / float64(len(s.volumes))
		if baseline > 0 && float64(len(result.Mentions)) > baseline*s.config.Tuning.SpikeFactor {
			logrus.Warnf("Volume spike: %d mentions against baseline %.1f", len(result.Mentions), baseline)
			events = append(events, alerts.VolumeSpikeEvent(result.Query, len(result.Mentions), baseline, at))
		}
	}

	avg, scored := averageScore(result.Mentions)
	if scored && s.hasLast {
		if diff := avg - s.lastAvg; diff >= sentimentSwing || diff <= -sentimentSwing {
			logrus.Warnf("Sentiment swing: average moved from %.2f to %.2f", s.lastAvg, avg)
			events = append(events, alerts.SentimentChangeEvent(result.Query, s.lastAvg, avg, at))
		}
	}

	s.volumes = append(s.volumes, len(result.Mentions))
	if len(s.volumes) > volumeHistorySize {
		s.volumes = s.volumes[len(s.volumes)-volumeHistorySize:]
	}
	if scored {
		s.lastAvg = avg
		s.hasLast = true
	}
	s.lastIDs = make(map[string]struct{}, len(result.Mentions))
	for _, m := range result.Mentions {
		s.lastIDs[m.ID] = struct{}{}
	}

	return events
}

func (s *Service) updateMetrics(result *RunResult, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.TotalMentions = len(result.Mentions)
	s.metrics.LastRun = s.now()
	s.metrics.LastRunDuration = duration.String()
	s.metrics.SourceMetrics = countBySource(result.Mentions)
	s.metrics.SentimentBreakdown = countBySentiment(result.Mentions)
	s.metrics.SourceStatuses = result.Statuses

	errorCount := 0
	for _, status := range result.Statuses {
		if status.State != models.SourceSucceeded {
			errorCount++
		}
	}
	s.metrics.ErrorCount = errorCount
}

// GetMetrics returns current metrics as JSON.
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}

func (s *Service) buildSummary(result *RunResult, window time.Duration) *alerts.RunSummary {
	return &alerts.RunSummary{
		GeneratedAt:   s.now(),
		Query:         result.Query,
		Period:        window.String(),
		TotalMentions: len(result.Mentions),
		Sources:       countBySource(result.Mentions),
		Sentiment:     countBySentiment(result.Mentions),
		TopKeywords:   topKeywords(result.Mentions, 5),
		Mentions:      result.Mentions,
	}
}

func countBySource(mentions []models.Mention) map[string]int {
	out := make(map[string]int)
	for _, m := range mentions {
		out[string(m.Platform)]++
	}
	return out
}

func countBySentiment(mentions []models.Mention) map[string]int {
	out := make(map[string]int)
	for _, m := range mentions {
		if m.Sentiment != nil {
			out[m.Sentiment.Label]++
		}
	}
	return out
}

func averageScore(mentions []models.Mention) (float64, bool) {
	var sum float64
	var n int
	for _, m := range mentions {
		if m.Sentiment != nil {
			sum += m.Sentiment.Score
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// topKeywords ranks extracted keywords by how many mentions they appear in.
func topKeywords(mentions []models.Mention, limit int) []string {
	counts := make(map[string]int)
	order := make(map[string]int)
	for _, m := range mentions {
		for _, k := range m.Keywords {
			if _, ok := counts[k]; !ok {
				order[k] = len(order)
			}
			counts[k]++
		}
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return order[keys[i]] < order[keys[j]]
	})

	if len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}
