package models

import (
	"fmt"
	"time"
)

// Platform identifies the network a mention was collected from.
type Platform string

const (
	PlatformTwitter Platform = "twitter"
	PlatformReddit  Platform = "reddit"
	PlatformWeb     Platform = "web"
)

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformTwitter, PlatformReddit, PlatformWeb:
		return true
	}
	return false
}

// EngagementMetrics holds per-platform engagement counts. A zero value means
// the platform did not report the metric.
type EngagementMetrics struct {
	Likes    int `json:"likes"`
	Shares   int `json:"shares"`
	Comments int `json:"comments"`
}

// Merge returns the element-wise maximum of two metric sets. Counts are never
// summed so that re-fetch overlap does not double-count engagement.
func (m EngagementMetrics) Merge(other EngagementMetrics) EngagementMetrics {
	return EngagementMetrics{
		Likes:    maxInt(m.Likes, other.Likes),
		Shares:   maxInt(m.Shares, other.Shares),
		Comments: maxInt(m.Comments, other.Comments),
	}
}

// SentimentResult is the ensemble verdict for one piece of text.
type SentimentResult struct {
	Label           string             `json:"label"` // "positive", "negative", "neutral"
	Score           float64            `json:"score"`
	Confidence      float64            `json:"confidence"`
	ComponentScores map[string]float64 `json:"component_scores"`
}

// Mention is one unit of tracked content found on a platform.
type Mention struct {
	ID        string            `json:"id"` // stable: "<platform>_<nativeID>"
	Platform  Platform          `json:"platform"`
	Text      string            `json:"text"`
	URL       string            `json:"url"`
	Author    string            `json:"author"`
	CreatedAt time.Time         `json:"created_at"`
	Metrics   EngagementMetrics `json:"metrics"`
	Sentiment *SentimentResult  `json:"sentiment,omitempty"`
	Keywords  []string          `json:"keywords,omitempty"`
}

// SourceState classifies the outcome of a single source during aggregation.
type SourceState string

const (
	SourceSucceeded SourceState = "succeeded"
	SourcePartial   SourceState = "partial"
	SourceFailed    SourceState = "failed"
)

// SourceStatus is the per-source diagnostic attached to every aggregation run.
type SourceStatus struct {
	Source    string      `json:"source"`
	State     SourceState `json:"state"`
	Mentions  int         `json:"mentions"`
	Reason    string      `json:"reason,omitempty"`
	Retryable bool        `json:"retryable,omitempty"`
}

// ReportReason categorizes why a mention was reported.
type ReportReason string

const (
	ReasonSpam           ReportReason = "spam"
	ReasonHarassment     ReportReason = "harassment"
	ReasonHateSpeech     ReportReason = "hate_speech"
	ReasonMisinformation ReportReason = "misinformation"
	ReasonOther          ReportReason = "other"
)

// Valid reports whether r is a known report reason.
func (r ReportReason) Valid() bool {
	switch r {
	case ReasonSpam, ReasonHarassment, ReasonHateSpeech, ReasonMisinformation, ReasonOther:
		return true
	}
	return false
}

// ReportStatus is one step of the moderation lifecycle.
type ReportStatus string

const (
	StatusPending   ReportStatus = "pending"
	StatusReviewed  ReportStatus = "reviewed"
	StatusResolved  ReportStatus = "resolved"
	StatusDismissed ReportStatus = "dismissed"
)

// Terminal reports whether no further transition is allowed from s.
func (s ReportStatus) Terminal() bool {
	return s == StatusResolved || s == StatusDismissed
}

// NoteEntry is one moderator note. History is ordered and append-only.
type NoteEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note"`
}

// AdditionalInfo carries the open report metadata: the note history plus a
// snapshot of the reported content taken at submission time.
type AdditionalInfo struct {
	Notes          []NoteEntry       `json:"notes,omitempty"`
	ContentPreview string            `json:"content_preview,omitempty"`
	URL            string            `json:"url,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// Report is one moderation record filed against a mention. Reports reference
// mentions only by (post_id, platform); there is no ownership between them.
type Report struct {
	ReportID       string         `json:"report_id"`
	PostID         string         `json:"post_id"`
	Platform       Platform       `json:"platform"`
	Reason         ReportReason   `json:"reason"`
	ReportedBy     string         `json:"reported_by"`
	Timestamp      time.Time      `json:"timestamp"`
	Status         ReportStatus   `json:"status"`
	AdditionalInfo AdditionalInfo `json:"additional_info"`
}

// PostData is the mention-derived subset a caller supplies when filing a
// report: enough to identify the post and snapshot its content.
type PostData struct {
	ID       string   `json:"id"`
	Platform Platform `json:"platform"`
	Text     string   `json:"text,omitempty"`
	URL      string   `json:"url,omitempty"`
}

// EventKind enumerates the webhook/alert payload types this core produces.
type EventKind string

const (
	EventNewMention      EventKind = "new_mention"
	EventSentimentChange EventKind = "sentiment_change"
	EventVolumeSpike     EventKind = "volume_spike"
	EventAlertTriggered  EventKind = "alert_triggered"
)

// Event is the payload handed to alert dispatchers. Delivery transport is an
// external collaborator; this core only builds the payload.
type Event struct {
	Event       EventKind              `json:"event"`
	Data        map[string]interface{} `json:"data"`
	TriggeredAt time.Time              `json:"triggered_at"`
}

// MentionKey is the (platform, post) pair linking reports to mentions.
func MentionKey(platform Platform, postID string) string {
	return fmt.Sprintf("%s_%s", platform, postID)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
