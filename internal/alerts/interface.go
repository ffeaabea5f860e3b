package alerts

import (
	"time"

	"github.com/repwatch/repwatch/internal/models"
)

// RunSummary is the digest produced after an aggregation run, sent to the
// configured notification channels.
type RunSummary struct {
	GeneratedAt   time.Time        `json:"generated_at"`
	Query         string           `json:"query"`
	Period        string           `json:"period"`
	TotalMentions int              `json:"total_mentions"`
	Sources       map[string]int   `json:"sources"`
	Sentiment     map[string]int   `json:"sentiment"`
	TopKeywords   []string         `json:"top_keywords,omitempty"`
	Mentions      []models.Mention `json:"mentions,omitempty"`
}

// Dispatcher is the contract for delivering events and run summaries.
type Dispatcher interface {
	SendEvent(event models.Event) error
	SendSummary(summary *RunSummary) error
}
