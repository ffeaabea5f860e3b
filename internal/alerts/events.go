package alerts

import (
	"time"

	"github.com/repwatch/repwatch/internal/models"
)

// NewMentionEvent builds the payload announcing a freshly collected mention.
func NewMentionEvent(m models.Mention, at time.Time) models.Event {
	data := map[string]interface{}{
		"id":       m.ID,
		"platform": string(m.Platform),
		"url":      m.URL,
		"author":   m.Author,
	}
	if m.Sentiment != nil {
		data["sentiment"] = m.Sentiment.Label
		data["score"] = m.Sentiment.Score
	}
	return models.Event{Event: models.EventNewMention, Data: data, TriggeredAt: at}
}

// VolumeSpikeEvent builds the payload for a mention volume spike: current
// run volume against the trailing baseline it exceeded.
func VolumeSpikeEvent(query string, current int, baseline float64, at time.Time) models.Event {
	return models.Event{
		Event: models.EventVolumeSpike,
		Data: map[string]interface{}{
			"query":    query,
			"current":  current,
			"baseline": baseline,
		},
		TriggeredAt: at,
	}
}

// SentimentChangeEvent builds the payload for an average sentiment swing
// between consecutive runs.
func SentimentChangeEvent(query string, previous, current float64, at time.Time) models.Event {
	return models.Event{
		Event: models.EventSentimentChange,
		Data: map[string]interface{}{
			"query":    query,
			"previous": previous,
			"current":  current,
		},
		TriggeredAt: at,
	}
}

// AlertTriggeredEvent builds a generic alert payload, used for conditions
// like a negative-sentiment sweep finding actionable mentions.
func AlertTriggeredEvent(reason string, data map[string]interface{}, at time.Time) models.Event {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["reason"] = reason
	return models.Event{Event: models.EventAlertTriggered, Data: data, TriggeredAt: at}
}
