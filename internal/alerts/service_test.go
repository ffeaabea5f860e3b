package alerts

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repwatch/repwatch/internal/config"
	"github.com/repwatch/repwatch/internal/models"
)

func sampleSummary() *RunSummary {
	return &RunSummary{
		GeneratedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Query:         "acme",
		Period:        "24h0m0s",
		TotalMentions: 2,
		Sources:       map[string]int{"twitter": 1, "reddit": 1},
		Sentiment:     map[string]int{"positive": 1, "negative": 1},
		TopKeywords:   []string{"outage", "support"},
		Mentions: []models.Mention{
			{
				ID:        "twitter_1",
				Platform:  models.PlatformTwitter,
				Text:      "acme support fixed my issue fast",
				URL:       "https://twitter.com/a/status/1",
				Author:    "happy_user",
				CreatedAt: time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC),
				Sentiment: &models.SentimentResult{Label: "positive", Score: 0.6, Confidence: 0.9},
			},
			{
				ID:        "reddit_t3_x",
				Platform:  models.PlatformReddit,
				Text:      "acme outage again, third time this week",
				URL:       "https://reddit.com/r/acme/comments/x",
				Author:    "angry_user",
				CreatedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
				Sentiment: &models.SentimentResult{Label: "negative", Score: -0.5, Confidence: 0.8},
			},
		},
	}
}

func TestSendEvent_PostsToWebhook(t *testing.T) {
	var received models.Event
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := NewService(&config.Config{WebhookURL: server.URL})

	event := VolumeSpikeEvent("acme", 42, 10.5, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, svc.SendEvent(event))

	assert.Equal(t, models.EventVolumeSpike, received.Event)
	assert.Equal(t, "acme", received.Data["query"])
	assert.Equal(t, float64(42), received.Data["current"])
}

func TestSendEvent_WebhookFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	svc := NewService(&config.Config{WebhookURL: server.URL})
	err := svc.SendEvent(NewMentionEvent(models.Mention{ID: "twitter_1"}, time.Now()))
	assert.Error(t, err)
}

func TestSendEvent_NoWebhookConfigured(t *testing.T) {
	svc := NewService(&config.Config{})
	assert.NoError(t, svc.SendEvent(NewMentionEvent(models.Mention{ID: "twitter_1"}, time.Now())))
}

func TestSendSummary_PostsToWebhook(t *testing.T) {
	var received WebhookMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := NewService(&config.Config{WebhookURL: server.URL})
	require.NoError(t, svc.SendSummary(sampleSummary()))

	assert.Contains(t, received.Title, "acme")
	assert.Contains(t, received.Text, "2 mentions")
	require.NotEmpty(t, received.Sections)
}

func TestBuildWebhookMessage(t *testing.T) {
	message := buildWebhookMessage(sampleSummary())

	require.Len(t, message.Sections, 2)
	assert.Equal(t, "Summary", message.Sections[0].Title)
	assert.Equal(t, "Recent Mentions", message.Sections[1].Title)
	assert.Contains(t, message.Sections[1].Text, "happy_user")

	names := make([]string, 0, len(message.Sections[0].Facts))
	for _, f := range message.Sections[0].Facts {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "Total Mentions")
	assert.Contains(t, names, "From twitter")
}

func TestBuildEmailHTML(t *testing.T) {
	html, err := buildEmailHTML(sampleSummary())
	require.NoError(t, err)

	assert.Contains(t, html, "Mentions Report")
	assert.Contains(t, html, "happy_user")
	assert.Contains(t, html, "outage, support")
	assert.Contains(t, html, `class="mention negative"`)
}

func TestBuildEmailText(t *testing.T) {
	text := buildEmailText(sampleSummary())

	assert.Contains(t, text, "Total Mentions: 2")
	assert.Contains(t, text, "Top Keywords: outage, support")
	assert.Contains(t, text, "angry_user")
}

func TestEventBuilders(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mention := models.Mention{
		ID:        "twitter_1",
		Platform:  models.PlatformTwitter,
		Sentiment: &models.SentimentResult{Label: "negative", Score: -0.4},
	}
	e := NewMentionEvent(mention, at)
	assert.Equal(t, models.EventNewMention, e.Event)
	assert.Equal(t, "negative", e.Data["sentiment"])
	assert.Equal(t, at, e.TriggeredAt)

	e = SentimentChangeEvent("acme", 0.3, -0.2, at)
	assert.Equal(t, models.EventSentimentChange, e.Event)
	assert.Equal(t, 0.3, e.Data["previous"])

	e = AlertTriggeredEvent("negative_sweep", map[string]interface{}{"count": 3}, at)
	assert.Equal(t, models.EventAlertTriggered, e.Event)
	assert.Equal(t, "negative_sweep", e.Data["reason"])
	assert.Equal(t, 3, e.Data["count"])
}
