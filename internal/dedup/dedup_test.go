package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repwatch/repwatch/internal/models"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func mention(id string, platform models.Platform, text string, at time.Time, likes int) models.Mention {
	return models.Mention{
		ID:        id,
		Platform:  platform,
		Text:      text,
		CreatedAt: at,
		Metrics:   models.EngagementMetrics{Likes: likes},
	}
}

func TestDedupe_ExactIDCollision(t *testing.T) {
	d := New(0.9, 5*time.Minute)

	in := []models.Mention{
		mention("twitter_1", models.PlatformTwitter, "first post", baseTime, 10),
		mention("twitter_2", models.PlatformTwitter, "unrelated content entirely", baseTime, 3),
		mention("twitter_1", models.PlatformTwitter, "first post", baseTime, 25),
	}

	out := d.Dedupe(in)

	require.Len(t, out, 2)
	assert.Equal(t, "twitter_1", out[0].ID)
	assert.Equal(t, 25, out[0].Metrics.Likes, "metrics merged by max, not sum")
}

func TestDedupe_RepostStormCollapses(t *testing.T) {
	d := New(0.9, 5*time.Minute)

	// Identical text 30 seconds apart: one survivor, maxed metrics.
	in := []models.Mention{
		mention("twitter_a", models.PlatformTwitter, "Acme just shipped the new release! https://acme.io/r1", baseTime, 4),
		mention("twitter_b", models.PlatformTwitter, "ACME just shipped   the new release! https://t.co/xyz", baseTime.Add(30*time.Second), 9),
	}

	out := d.Dedupe(in)

	require.Len(t, out, 1)
	assert.Equal(t, "twitter_a", out[0].ID, "earliest-seen mention is kept")
	assert.Equal(t, 9, out[0].Metrics.Likes)
}

func TestDedupe_OutsideTimeWindowKept(t *testing.T) {
	d := New(0.9, 5*time.Minute)

	in := []models.Mention{
		mention("twitter_a", models.PlatformTwitter, "same text every time", baseTime, 0),
		mention("twitter_b", models.PlatformTwitter, "same text every time", baseTime.Add(10*time.Minute), 0),
	}

	assert.Len(t, d.Dedupe(in), 2)
}

func TestDedupe_CrossPlatformNeverMerged(t *testing.T) {
	d := New(0.9, 5*time.Minute)

	in := []models.Mention{
		mention("twitter_a", models.PlatformTwitter, "same text every time", baseTime, 0),
		mention("reddit_a", models.PlatformReddit, "same text every time", baseTime, 0),
	}

	assert.Len(t, d.Dedupe(in), 2)
}

func TestDedupe_BelowOverlapThresholdKept(t *testing.T) {
	d := New(0.9, 5*time.Minute)

	in := []models.Mention{
		mention("twitter_a", models.PlatformTwitter, "the quick brown fox jumps over the lazy dog", baseTime, 0),
		mention("twitter_b", models.PlatformTwitter, "the quick brown cat sleeps under a warm blanket", baseTime, 0),
	}

	assert.Len(t, d.Dedupe(in), 2)
}

func TestDedupe_Idempotent(t *testing.T) {
	d := New(0.9, 5*time.Minute)

	in := []models.Mention{
		mention("twitter_a", models.PlatformTwitter, "Acme outage ongoing, status page down", baseTime, 2),
		mention("twitter_b", models.PlatformTwitter, "acme outage ongoing! status page down", baseTime.Add(time.Minute), 7),
		mention("reddit_x", models.PlatformReddit, "Anyone else seeing the Acme outage?", baseTime, 40),
		mention("twitter_a", models.PlatformTwitter, "Acme outage ongoing, status page down", baseTime, 5),
	}

	once := d.Dedupe(in)
	twice := d.Dedupe(once)

	assert.Equal(t, once, twice)
}

func TestDedupe_PreservesInputOrder(t *testing.T) {
	d := New(0.9, 5*time.Minute)

	in := []models.Mention{
		mention("twitter_3", models.PlatformTwitter, "third item text", baseTime.Add(2*time.Minute), 0),
		mention("twitter_2", models.PlatformTwitter, "second item with different words", baseTime.Add(time.Minute), 0),
		mention("twitter_1", models.PlatformTwitter, "completely unrelated first entry", baseTime, 0),
	}

	out := d.Dedupe(in)

	require.Len(t, out, 3)
	assert.Equal(t, "twitter_3", out[0].ID)
	assert.Equal(t, "twitter_2", out[1].ID)
	assert.Equal(t, "twitter_1", out[2].ID)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "urls stripped",
			input:    "check this https://example.com/a?b=c out",
			expected: "check this out",
		},
		{
			name:     "case folded and whitespace collapsed",
			input:    "  Hello   WORLD  ",
			expected: "hello world",
		},
		{
			name:     "handles and hashtags",
			input:    "@acme rocks #golang",
			expected: "rocks golang",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}
