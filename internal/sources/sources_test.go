package sources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/repwatch/repwatch/internal/ratelimit"
)

func testLimiter() *ratelimit.Limiter {
	return ratelimit.New(nil)
}

func TestTwitterSource_Name(t *testing.T) {
	source := NewTwitterSource("bearer_token", testLimiter())
	assert.Equal(t, "twitter", source.Name())
}

func TestTwitterSource_Enabled(t *testing.T) {
	tests := []struct {
		name        string
		bearerToken string
		expected    bool
	}{
		{
			name:        "token provided",
			bearerToken: "bearer_token",
			expected:    true,
		},
		{
			name:        "no token",
			bearerToken: "",
			expected:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := NewTwitterSource(tt.bearerToken, testLimiter())
			assert.Equal(t, tt.expected, source.Enabled())
		})
	}
}

func TestRedditSource_Enabled(t *testing.T) {
	tests := []struct {
		name         string
		clientID     string
		clientSecret string
		expected     bool
	}{
		{
			name:         "both credentials provided",
			clientID:     "client_id",
			clientSecret: "client_secret",
			expected:     true,
		},
		{
			name:         "missing client ID",
			clientID:     "",
			clientSecret: "client_secret",
			expected:     false,
		},
		{
			name:         "missing client secret",
			clientID:     "client_id",
			clientSecret: "",
			expected:     false,
		},
		{
			name:         "both missing",
			clientID:     "",
			clientSecret: "",
			expected:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := NewRedditSource(tt.clientID, tt.clientSecret, nil, testLimiter())
			assert.Equal(t, tt.expected, source.Enabled())
		})
	}
}

func TestRedditSource_DefaultSubreddits(t *testing.T) {
	source := NewRedditSource("id", "secret", nil, testLimiter())
	assert.Equal(t, []string{"all"}, source.subreddits)
}

func TestWebSearchSource_Enabled(t *testing.T) {
	tests := []struct {
		name     string
		apiKey   string
		cseID    string
		expected bool
	}{
		{
			name:     "both provided",
			apiKey:   "key",
			cseID:    "cse",
			expected: true,
		},
		{
			name:     "missing CSE ID",
			apiKey:   "key",
			cseID:    "",
			expected: false,
		},
		{
			name:     "missing API key",
			apiKey:   "",
			cseID:    "cse",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := NewWebSearchSource(tt.apiKey, tt.cseID, testLimiter())
			assert.Equal(t, tt.expected, source.Enabled())
		})
	}
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bold highlights",
			input:    "Acme <b>widgets</b> are … popular",
			expected: "Acme widgets are … popular",
		},
		{
			name:     "whitespace collapses",
			input:    "first\n  <em>second</em>  third",
			expected: "first second third",
		},
		{
			name:     "plain text unchanged",
			input:    "nothing to strip",
			expected: "nothing to strip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripMarkup(tt.input))
		})
	}
}

func TestHashURL_DropsTrackingQuery(t *testing.T) {
	a := hashURL("https://example.com/post/1?utm_source=feed")
	b := hashURL("https://example.com/post/1?utm_source=mail&ref=x")
	assert.Equal(t, a, b)
	assert.Equal(t, "example.com/post/1", a)
}

func TestDateRestrict(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "d1", dateRestrict(now.Add(-2*time.Hour), now))
	assert.Equal(t, "d4", dateRestrict(now.Add(-3*24*time.Hour), now))
}

func TestSourceError_Unwrap(t *testing.T) {
	inner := assert.AnError
	err := newSourceError("twitter", ErrQuota, true, inner)

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "twitter")
	assert.Contains(t, err.Error(), "quota")
	assert.True(t, err.Retryable)
}
