package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/repwatch/repwatch/internal/models"
	"github.com/repwatch/repwatch/internal/ratelimit"
)

const twitterSearchURL = "https://api.twitter.com/2/tweets/search/recent"

// TwitterSource fetches recent tweets via the v2 search API.
type TwitterSource struct {
	bearerToken string
	client      *resty.Client
	limiter     *ratelimit.Limiter
}

var _ Source = (*TwitterSource)(nil)

type twitterSearchResponse struct {
	Data     []twitterTweet `json:"data"`
	Includes struct {
		Users []twitterUser `json:"users"`
	} `json:"includes"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

type twitterTweet struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	AuthorID      string `json:"author_id"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		RetweetCount int `json:"retweet_count"`
		LikeCount    int `json:"like_count"`
		ReplyCount   int `json:"reply_count"`
	} `json:"public_metrics"`
	ReferencedTweets []struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"referenced_tweets"`
}

type twitterUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// NewTwitterSource creates a Twitter connector gated by limiter.
func NewTwitterSource(bearerToken string, limiter *ratelimit.Limiter) *TwitterSource {
	return &TwitterSource{
		bearerToken: bearerToken,
		limiter:     limiter,
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", "repwatch/1.0"),
	}
}

func (t *TwitterSource) Name() string {
	return string(models.PlatformTwitter)
}

func (t *TwitterSource) Enabled() bool {
	return t.bearerToken != ""
}

// Fetch searches recent tweets matching query between since and until.
// Retweets are skipped; the original tweet surfaces through its own search
// hit and keeping both would double-count the content.
func (t *TwitterSource) Fetch(ctx context.Context, query string, since, until time.Time, maxResults int) ([]models.Mention, error) {
	if !t.Enabled() {
		logrus.Debug("twitter source disabled - missing bearer token")
		return []models.Mention{}, nil
	}

	// The recent-search endpoint only reaches back seven days.
	earliest := time.Now().UTC().Add(-7*24*time.Hour + time.Minute)
	if since.Before(earliest) {
		since = earliest
	}

	mentions := []models.Mention{}
	nextToken := ""

	for len(mentions) < maxResults {
		if err := t.limiter.Acquire(ctx, t.Name()); err != nil {
			return mentions, newSourceError(t.Name(), ErrNetwork, true, err)
		}

		page, token, err := t.searchPage(ctx, query, since, until, maxResults-len(mentions), nextToken)
		if err != nil {
			return mentions, err
		}

		mentions = append(mentions, page...)
		if token == "" {
			break
		}
		nextToken = token
	}

	logrus.Infof("twitter returned %d mentions for %q", len(mentions), query)
	return mentions, nil
}

func (t *TwitterSource) searchPage(ctx context.Context, query string, since, until time.Time, limit int, nextToken string) ([]models.Mention, string, error) {
	params := url.Values{}
	params.Set("query", fmt.Sprintf(`"%s" -is:retweet`, query))
	params.Set("start_time", since.UTC().Format(time.RFC3339))
	if !until.IsZero() {
		params.Set("end_time", until.UTC().Format(time.RFC3339))
	}
	params.Set("max_results", fmt.Sprintf("%d", clamp(limit, 10, 100)))
	params.Set("tweet.fields", "created_at,author_id,public_metrics,referenced_tweets")
	params.Set("expansions", "author_id")
	if nextToken != "" {
		params.Set("next_token", nextToken)
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+t.bearerToken).
		SetQueryParamsFromValues(params).
		Get(twitterSearchURL)

	if err != nil {
		return nil, "", newSourceError(t.Name(), ErrNetwork, true, err)
	}

	switch {
	case resp.StatusCode() == 401 || resp.StatusCode() == 403:
		return nil, "", newSourceError(t.Name(), ErrAuth, false, fmt.Errorf("status %d", resp.StatusCode()))
	case resp.StatusCode() == 429:
		return nil, "", newSourceError(t.Name(), ErrQuota, true, fmt.Errorf("rate limited, reset at %s", resp.Header().Get("x-rate-limit-reset")))
	case resp.StatusCode() != 200:
		return nil, "", newSourceError(t.Name(), ErrNetwork, resp.StatusCode() >= 500, fmt.Errorf("status %d: %s", resp.StatusCode(), resp.Body()))
	}

	var searchResp twitterSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, "", newSourceError(t.Name(), ErrMalformed, false, err)
	}

	users := make(map[string]string, len(searchResp.Includes.Users))
	for _, u := range searchResp.Includes.Users {
		users[u.ID] = u.Username
	}

	var mentions []models.Mention
	for _, tweet := range searchResp.Data {
		if isRetweet(tweet) {
			continue
		}

		createdAt, err := time.Parse(time.RFC3339, tweet.CreatedAt)
		if err != nil {
			logrus.Warnf("skipping tweet %s with bad timestamp: %v", tweet.ID, err)
			continue
		}

		author := users[tweet.AuthorID]
		if author == "" {
			author = tweet.AuthorID
		}

		mentions = append(mentions, models.Mention{
			ID:        models.MentionKey(models.PlatformTwitter, tweet.ID),
			Platform:  models.PlatformTwitter,
			Text:      tweet.Text,
			URL:       fmt.Sprintf("https://twitter.com/i/status/%s", tweet.ID),
			Author:    author,
			CreatedAt: createdAt,
			Metrics: models.EngagementMetrics{
				Likes:    tweet.PublicMetrics.LikeCount,
				Shares:   tweet.PublicMetrics.RetweetCount,
				Comments: tweet.PublicMetrics.ReplyCount,
			},
		})
	}

	return mentions, searchResp.Meta.NextToken, nil
}

func isRetweet(tweet twitterTweet) bool {
	for _, ref := range tweet.ReferencedTweets {
		if ref.Type == "retweeted" {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
