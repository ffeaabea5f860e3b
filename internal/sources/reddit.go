package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/repwatch/repwatch/internal/models"
	"github.com/repwatch/repwatch/internal/ratelimit"
)

// RedditSource searches subreddits through the OAuth API using
// client-credentials auth.
type RedditSource struct {
	clientID     string
	clientSecret string
	subreddits   []string
	client       *resty.Client
	limiter      *ratelimit.Limiter
	accessToken  string
	tokenExpiry  time.Time
}

var _ Source = (*RedditSource)(nil)

type redditAuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type redditSearchResponse struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Permalink   string  `json:"permalink"`
	Created     float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
}

// NewRedditSource creates a Reddit connector gated by limiter. subreddits
// lists the communities searched on every fetch.
func NewRedditSource(clientID, clientSecret string, subreddits []string, limiter *ratelimit.Limiter) *RedditSource {
	if len(subreddits) == 0 {
		subreddits = []string{"all"}
	}
	return &RedditSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		subreddits:   subreddits,
		limiter:      limiter,
		client:       resty.New().SetTimeout(30 * time.Second),
	}
}

func (r *RedditSource) Name() string {
	return string(models.PlatformReddit)
}

func (r *RedditSource) Enabled() bool {
	return r.clientID != "" && r.clientSecret != ""
}

// Fetch searches each configured subreddit for query and keeps posts inside
// [since, until]. A subreddit-level failure is logged and skipped so one bad
// community does not empty the whole source.
func (r *RedditSource) Fetch(ctx context.Context, query string, since, until time.Time, maxResults int) ([]models.Mention, error) {
	if !r.Enabled() {
		logrus.Debug("reddit source disabled - missing credentials")
		return []models.Mention{}, nil
	}

	if err := r.authenticate(ctx); err != nil {
		return nil, err
	}

	mentions := []models.Mention{}
	var lastErr error

	for _, subreddit := range r.subreddits {
		if len(mentions) >= maxResults {
			break
		}

		batch, err := r.searchSubreddit(ctx, subreddit, query, since, until, maxResults-len(mentions))
		if err != nil {
			logrus.Warnf("reddit: search of r/%s failed: %v", subreddit, err)
			lastErr = err
			continue
		}
		mentions = append(mentions, batch...)
	}

	// Partial results beat none: only surface the error when every
	// subreddit failed.
	if len(mentions) == 0 && lastErr != nil {
		return nil, lastErr
	}

	logrus.Infof("reddit returned %d mentions for %q", len(mentions), query)
	return mentions, nil
}

func (r *RedditSource) authenticate(ctx context.Context) error {
	if r.accessToken != "" && time.Now().Before(r.tokenExpiry) {
		return nil
	}

	if err := r.limiter.Acquire(ctx, r.Name()); err != nil {
		return newSourceError(r.Name(), ErrNetwork, true, err)
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", "repwatch/1.0").
		SetBasicAuth(r.clientID, r.clientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		Post("https://www.reddit.com/api/v1/access_token")

	if err != nil {
		return newSourceError(r.Name(), ErrNetwork, true, err)
	}
	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return newSourceError(r.Name(), ErrAuth, false, fmt.Errorf("auth status %d", resp.StatusCode()))
	}
	if resp.StatusCode() != 200 {
		return newSourceError(r.Name(), ErrNetwork, resp.StatusCode() >= 500, fmt.Errorf("auth status %d", resp.StatusCode()))
	}

	var authResp redditAuthResponse
	if err := json.Unmarshal(resp.Body(), &authResp); err != nil {
		return newSourceError(r.Name(), ErrMalformed, false, err)
	}
	if authResp.AccessToken == "" {
		return newSourceError(r.Name(), ErrAuth, false, fmt.Errorf("empty access token"))
	}

	r.accessToken = authResp.AccessToken
	r.tokenExpiry = time.Now().Add(time.Duration(authResp.ExpiresIn-60) * time.Second)
	return nil
}

func (r *RedditSource) searchSubreddit(ctx context.Context, subreddit, query string, since, until time.Time, limit int) ([]models.Mention, error) {
	if err := r.limiter.Acquire(ctx, r.Name()); err != nil {
		return nil, newSourceError(r.Name(), ErrNetwork, true, err)
	}

	searchURL := fmt.Sprintf("https://oauth.reddit.com/r/%s/search.json", subreddit)

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+r.accessToken).
		SetHeader("User-Agent", "repwatch/1.0").
		SetQueryParams(map[string]string{
			"q":           query,
			"restrict_sr": "1",
			"sort":        "new",
			"limit":       fmt.Sprintf("%d", clamp(limit, 1, 100)),
		}).
		Get(searchURL)

	if err != nil {
		return nil, newSourceError(r.Name(), ErrNetwork, true, err)
	}

	switch {
	case resp.StatusCode() == 401 || resp.StatusCode() == 403:
		return nil, newSourceError(r.Name(), ErrAuth, false, fmt.Errorf("status %d", resp.StatusCode()))
	case resp.StatusCode() == 429:
		return nil, newSourceError(r.Name(), ErrQuota, true, fmt.Errorf("rate limited"))
	case resp.StatusCode() != 200:
		return nil, newSourceError(r.Name(), ErrNetwork, resp.StatusCode() >= 500, fmt.Errorf("status %d", resp.StatusCode()))
	}

	var searchResp redditSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, newSourceError(r.Name(), ErrMalformed, false, err)
	}

	var mentions []models.Mention
	for _, child := range searchResp.Data.Children {
		post := child.Data
		createdAt := time.Unix(int64(post.Created), 0).UTC()

		if createdAt.Before(since) {
			continue
		}
		if !until.IsZero() && createdAt.After(until) {
			continue
		}

		text := post.Title
		if post.Selftext != "" {
			text = strings.TrimSpace(post.Title + " " + post.Selftext)
		}

		mentions = append(mentions, models.Mention{
			ID:        models.MentionKey(models.PlatformReddit, post.ID),
			Platform:  models.PlatformReddit,
			Text:      text,
			URL:       "https://reddit.com" + post.Permalink,
			Author:    post.Author,
			CreatedAt: createdAt,
			Metrics: models.EngagementMetrics{
				Likes:    post.Score,
				Comments: post.NumComments,
			},
		})
	}

	return mentions, nil
}
