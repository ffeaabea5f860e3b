package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/repwatch/repwatch/internal/models"
	"github.com/repwatch/repwatch/internal/ratelimit"
)

const customSearchURL = "https://www.googleapis.com/customsearch/v1"

// WebSearchSource surfaces web mentions through the Google Custom Search API.
type WebSearchSource struct {
	apiKey  string
	cseID   string
	client  *resty.Client
	limiter *ratelimit.Limiter
	now     func() time.Time
}

var _ Source = (*WebSearchSource)(nil)

type customSearchResponse struct {
	Items []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Snippet     string `json:"snippet"`
		HTMLSnippet string `json:"htmlSnippet"`
		DisplayLink string `json:"displayLink"`
	} `json:"items"`
	Queries struct {
		NextPage []struct {
			StartIndex int `json:"startIndex"`
		} `json:"nextPage"`
	} `json:"queries"`
}

// NewWebSearchSource creates a web connector gated by limiter.
func NewWebSearchSource(apiKey, cseID string, limiter *ratelimit.Limiter) *WebSearchSource {
	return &WebSearchSource{
		apiKey:  apiKey,
		cseID:   cseID,
		limiter: limiter,
		client:  resty.New().SetTimeout(30 * time.Second),
		now:     time.Now,
	}
}

func (w *WebSearchSource) Name() string {
	return string(models.PlatformWeb)
}

func (w *WebSearchSource) Enabled() bool {
	return w.apiKey != "" && w.cseID != ""
}

// Fetch queries Custom Search page by page until maxResults are collected or
// results run out. Search results carry no publication timestamp, so
// created_at is the fetch time; the API's dateRestrict keeps results inside
// the requested window.
func (w *WebSearchSource) Fetch(ctx context.Context, query string, since, until time.Time, maxResults int) ([]models.Mention, error) {
	if !w.Enabled() {
		logrus.Debug("web source disabled - missing Google API credentials")
		return []models.Mention{}, nil
	}

	mentions := []models.Mention{}
	start := 1

	for len(mentions) < maxResults && start <= 91 { // the API caps at 100 results
		if err := w.limiter.Acquire(ctx, w.Name()); err != nil {
			return mentions, newSourceError(w.Name(), ErrNetwork, true, err)
		}

		page, next, err := w.searchPage(ctx, query, since, start, maxResults-len(mentions))
		if err != nil {
			return mentions, err
		}

		mentions = append(mentions, page...)
		if next == 0 {
			break
		}
		start = next
	}

	logrus.Infof("web search returned %d mentions for %q", len(mentions), query)
	return mentions, nil
}

func (w *WebSearchSource) searchPage(ctx context.Context, query string, since time.Time, start, limit int) ([]models.Mention, int, error) {
	resp, err := w.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":            fmt.Sprintf("%q", query),
			"key":          w.apiKey,
			"cx":           w.cseID,
			"num":          fmt.Sprintf("%d", clamp(limit, 1, 10)),
			"start":        fmt.Sprintf("%d", start),
			"dateRestrict": dateRestrict(since, w.now()),
		}).
		Get(customSearchURL)

	if err != nil {
		return nil, 0, newSourceError(w.Name(), ErrNetwork, true, err)
	}

	switch {
	case resp.StatusCode() == 400 || resp.StatusCode() == 403:
		return nil, 0, newSourceError(w.Name(), ErrAuth, false, fmt.Errorf("status %d: %s", resp.StatusCode(), resp.Body()))
	case resp.StatusCode() == 429:
		return nil, 0, newSourceError(w.Name(), ErrQuota, true, fmt.Errorf("daily quota exhausted"))
	case resp.StatusCode() != 200:
		return nil, 0, newSourceError(w.Name(), ErrNetwork, resp.StatusCode() >= 500, fmt.Errorf("status %d", resp.StatusCode()))
	}

	var searchResp customSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, 0, newSourceError(w.Name(), ErrMalformed, false, err)
	}

	fetchedAt := w.now().UTC()
	var mentions []models.Mention

	for _, item := range searchResp.Items {
		text := item.Snippet
		if item.HTMLSnippet != "" {
			if plain := stripMarkup(item.HTMLSnippet); plain != "" {
				text = plain
			}
		}
		if text == "" {
			text = item.Title
		}

		mentions = append(mentions, models.Mention{
			ID:        models.MentionKey(models.PlatformWeb, hashURL(item.Link)),
			Platform:  models.PlatformWeb,
			Text:      text,
			URL:       item.Link,
			Author:    item.DisplayLink,
			CreatedAt: fetchedAt,
		})
	}

	next := 0
	if len(searchResp.Queries.NextPage) > 0 {
		next = searchResp.Queries.NextPage[0].StartIndex
	}

	return mentions, next, nil
}

// stripMarkup flattens an HTML snippet to plain text.
func stripMarkup(snippet string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snippet))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// hashURL derives a stable native ID for a web result from its URL. The host
// and path identify the page; query strings full of tracking parameters would
// make re-fetches of the same page look new.
func hashURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Host + u.Path
}

// dateRestrict converts the since bound into the API's dN notation.
func dateRestrict(since, now time.Time) string {
	days := int(now.Sub(since).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	return fmt.Sprintf("d%d", days)
}
