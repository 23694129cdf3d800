// Package redditclient fetches subreddit listings and maps them to posts.
package redditclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"foodtrend/internal/model"
)

// Client defines the methods we use from the Reddit API.
type Client interface {
	FetchSubreddit(ctx context.Context, subreddit string, limit int) ([]model.Post, error)
}

// HTTPClient talks to the Reddit listing API. With credentials it uses the
// OAuth endpoint; without, the public JSON listing.
type HTTPClient struct {
	authURL      string
	apiURL       string
	publicURL    string
	clientID     string
	clientSecret string
	userAgent    string
	httpClient   *http.Client
	limiter      *rate.Limiter
	maxAttempts  int
	baseBackoff  time.Duration

	token       string
	tokenExpiry time.Time
}

func NewHTTPClient(clientID, clientSecret, userAgent string) *HTTPClient {
	return &HTTPClient{
		authURL:      "https://www.reddit.com/api/v1/access_token",
		apiURL:       "https://oauth.reddit.com",
		publicURL:    "https://www.reddit.com",
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		limiter:      newDefaultLimiter(),
		maxAttempts:  getEnvInt("REDDIT_API_MAX_ATTEMPTS", 5),
		baseBackoff:  time.Duration(getEnvInt("REDDIT_API_BASE_BACKOFF_MS", 500)) * time.Millisecond,
	}
}

func (c *HTTPClient) ensureToken(ctx context.Context) error {
	if c.clientID == "" || c.clientSecret == "" {
		return nil
	}
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return nil
	}
	form := url.Values{"grant_type": {"client_credentials"}}
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("User-Agent", c.userAgent)
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: token request: %v", model.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: token status %d", model.ErrUpstreamUnavailable, resp.StatusCode)
	}
	var raw struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("%w: token decode: %v", model.ErrUpstreamUnavailable, err)
	}
	c.token = raw.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(raw.ExpiresIn)*time.Second - time.Minute)
	return nil
}

// FetchSubreddit returns up to limit newest posts from one subreddit,
// paginating through the listing as needed.
func (c *HTTPClient) FetchSubreddit(ctx context.Context, subreddit string, limit int) ([]model.Post, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}
	base := c.publicURL
	if c.token != "" {
		base = c.apiURL
	}
	var out []model.Post
	after := ""
	for len(out) < limit {
		page := clamp(limit-len(out), 1, 100)
		u := fmt.Sprintf("%s/r/%s/new.json?limit=%d&raw_json=1", base, url.PathEscape(subreddit), page)
		if after != "" {
			u += "&after=" + url.QueryEscape(after)
		}
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := c.doWithRetry(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("%w: r/%s: %v", model.ErrUpstreamUnavailable, subreddit, err)
		}
		posts, next, err := decodeListing(resp)
		if err != nil {
			return nil, fmt.Errorf("%w: r/%s: %v", model.ErrUpstreamUnavailable, subreddit, err)
		}
		out = append(out, posts...)
		if next == "" || len(posts) == 0 {
			break
		}
		after = next
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func decodeListing(resp *http.Response) ([]model.Post, string, error) {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("status %d", resp.StatusCode)
	}
	var raw struct {
		Data struct {
			After    string `json:"after"`
			Children []struct {
				Data struct {
					ID          string  `json:"id"`
					Subreddit   string  `json:"subreddit"`
					Title       string  `json:"title"`
					Selftext    string  `json:"selftext"`
					Author      string  `json:"author"`
					Score       int     `json:"score"`
					UpvoteRatio float64 `json:"upvote_ratio"`
					NumComments int     `json:"num_comments"`
					CreatedUTC  float64 `json:"created_utc"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, "", err
	}
	out := make([]model.Post, 0, len(raw.Data.Children))
	for _, ch := range raw.Data.Children {
		d := ch.Data
		out = append(out, model.Post{
			ID:           d.ID,
			Subreddit:    d.Subreddit,
			Title:        d.Title,
			Body:         d.Selftext,
			Author:       d.Author,
			Score:        d.Score,
			UpvoteRatio:  d.UpvoteRatio,
			CommentCount: d.NumComments,
			CreatedAt:    time.Unix(int64(d.CreatedUTC), 0).UTC(),
		})
	}
	return out, raw.Data.After, nil
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func (c *HTTPClient) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		r := req.Clone(ctx)
		if req.GetBody != nil {
			b, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			r.Body = b
		}
		resp, err := c.httpClient.Do(r)
		if err == nil {
			if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599) {
				ra := resp.Header.Get("Retry-After")
				_ = resp.Body.Close()
				wait := backoff
				if ra != "" {
					if secs, err := strconv.Atoi(ra); err == nil {
						wait = time.Duration(secs) * time.Second
					} else if t, err := http.ParseTime(ra); err == nil {
						if d := time.Until(t); d > 0 {
							wait = d
						}
					}
				}
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				backoff *= 2
				continue
			}
			return resp, nil
		}
		lastErr = err
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %v", c.maxAttempts, lastErr)
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil && i > 0 {
		return i
	}
	return def
}
