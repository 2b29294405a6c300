// Package newsapi fetches the decorative market news feed and caches it in cache.db.
package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/stonks/internal/clientdata"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	cacheTable = "news"
	cacheKey   = "feed"
)

// ErrNotConfigured is returned when no API key is set and nothing is cached
var ErrNotConfigured = errors.New("news feed not configured")

// Article is one news item
type Article struct {
	UUID        string `json:"uuid,omitempty"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	Publisher   string `json:"publisher,omitempty"`
	Summary     string `json:"summary,omitempty"`
	PublishedAt int64  `json:"published_at,omitempty"`
}

// Config holds the RapidAPI endpoint settings
type Config struct {
	URL    string
	APIKey string
	Host   string
	TTL    time.Duration
}

// Client for the RapidAPI Yahoo Finance news feed
type Client struct {
	cfg       Config
	client    *http.Client
	limiter   *rate.Limiter
	cacheRepo *clientdata.Repository
	log       zerolog.Logger
}

// NewClient creates a news client
// cacheRepo is optional - if nil, caching is disabled
func NewClient(cfg Config, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	if cfg.TTL <= 0 {
		cfg.TTL = clientdata.TTLNews
	}
	return &Client{
		cfg:       cfg,
		client:    &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(time.Minute), 1),
		cacheRepo: cacheRepo,
		log:       log.With().Str("client", "newsapi").Logger(),
	}
}

// feedResponse mirrors the fields we read from the upstream payload
type feedResponse struct {
	News []struct {
		UUID                string `json:"uuid"`
		Title               string `json:"title"`
		Link                string `json:"link"`
		Publisher           string `json:"publisher"`
		Summary             string `json:"summary"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
	} `json:"news"`
}

// GetNews returns the feed, cache first.
// If the API fails, returns stale cached data if available (stale data > no data).
func (c *Client) GetNews(ctx context.Context) ([]Article, error) {
	if articles, ok := c.fromCache(true); ok {
		c.log.Debug().Int("articles", len(articles)).Msg("Cache hit")
		return articles, nil
	}

	articles, err := c.fetch(ctx)
	if err != nil {
		if stale, ok := c.fromCache(false); ok {
			c.log.Warn().Err(err).Msg("API failed, using stale cached news")
			return stale, nil
		}
		return nil, err
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store(cacheTable, cacheKey, articles, c.cfg.TTL); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache news")
		}
	}
	return articles, nil
}

func (c *Client) fetch(ctx context.Context) ([]Article, error) {
	if c.cfg.APIKey == "" || c.cfg.URL == "" {
		return nil, ErrNotConfigured
	}

	if !c.limiter.Allow() {
		return nil, fmt.Errorf("news API rate limited")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.cfg.APIKey)
	req.Header.Set("X-RapidAPI-Host", c.cfg.Host)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var payload feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if payload.News == nil {
		return nil, fmt.Errorf("unexpected response format: missing news array")
	}

	articles := make([]Article, 0, len(payload.News))
	for _, n := range payload.News {
		articles = append(articles, Article{
			UUID:        n.UUID,
			Title:       n.Title,
			Link:        n.Link,
			Publisher:   n.Publisher,
			Summary:     n.Summary,
			PublishedAt: n.ProviderPublishTime,
		})
	}
	return articles, nil
}

func (c *Client) fromCache(freshOnly bool) ([]Article, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	var (
		data json.RawMessage
		err  error
	)
	if freshOnly {
		data, err = c.cacheRepo.GetIfFresh(cacheTable, cacheKey)
	} else {
		data, err = c.cacheRepo.Get(cacheTable, cacheKey)
	}
	if err != nil || data == nil {
		return nil, false
	}

	var articles []Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, false
	}
	return articles, true
}
