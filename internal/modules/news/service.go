// Package news serves the decorative headline feed.
package news

import (
	"context"
	"errors"

	"github.com/aristath/stonks/internal/clients/newsapi"
	"github.com/rs/zerolog"
)

// MaxArticles is the number of headlines shown to a user
const MaxArticles = 2

// Feed fetches articles from upstream
type Feed interface {
	GetNews(ctx context.Context) ([]newsapi.Article, error)
}

// Service returns headlines and never fails the caller
type Service struct {
	feed Feed
	log  zerolog.Logger
}

// NewService creates a news service. feed may be nil.
func NewService(feed Feed, log zerolog.Logger) *Service {
	return &Service{
		feed: feed,
		log:  log.With().Str("service", "news").Logger(),
	}
}

// Latest returns up to MaxArticles articles. Upstream errors yield an empty list.
func (s *Service) Latest(ctx context.Context) []newsapi.Article {
	if s.feed == nil {
		return []newsapi.Article{}
	}

	articles, err := s.feed.GetNews(ctx)
	if err != nil {
		if errors.Is(err, newsapi.ErrNotConfigured) {
			s.log.Debug().Msg("News feed not configured")
		} else {
			s.log.Warn().Err(err).Msg("Failed to fetch news")
		}
		return []newsapi.Article{}
	}

	out := make([]newsapi.Article, 0, MaxArticles)
	for _, a := range articles {
		if a.Title == "" || a.Link == "" {
			continue
		}
		out = append(out, a)
		if len(out) == MaxArticles {
			break
		}
	}
	return out
}
