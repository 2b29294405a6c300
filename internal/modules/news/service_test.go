package news

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aristath/stonks/internal/clients/newsapi"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFeed struct {
	articles []newsapi.Article
	err      error
}

func (f stubFeed) GetNews(ctx context.Context) ([]newsapi.Article, error) {
	return f.articles, f.err
}

func TestLatest(t *testing.T) {
	feed := stubFeed{articles: []newsapi.Article{
		{Title: "Stocks go up", Link: "https://example.com/1"},
		{Title: "", Link: "https://example.com/untitled"},
		{Title: "Stocks go down", Link: "https://example.com/2"},
		{Title: "Stocks go sideways", Link: "https://example.com/3"},
	}}

	got := NewService(feed, zerolog.Nop()).Latest(context.Background())
	require.Len(t, got, MaxArticles)
	assert.Equal(t, "Stocks go up", got[0].Title)
	assert.Equal(t, "Stocks go down", got[1].Title)
}

func TestLatest_NeverFails(t *testing.T) {
	tests := []struct {
		name string
		feed Feed
	}{
		{"nil feed", nil},
		{"upstream error", stubFeed{err: errors.New("503")}},
		{"not configured", stubFeed{err: fmt.Errorf("wrapped: %w", newsapi.ErrNotConfigured)}},
		{"empty", stubFeed{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewService(tt.feed, zerolog.Nop()).Latest(context.Background())
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}
