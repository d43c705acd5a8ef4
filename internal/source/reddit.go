package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"trendingreads/internal/adapter/fetcher"
	"trendingreads/internal/adapter/parser"
	"trendingreads/internal/domain"
	"trendingreads/internal/pipeline"
	"trendingreads/internal/scoring"
)

// RedditListing загружает JSON-листинг сообщества и оставляет только посты со внешней ссылкой.
type RedditListing struct {
	src     domain.FeedSource
	fetcher BytesFetcher
	opts    Options
	log     *slog.Logger
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	SelfText    string  `json:"selftext"`
	IsSelf      bool    `json:"is_self"`
	Thumbnail   string  `json:"thumbnail"`
}

// NewRedditListing создает загрузчик листинга.
func NewRedditListing(src domain.FeedSource, f BytesFetcher, opts Options, log *slog.Logger) *RedditListing {
	return &RedditListing{
		src:     src,
		fetcher: f,
		opts:    opts.withDefaults(DefaultEngagementDescriptionLimit),
		log: log.With(
			slog.String("component", "reddit-source"),
			slog.String("source", src.Name),
		),
	}
}

func (r *RedditListing) Source() domain.FeedSource { return r.src }

// Fetch загружает листинг и отбрасывает self-посты и посты без заголовка или ссылки.
func (r *RedditListing) Fetch(ctx context.Context) ([]domain.Article, error) {
	body, err := r.fetcher.FetchBytes(ctx, r.src.URL, fetcher.AcceptJSON)
	if err != nil {
		return nil, err
	}
	if err := parser.SniffJSON(body); err != nil {
		return nil, err
	}
	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to decode listing %s: %w", r.src.Name, err)
	}

	now := r.opts.Now()
	var articles []domain.Article
	for _, child := range listing.Data.Children {
		post := child.Data
		title := parser.StripHTML(post.Title)
		if post.IsSelf || strings.TrimSpace(post.URL) == "" || title == "" {
			continue
		}
		if len(articles) >= r.opts.ItemCap {
			break
		}
		var published *time.Time
		if post.CreatedUTC > 0 {
			t := time.Unix(int64(post.CreatedUTC), 0).UTC()
			published = &t
		}
		thumb := ""
		if pipeline.IsAbsoluteHTTPURL(post.Thumbnail) {
			thumb = post.Thumbnail
		}
		articles = append(articles, domain.Article{
			ID:          "reddit-" + post.ID,
			Title:       title,
			URL:         strings.TrimSpace(post.URL),
			Source:      r.src.Name,
			SourceType:  domain.SourceTypeReddit,
			Category:    r.src.Category,
			Score:       scoring.EngagementScore(post.Score, post.NumComments, published, now),
			Description: parser.Truncate(parser.StripHTML(post.SelfText), r.opts.DescriptionLimit),
			PublishedAt: published,
			Thumbnail:   thumb,
		})
	}
	r.log.Debug("Listing fetched", slog.Int("posts", len(listing.Data.Children)), slog.Int("articles", len(articles)))
	return articles, nil
}
