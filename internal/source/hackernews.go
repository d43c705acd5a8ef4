package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"trendingreads/internal/adapter/fetcher"
	"trendingreads/internal/adapter/parser"
	"trendingreads/internal/domain"
	"trendingreads/internal/scoring"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	// HackerNewsName - отображаемое имя источника.
	HackerNewsName = "Hacker News"
	// DefaultHackerNewsEndpoint - поисковый API Algolia.
	DefaultHackerNewsEndpoint = "https://hn.algolia.com/api/v1/search"
	DefaultHitsPerPage        = 15
	DefaultMinPoints          = 10

	hackerNewsItemURL = "https://news.ycombinator.com/item?id="
)

// HackerNewsOptions настраивает поиск.
type HackerNewsOptions struct {
	Options
	Endpoint    string
	HitsPerPage int
	MinPoints   int
	Concurrency int
	// Limiter ограничивает частоту запросов к поисковому API; nil - без ограничений.
	Limiter *rate.Limiter
}

// HackerNews выполняет отдельный поисковый запрос на каждый термин категории,
// так как API не поддерживает OR между терминами, и сводит результаты по objectID.
type HackerNews struct {
	src     domain.FeedSource
	terms   []string
	fetcher BytesFetcher
	opts    HackerNewsOptions
	log     *slog.Logger
}

type hnResponse struct {
	Hits []hnHit `json:"hits"`
}

type hnHit struct {
	ObjectID    string  `json:"objectID"`
	Title       string  `json:"title"`
	URL         *string `json:"url"`
	Points      int     `json:"points"`
	NumComments int     `json:"num_comments"`
	CreatedAt   string  `json:"created_at"`
	StoryText   string  `json:"story_text"`
}

// NewHackerNews создает загрузчик поиска Hacker News для одной категории.
func NewHackerNews(category domain.Category, terms []string, f BytesFetcher, opts HackerNewsOptions, log *slog.Logger) *HackerNews {
	opts.Options = opts.Options.withDefaults(DefaultEngagementDescriptionLimit)
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultHackerNewsEndpoint
	}
	if opts.HitsPerPage <= 0 {
		opts.HitsPerPage = DefaultHitsPerPage
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &HackerNews{
		src: domain.FeedSource{
			Name:     HackerNewsName,
			URL:      opts.Endpoint,
			Category: category,
			Type:     domain.SourceTypeHackerNews,
		},
		terms:   terms,
		fetcher: f,
		opts:    opts,
		log: log.With(
			slog.String("component", "hackernews-source"),
			slog.String("category", string(category)),
		),
	}
}

func (h *HackerNews) Source() domain.FeedSource { return h.src }

// Terms возвращает поисковые термины категории.
func (h *HackerNews) Terms() []string { return h.terms }

// Fetch выполняет запросы по всем терминам параллельно и дожидается всех.
// Падение отдельного термина не прерывает остальные; ошибка возвращается, только если упали все.
func (h *HackerNews) Fetch(ctx context.Context) ([]domain.Article, error) {
	if len(h.terms) == 0 {
		return nil, nil
	}
	results := make([][]hnHit, len(h.terms))
	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.opts.Concurrency)
	for i, term := range h.terms {
		g.Go(func() error {
			hits, err := h.search(gctx, term)
			if err != nil {
				h.log.Debug("Search term failed", slog.String("term", term), slog.Any("error", err))
				mu.Lock()
				errs = append(errs, fmt.Errorf("term %q: %w", term, err))
				mu.Unlock()
				return nil
			}
			results[i] = hits
			return nil
		})
	}
	_ = g.Wait()
	if len(errs) == len(h.terms) {
		return nil, errors.Join(errs...)
	}

	now := h.opts.Now()
	seen := make(map[string]struct{})
	var articles []domain.Article
	for _, hits := range results {
		for _, hit := range hits {
			if _, ok := seen[hit.ObjectID]; ok || hit.ObjectID == "" {
				continue
			}
			seen[hit.ObjectID] = struct{}{}
			title := parser.StripHTML(hit.Title)
			if title == "" {
				continue
			}
			link := hackerNewsItemURL + hit.ObjectID
			if hit.URL != nil && strings.TrimSpace(*hit.URL) != "" {
				link = strings.TrimSpace(*hit.URL)
			}
			published := parser.ParseDate(hit.CreatedAt)
			articles = append(articles, domain.Article{
				ID:          "hn-" + hit.ObjectID,
				Title:       title,
				URL:         link,
				Source:      HackerNewsName,
				SourceType:  domain.SourceTypeHackerNews,
				Category:    h.src.Category,
				Score:       scoring.EngagementScore(hit.Points, hit.NumComments, published, now),
				Description: parser.Truncate(parser.StripHTML(hit.StoryText), h.opts.DescriptionLimit),
				PublishedAt: published,
			})
		}
	}
	return articles, nil
}

// SearchURL строит адрес поискового запроса для одного термина.
func (h *HackerNews) SearchURL(term string) string {
	params := url.Values{}
	params.Set("query", term)
	params.Set("tags", "story")
	params.Set("hitsPerPage", strconv.Itoa(h.opts.HitsPerPage))
	if h.opts.MinPoints > 0 {
		params.Set("numericFilters", "points>"+strconv.Itoa(h.opts.MinPoints))
	}
	sep := "?"
	if strings.Contains(h.opts.Endpoint, "?") {
		sep = "&"
	}
	return h.opts.Endpoint + sep + params.Encode()
}

func (h *HackerNews) search(ctx context.Context, term string) ([]hnHit, error) {
	if h.opts.Limiter != nil {
		if err := h.opts.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	body, err := h.fetcher.FetchBytes(ctx, h.SearchURL(term), fetcher.AcceptJSON)
	if err != nil {
		return nil, err
	}
	if err := parser.SniffJSON(body); err != nil {
		return nil, err
	}
	var resp hnResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return resp.Hits, nil
}
